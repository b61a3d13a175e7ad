package handler

import (
	"net/http"

	"orderdesk/internal/repository"
	"orderdesk/internal/service"
	"orderdesk/pkg/pagination"
	"orderdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orderService  service.OrderService
	exportService service.ExportService
}

func NewOrderHandler(orderService service.OrderService, exportService service.ExportService) *OrderHandler {
	return &OrderHandler{orderService: orderService, exportService: exportService}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/api/orders")
	{
		orders.GET("", h.ListOrders)
		orders.POST("", h.CreateOrder)
		orders.GET("/export", h.ExportOrders)
		orders.GET("/:id", h.GetOrder)
		orders.PUT("/:id", h.UpdateOrder)
		orders.PATCH("/:id/status", h.UpdateOrderStatus)
	}
}

func orderFilterFromQuery(c *gin.Context) repository.OrderFilter {
	return repository.OrderFilter{
		Status: c.Query("status"),
		Date:   c.Query("date"),
		Search: c.Query("q"),
	}
}

// ListOrders returns paginated orders with status counts
// @Summary      List orders
// @Tags         orders
// @Produce      json
// @Param        page    query     int     false  "Page number (default: 1)"
// @Param        limit   query     int     false  "Items per page (default: 20)"
// @Param        status  query     string  false  "Filter by status"
// @Param        date    query     string  false  "Filter by creation date (YYYY-MM-DD)"
// @Param        q       query     string  false  "Search customer name/phone, TTN, city"
// @Success      200     {object}  response.Response
// @Router       /api/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	params := pagination.Parse(c)
	filter := orderFilterFromQuery(c)
	filter.Page = params.Page
	filter.Limit = params.Limit

	result, err := h.orderService.ListOrders(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, result, params.Page, params.Limit, result.Total))
}

// GetOrder returns an order with items and derived financials
// @Summary      Get order
// @Tags         orders
// @Produce      json
// @Param        id  path  string  true  "Order ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// CreateOrder creates an order with its items, reserving stock atomically
// @Summary      Create order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateOrderRequest  true  "Order payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// UpdateOrder updates order fields and line items. Rejected with 409 while
// the order is canceled/returned; use the status endpoint instead.
// @Summary      Update order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id       path  string                      true  "Order ID"
// @Param        payload  body  service.UpdateOrderRequest  true  "Update payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/orders/{id} [put]
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	var req service.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.UpdateOrder(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// UpdateOrderStatus transitions an order between statuses, reconciling stock
// @Summary      Update order status
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id       path  string                            true  "Order ID"
// @Param        payload  body  service.UpdateOrderStatusRequest  true  "Status payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/orders/{id}/status [patch]
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	var req service.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// ExportOrders streams the filtered order listing as CSV
// @Summary      Export orders to CSV
// @Tags         orders
// @Produce      text/csv
// @Param        status  query  string  false  "Filter by status"
// @Param        date    query  string  false  "Filter by creation date (YYYY-MM-DD)"
// @Param        q       query  string  false  "Search customer name/phone, TTN, city"
// @Success      200  {string}  string  "CSV file"
// @Router       /api/orders/export [get]
func (h *OrderHandler) ExportOrders(c *gin.Context) {
	filter := orderFilterFromQuery(c)

	filename, data, err := h.exportService.ExportOrders(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}
