package handler

import (
	"net/http"

	"orderdesk/internal/service"
	"orderdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type SearchHandler struct {
	searchService service.SearchService
}

func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

func (h *SearchHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/search", h.Search)
}

// Search runs a global lookup across orders, customers and products
// @Summary      Global search
// @Tags         search
// @Produce      json
// @Param        q  query  string  true  "Query (min 2 characters)"
// @Success      200  {object}  response.Response
// @Router       /api/search [get]
func (h *SearchHandler) Search(c *gin.Context) {
	result, err := h.searchService.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
