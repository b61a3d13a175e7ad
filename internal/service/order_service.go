package service

import (
	"context"
	"errors"
	"fmt"

	"orderdesk/internal/model"
	"orderdesk/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs

// NewCustomerRequest carries the data to get-or-create a customer by phone
// when no existing customer is selected for an order.
type NewCustomerRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Source   string `json:"source"`
}

// OrderItemRequest is one line of a create/update payload. ID is set when
// editing an existing line; Delete removes it. Price left empty freezes the
// product's current selling price.
type OrderItemRequest struct {
	ID        string           `json:"id"`
	ProductID string           `json:"product_id" binding:"required"`
	Quantity  int              `json:"quantity" binding:"required,gt=0"`
	Price     *decimal.Decimal `json:"price"`
	Delete    bool             `json:"delete"`
}

type CreateOrderRequest struct {
	CustomerID      string              `json:"customer_id"`
	NewCustomer     *NewCustomerRequest `json:"new_customer"`
	Status          string              `json:"status"`
	DeliveryService string              `json:"delivery_service"`
	City            string              `json:"city" binding:"required"`
	Warehouse       string              `json:"warehouse"`
	TTN             string              `json:"ttn"`
	PaymentType     string              `json:"payment_type"`
	Prepayment      decimal.Decimal     `json:"prepayment"`
	SellerExpenses  decimal.Decimal     `json:"seller_expenses"`
	Notes           string              `json:"notes"`
	Items           []OrderItemRequest  `json:"items" binding:"required,min=1,dive"`
}

type UpdateOrderRequest struct {
	CustomerID      string             `json:"customer_id"`
	DeliveryService string             `json:"delivery_service"`
	City            string             `json:"city" binding:"required"`
	Warehouse       string             `json:"warehouse"`
	TTN             string             `json:"ttn"`
	PaymentType     string             `json:"payment_type"`
	Prepayment      decimal.Decimal    `json:"prepayment"`
	SellerExpenses  decimal.Decimal    `json:"seller_expenses"`
	Notes           string             `json:"notes"`
	Items           []OrderItemRequest `json:"items" binding:"dive"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	TTN    string `json:"ttn"`
}

type OrderItemResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	ProductSKU  string `json:"product_sku"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
	Cost        string `json:"cost"`
}

type OrderResponse struct {
	ID              string              `json:"id"`
	Customer        *model.Customer     `json:"customer,omitempty"`
	Status          string              `json:"status"`
	DeliveryService string              `json:"delivery_service"`
	City            string              `json:"city"`
	Warehouse       string              `json:"warehouse,omitempty"`
	TTN             string              `json:"ttn,omitempty"`
	PaymentType     string              `json:"payment_type"`
	Prepayment      string              `json:"prepayment"`
	SellerExpenses  string              `json:"seller_expenses"`
	Notes           string              `json:"notes,omitempty"`
	Items           []OrderItemResponse `json:"items"`
	TotalCost       string              `json:"total_cost"`
	AmountDue       string              `json:"amount_due"`
	Profit          string              `json:"profit"`
	CreatedAt       string              `json:"created_at"`
	UpdatedAt       string              `json:"updated_at"`
}

type OrderListResult struct {
	Orders       []OrderResponse  `json:"orders"`
	Total        int64            `json:"total"`
	StatusCounts map[string]int64 `json:"status_counts"`
}

type OrderService interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (OrderResponse, error)
	UpdateOrder(ctx context.Context, id string, req UpdateOrderRequest) (OrderResponse, error)
	UpdateOrderStatus(ctx context.Context, id string, req UpdateOrderStatusRequest) (OrderResponse, error)
	GetOrder(ctx context.Context, id string) (OrderResponse, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter) (OrderListResult, error)
}

type orderService struct {
	orderRepo    repository.OrderRepository
	customerRepo repository.CustomerRepository
	stockService StockService
	txManager    repository.TransactionManager
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	customerRepo repository.CustomerRepository,
	stockService StockService,
	txManager repository.TransactionManager,
) OrderService {
	return &orderService{
		orderRepo:    orderRepo,
		customerRepo: customerRepo,
		stockService: stockService,
		txManager:    txManager,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (OrderResponse, error) {
	status := req.Status
	if status == "" {
		status = model.StatusNew
	}
	if !model.IsValidStatus(status) {
		return OrderResponse{}, &ValidationError{Field: "status", Message: "unknown status: " + status}
	}
	// An order must be born active.
	if model.IsInactiveStatus(status) {
		return OrderResponse{}, &ValidationError{
			Field:   "status",
			Message: "an order cannot be created as canceled or returned",
		}
	}
	if len(req.Items) == 0 {
		return OrderResponse{}, &ValidationError{Field: "items", Message: "order needs at least one item"}
	}

	ctx = StageStockEvents(ctx)
	var orderID uuid.UUID
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		customer, err := s.resolveCustomer(txCtx, req.CustomerID, req.NewCustomer)
		if err != nil {
			return err
		}

		order := model.Order{
			CustomerID:      customer.ID,
			Status:          status,
			DeliveryService: defaultString(req.DeliveryService, model.DeliveryNovaPoshta),
			City:            req.City,
			Warehouse:       req.Warehouse,
			TTN:             req.TTN,
			PaymentType:     defaultString(req.PaymentType, model.PaymentCOD),
			Prepayment:      req.Prepayment,
			SellerExpenses:  req.SellerExpenses,
			Notes:           req.Notes,
		}
		if err := s.orderRepo.Create(txCtx, &order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		orderID = order.ID

		for _, itemReq := range req.Items {
			if _, err := s.createItem(txCtx, &order, itemReq); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return OrderResponse{}, err
	}
	s.stockService.FlushStockEvents(ctx)

	return s.GetOrder(ctx, orderID.String())
}

func (s *orderService) UpdateOrder(ctx context.Context, id string, req UpdateOrderRequest) (OrderResponse, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return OrderResponse{}, &ValidationError{Field: "id", Message: "invalid order id"}
	}

	ctx = StageStockEvents(ctx)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDWithItems(txCtx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("order: %w", ErrNotFound)
			}
			return fmt.Errorf("database error: %w", err)
		}

		// Item checks below read this persisted status, never a pending one.
		if order.IsInactive() {
			return ErrOrderInactive
		}

		if req.CustomerID != "" {
			customerID, parseErr := uuid.Parse(req.CustomerID)
			if parseErr != nil {
				return &ValidationError{Field: "customer_id", Message: "invalid customer id"}
			}
			if _, findErr := s.customerRepo.FindByID(txCtx, customerID); findErr != nil {
				if errors.Is(findErr, gorm.ErrRecordNotFound) {
					return &ValidationError{Field: "customer_id", Message: "customer not found"}
				}
				return fmt.Errorf("database error: %w", findErr)
			}
			order.CustomerID = customerID
		}

		order.DeliveryService = defaultString(req.DeliveryService, order.DeliveryService)
		order.City = req.City
		order.Warehouse = req.Warehouse
		order.TTN = req.TTN
		order.PaymentType = defaultString(req.PaymentType, order.PaymentType)
		order.Prepayment = req.Prepayment
		order.SellerExpenses = req.SellerExpenses
		order.Notes = req.Notes

		if err := s.orderRepo.Update(txCtx, order); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}

		return s.applyItemChanges(txCtx, order, req.Items)
	})
	if err != nil {
		return OrderResponse{}, err
	}
	s.stockService.FlushStockEvents(ctx)

	return s.GetOrder(ctx, id)
}

// UpdateOrderStatus is the only operation that moves orders between the
// active and inactive sets, so the leaving/entering reconciliation stays in
// one auditable place.
func (s *orderService) UpdateOrderStatus(ctx context.Context, id string, req UpdateOrderStatusRequest) (OrderResponse, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return OrderResponse{}, &ValidationError{Field: "id", Message: "invalid order id"}
	}
	if !model.IsValidStatus(req.Status) {
		return OrderResponse{}, &ValidationError{Field: "status", Message: "unknown status: " + req.Status}
	}

	ctx = StageStockEvents(ctx)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDWithItems(txCtx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("order: %w", ErrNotFound)
			}
			return fmt.Errorf("database error: %w", err)
		}

		wasInactive := order.IsInactive()
		willBeInactive := model.IsInactiveStatus(req.Status)

		switch {
		case !wasInactive && willBeInactive:
			if err := s.stockService.ReleaseOrder(txCtx, order); err != nil {
				return err
			}
		case wasInactive && !willBeInactive:
			if err := s.stockService.ReserveOrder(txCtx, order); err != nil {
				return err
			}
		}
		// Active -> active and inactive -> inactive carry no stock effect.

		return s.orderRepo.UpdateStatus(txCtx, orderID, req.Status, req.TTN)
	})
	if err != nil {
		return OrderResponse{}, err
	}
	s.stockService.FlushStockEvents(ctx)

	return s.GetOrder(ctx, id)
}

func (s *orderService) GetOrder(ctx context.Context, id string) (OrderResponse, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return OrderResponse{}, &ValidationError{Field: "id", Message: "invalid order id"}
	}
	order, err := s.orderRepo.FindByIDWithItems(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OrderResponse{}, fmt.Errorf("order: %w", ErrNotFound)
		}
		return OrderResponse{}, fmt.Errorf("database error: %w", err)
	}
	return toOrderResponse(order), nil
}

func (s *orderService) ListOrders(ctx context.Context, filter repository.OrderFilter) (OrderListResult, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	orders, total, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return OrderListResult{}, err
	}
	counts, err := s.orderRepo.StatusCounts(ctx)
	if err != nil {
		return OrderListResult{}, err
	}

	res := OrderListResult{
		Orders:       make([]OrderResponse, 0, len(orders)),
		Total:        total,
		StatusCounts: counts,
	}
	for i := range orders {
		res.Orders = append(res.Orders, toOrderResponse(&orders[i]))
	}
	return res, nil
}

// resolveCustomer attaches an existing customer, or gets-or-creates one by
// phone so repeat buyers never produce duplicate rows.
func (s *orderService) resolveCustomer(ctx context.Context, customerID string, newCustomer *NewCustomerRequest) (*model.Customer, error) {
	if customerID != "" {
		id, err := uuid.Parse(customerID)
		if err != nil {
			return nil, &ValidationError{Field: "customer_id", Message: "invalid customer id"}
		}
		customer, err := s.customerRepo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &ValidationError{Field: "customer_id", Message: "customer not found"}
			}
			return nil, fmt.Errorf("database error: %w", err)
		}
		return customer, nil
	}

	if newCustomer == nil || newCustomer.FullName == "" || newCustomer.Phone == "" {
		return nil, &ValidationError{
			Field:   "customer",
			Message: "select an existing customer or provide a name and phone for a new one",
		}
	}

	// Phone lookup wins over creating a duplicate.
	existing, err := s.customerRepo.FindByPhone(ctx, newCustomer.Phone)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	source := newCustomer.Source
	if source == "" {
		source = model.SourceOther
	}
	if !model.IsValidSource(source) {
		return nil, &ValidationError{Field: "source", Message: "unknown source: " + source}
	}
	customer := &model.Customer{
		FullName: newCustomer.FullName,
		Phone:    newCustomer.Phone,
		Source:   source,
	}
	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return customer, nil
}

func (s *orderService) createItem(ctx context.Context, order *model.Order, req OrderItemRequest) (*model.OrderItem, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, &ValidationError{Field: "product_id", Message: "invalid product id"}
	}
	if req.Quantity < 1 {
		return nil, &ValidationError{Field: "quantity", Message: "quantity must be at least 1"}
	}

	product, err := s.stockService.ReserveItem(ctx, order.Status, productID, req.Quantity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Field: "product_id", Message: "product not found"}
		}
		return nil, err
	}

	price := product.SellingPrice
	if req.Price != nil && req.Price.IsPositive() {
		price = *req.Price
	}
	item := &model.OrderItem{
		OrderID:   order.ID,
		ProductID: productID,
		Quantity:  req.Quantity,
		Price:     price,
	}
	if err := s.orderRepo.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create order item: %w", err)
	}
	return item, nil
}

// applyItemChanges routes every line mutation through the stock service:
// deletes release, product changes rebalance, quantity changes adjust, and
// new lines reserve. Runs inside the caller's transaction.
func (s *orderService) applyItemChanges(ctx context.Context, order *model.Order, items []OrderItemRequest) error {
	existing := make(map[uuid.UUID]*model.OrderItem, len(order.Items))
	for i := range order.Items {
		existing[order.Items[i].ID] = &order.Items[i]
	}
	remaining := len(order.Items)

	for _, req := range items {
		if req.ID == "" {
			if req.Delete {
				continue
			}
			if _, err := s.createItem(ctx, order, req); err != nil {
				return err
			}
			remaining++
			continue
		}

		itemID, err := uuid.Parse(req.ID)
		if err != nil {
			return &ValidationError{Field: "items", Message: "invalid item id"}
		}
		item, ok := existing[itemID]
		if !ok {
			return &ValidationError{Field: "items", Message: "item does not belong to this order"}
		}

		if req.Delete {
			if err := s.stockService.ReleaseItem(ctx, order.Status, item.ProductID, item.Quantity); err != nil {
				return err
			}
			if err := s.orderRepo.DeleteItem(ctx, item.ID); err != nil {
				return fmt.Errorf("failed to delete order item: %w", err)
			}
			remaining--
			continue
		}

		newProductID, err := uuid.Parse(req.ProductID)
		if err != nil {
			return &ValidationError{Field: "product_id", Message: "invalid product id"}
		}
		if req.Quantity < 1 {
			return &ValidationError{Field: "quantity", Message: "quantity must be at least 1"}
		}

		if newProductID != item.ProductID {
			// Reassignment: a combined product+quantity change also lands
			// here and settles both deltas in one go.
			newProduct, err := s.stockService.ReassignItem(ctx, order.Status, item.ProductID, item.Quantity, newProductID, req.Quantity)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &ValidationError{Field: "product_id", Message: "product not found"}
				}
				return err
			}
			item.ProductID = newProductID
			item.Quantity = req.Quantity
			if req.Price != nil && req.Price.IsPositive() {
				item.Price = *req.Price
			} else {
				item.Price = newProduct.SellingPrice
			}
		} else {
			if err := s.stockService.AdjustItemQuantity(ctx, order.Status, item.ProductID, item.Quantity, req.Quantity); err != nil {
				return err
			}
			item.Quantity = req.Quantity
			if req.Price != nil && req.Price.IsPositive() {
				item.Price = *req.Price
			}
		}

		if err := s.orderRepo.UpdateItem(ctx, item); err != nil {
			return fmt.Errorf("failed to update order item: %w", err)
		}
	}

	if remaining < 1 {
		return &ValidationError{Field: "items", Message: "order needs at least one item"}
	}
	return nil
}

func toOrderResponse(order *model.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	for i := range order.Items {
		item := &order.Items[i]
		res := OrderItemResponse{
			ID:        item.ID.String(),
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity,
			Price:     item.Price.StringFixed(2),
			Cost:      item.Cost().StringFixed(2),
		}
		if item.Product != nil {
			res.ProductName = item.Product.Name
			res.ProductSKU = item.Product.SKU
		}
		items = append(items, res)
	}

	return OrderResponse{
		ID:              order.ID.String(),
		Customer:        order.Customer,
		Status:          order.Status,
		DeliveryService: order.DeliveryService,
		City:            order.City,
		Warehouse:       order.Warehouse,
		TTN:             order.TTN,
		PaymentType:     order.PaymentType,
		Prepayment:      order.Prepayment.StringFixed(2),
		SellerExpenses:  order.SellerExpenses.StringFixed(2),
		Notes:           order.Notes,
		Items:           items,
		TotalCost:       order.TotalCost().StringFixed(2),
		AmountDue:       order.AmountDue().StringFixed(2),
		Profit:          order.Profit().StringFixed(2),
		CreatedAt:       order.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:       order.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
