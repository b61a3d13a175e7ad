package service

import (
	"context"
	"encoding/json"
	"fmt"

	"orderdesk/internal/model"
	"orderdesk/internal/repository"
	ws "orderdesk/internal/websocket"

	"github.com/google/uuid"
)

// StockService is the inventory reconciler. Every order-item mutation and
// every active/inactive status flip funnels through one of these methods so
// a product's stock always equals its quantity committed to active orders.
//
// All methods must run inside a transaction (repository.TransactionManager):
// they lock the product row, validate against the locked value and write the
// new stock as one unit. Items on inactive orders are frozen and produce no
// stock effect.
type StockService interface {
	// ReserveItem applies the item-create rule and returns the product so
	// the caller can freeze its selling price on the line.
	ReserveItem(ctx context.Context, orderStatus string, productID uuid.UUID, quantity int) (*model.Product, error)

	// AdjustItemQuantity applies the same-product quantity-change rule:
	// the old reservation is given back before the new one is checked.
	AdjustItemQuantity(ctx context.Context, orderStatus string, productID uuid.UUID, oldQty, newQty int) error

	// ReassignItem moves a reservation between products. The new product is
	// checked against its own stock alone; the old product's return cannot
	// fail. Returns the new product for price defaulting.
	ReassignItem(ctx context.Context, orderStatus string, oldProductID uuid.UUID, oldQty int, newProductID uuid.UUID, newQty int) (*model.Product, error)

	// ReleaseItem applies the item-delete rule. Removing a reservation
	// always succeeds.
	ReleaseItem(ctx context.Context, orderStatus string, productID uuid.UUID, quantity int) error

	// ReleaseOrder returns every item's quantity to stock (active -> inactive).
	ReleaseOrder(ctx context.Context, order *model.Order) error

	// ReserveOrder re-deducts every item at its present quantity
	// (inactive -> active). Fails atomically if any product falls short.
	ReserveOrder(ctx context.Context, order *model.Order) error

	// FlushStockEvents delivers the events staged on ctx to the hub. Call
	// only after the enclosing transaction has committed; a rolled-back
	// unit of work simply never flushes.
	FlushStockEvents(ctx context.Context)
}

type stockEventsKey struct{}

type stockEventStage struct {
	payloads [][]byte
}

// StageStockEvents returns a context that holds stock events back until
// FlushStockEvents, so subscribers never see stock that was rolled back.
func StageStockEvents(ctx context.Context) context.Context {
	return context.WithValue(ctx, stockEventsKey{}, &stockEventStage{})
}

type stockService struct {
	productRepo repository.ProductRepository
	hub         *ws.Hub
}

func NewStockService(productRepo repository.ProductRepository, hub *ws.Hub) StockService {
	return &stockService{productRepo: productRepo, hub: hub}
}

func (s *stockService) ReserveItem(ctx context.Context, orderStatus string, productID uuid.UUID, quantity int) (*model.Product, error) {
	if model.IsInactiveStatus(orderStatus) {
		// Informational line on a canceled/returned order: no reservation.
		return s.productRepo.FindByID(ctx, productID)
	}

	product, err := s.productRepo.FindByIDForUpdate(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > product.Stock {
		return nil, &InsufficientStockError{
			ProductName: product.Name,
			Available:   product.Stock,
			Requested:   quantity,
		}
	}

	product.Stock -= quantity
	if err := s.productRepo.UpdateStock(ctx, product.ID, product.Stock); err != nil {
		return nil, fmt.Errorf("failed to deduct stock: %w", err)
	}
	s.publishStock(ctx, product)
	return product, nil
}

func (s *stockService) AdjustItemQuantity(ctx context.Context, orderStatus string, productID uuid.UUID, oldQty, newQty int) error {
	if model.IsInactiveStatus(orderStatus) {
		return nil
	}

	product, err := s.productRepo.FindByIDForUpdate(ctx, productID)
	if err != nil {
		return err
	}

	available := product.Stock + oldQty
	if newQty > available {
		return &InsufficientStockError{
			ProductName: product.Name,
			Available:   available,
			Requested:   newQty,
		}
	}

	// Net delta in one write; no intermediate "returned then re-deducted"
	// state is ever persisted.
	product.Stock = available - newQty
	if err := s.productRepo.UpdateStock(ctx, product.ID, product.Stock); err != nil {
		return fmt.Errorf("failed to adjust stock: %w", err)
	}
	s.publishStock(ctx, product)
	return nil
}

func (s *stockService) ReassignItem(ctx context.Context, orderStatus string, oldProductID uuid.UUID, oldQty int, newProductID uuid.UUID, newQty int) (*model.Product, error) {
	if model.IsInactiveStatus(orderStatus) {
		return s.productRepo.FindByID(ctx, newProductID)
	}

	// Lock both rows before writing either so the check and both writes
	// commit or roll back together.
	oldProduct, err := s.productRepo.FindByIDForUpdate(ctx, oldProductID)
	if err != nil {
		return nil, err
	}
	newProduct, err := s.productRepo.FindByIDForUpdate(ctx, newProductID)
	if err != nil {
		return nil, err
	}

	// Different SKUs: the new product is checked against its own stock,
	// not combined with what the old product gets back.
	if newQty > newProduct.Stock {
		return nil, &InsufficientStockError{
			ProductName: newProduct.Name,
			Available:   newProduct.Stock,
			Requested:   newQty,
		}
	}

	oldProduct.Stock += oldQty
	if err := s.productRepo.UpdateStock(ctx, oldProduct.ID, oldProduct.Stock); err != nil {
		return nil, fmt.Errorf("failed to return stock: %w", err)
	}
	newProduct.Stock -= newQty
	if err := s.productRepo.UpdateStock(ctx, newProduct.ID, newProduct.Stock); err != nil {
		return nil, fmt.Errorf("failed to deduct stock: %w", err)
	}
	s.publishStock(ctx, oldProduct)
	s.publishStock(ctx, newProduct)
	return newProduct, nil
}

func (s *stockService) ReleaseItem(ctx context.Context, orderStatus string, productID uuid.UUID, quantity int) error {
	if model.IsInactiveStatus(orderStatus) {
		return nil
	}

	product, err := s.productRepo.FindByIDForUpdate(ctx, productID)
	if err != nil {
		return err
	}
	product.Stock += quantity
	if err := s.productRepo.UpdateStock(ctx, product.ID, product.Stock); err != nil {
		return fmt.Errorf("failed to return stock: %w", err)
	}
	s.publishStock(ctx, product)
	return nil
}

func (s *stockService) ReleaseOrder(ctx context.Context, order *model.Order) error {
	for i := range order.Items {
		item := &order.Items[i]
		product, err := s.productRepo.FindByIDForUpdate(ctx, item.ProductID)
		if err != nil {
			return err
		}
		product.Stock += item.Quantity
		if err := s.productRepo.UpdateStock(ctx, product.ID, product.Stock); err != nil {
			return fmt.Errorf("failed to return stock: %w", err)
		}
		s.publishStock(ctx, product)
	}
	return nil
}

func (s *stockService) ReserveOrder(ctx context.Context, order *model.Order) error {
	// Reactivation reconciles against present-day stock and present-day
	// item quantities, not the quantities at cancellation time.
	for i := range order.Items {
		item := &order.Items[i]
		product, err := s.productRepo.FindByIDForUpdate(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if item.Quantity > product.Stock {
			return &InsufficientStockError{
				ProductName: product.Name,
				Available:   product.Stock,
				Requested:   item.Quantity,
			}
		}
		product.Stock -= item.Quantity
		if err := s.productRepo.UpdateStock(ctx, product.ID, product.Stock); err != nil {
			return fmt.Errorf("failed to deduct stock: %w", err)
		}
		s.publishStock(ctx, product)
	}
	return nil
}

// StockEvent is the websocket payload broadcast after stock adjustments.
type StockEvent struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

func (s *stockService) publishStock(ctx context.Context, product *model.Product) {
	if s.hub == nil {
		return
	}
	event := "stock.changed"
	if product.IsLowStock() {
		event = "stock.low"
	}
	payload, err := json.Marshal(StockEvent{
		Event: event,
		Data: map[string]interface{}{
			"product_id": product.ID.String(),
			"sku":        product.SKU,
			"name":       product.Name,
			"stock":      product.Stock,
		},
	})
	if err != nil {
		return
	}
	if stage, ok := ctx.Value(stockEventsKey{}).(*stockEventStage); ok {
		stage.payloads = append(stage.payloads, payload)
		return
	}
	s.hub.Broadcast <- payload
}

func (s *stockService) FlushStockEvents(ctx context.Context) {
	if s.hub == nil {
		return
	}
	stage, ok := ctx.Value(stockEventsKey{}).(*stockEventStage)
	if !ok {
		return
	}
	for _, payload := range stage.payloads {
		s.hub.Broadcast <- payload
	}
	stage.payloads = nil
}
