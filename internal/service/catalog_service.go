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
type ProductRequest struct {
	Name          string          `json:"name" binding:"required"`
	SKU           string          `json:"sku" binding:"required"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	Stock         int             `json:"stock"`
}

type ProductResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	SKU           string `json:"sku"`
	PurchasePrice string `json:"purchase_price"`
	SellingPrice  string `json:"selling_price"`
	Stock         int    `json:"stock"`
	ProfitMargin  string `json:"profit_margin"`
	LowStock      bool   `json:"low_stock"`
}

type CatalogService interface {
	ListProducts(ctx context.Context, search, stockFilter string, page, limit int) ([]ProductResponse, int64, error)
	GetProduct(ctx context.Context, id string) (ProductResponse, error)
	CreateProduct(ctx context.Context, req ProductRequest) (ProductResponse, error)
	UpdateProduct(ctx context.Context, id string, req ProductRequest) (ProductResponse, error)
	DeleteProduct(ctx context.Context, id string) error
}

type catalogService struct {
	productRepo repository.ProductRepository
	txManager   repository.TransactionManager
}

func NewCatalogService(productRepo repository.ProductRepository, txManager repository.TransactionManager) CatalogService {
	return &catalogService{productRepo: productRepo, txManager: txManager}
}

func (s *catalogService) ListProducts(ctx context.Context, search, stockFilter string, page, limit int) ([]ProductResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	products, total, err := s.productRepo.List(ctx, search, stockFilter, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]ProductResponse, 0, len(products))
	for i := range products {
		res = append(res, toProductResponse(&products[i]))
	}
	return res, total, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id string) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, &ValidationError{Field: "id", Message: "invalid product id"}
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductResponse{}, fmt.Errorf("product: %w", ErrNotFound)
		}
		return ProductResponse{}, fmt.Errorf("database error: %w", err)
	}
	return toProductResponse(product), nil
}

func (s *catalogService) CreateProduct(ctx context.Context, req ProductRequest) (ProductResponse, error) {
	if err := validateProductRequest(req); err != nil {
		return ProductResponse{}, err
	}
	if _, err := s.productRepo.FindBySKU(ctx, req.SKU); err == nil {
		return ProductResponse{}, &ValidationError{Field: "sku", Message: "a product with this SKU already exists"}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return ProductResponse{}, fmt.Errorf("database error: %w", err)
	}

	product := model.Product{
		Name:          req.Name,
		SKU:           req.SKU,
		PurchasePrice: req.PurchasePrice,
		SellingPrice:  req.SellingPrice,
		Stock:         req.Stock,
	}
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		return s.productRepo.Create(txCtx, &product)
	})
	if err != nil {
		return ProductResponse{}, fmt.Errorf("failed to create product: %w", err)
	}
	return toProductResponse(&product), nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, id string, req ProductRequest) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, &ValidationError{Field: "id", Message: "invalid product id"}
	}
	if err := validateProductRequest(req); err != nil {
		return ProductResponse{}, err
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductResponse{}, fmt.Errorf("product: %w", ErrNotFound)
		}
		return ProductResponse{}, fmt.Errorf("database error: %w", err)
	}

	if req.SKU != product.SKU {
		if _, err := s.productRepo.FindBySKU(ctx, req.SKU); err == nil {
			return ProductResponse{}, &ValidationError{Field: "sku", Message: "a product with this SKU already exists"}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductResponse{}, fmt.Errorf("database error: %w", err)
		}
	}

	product.Name = req.Name
	product.SKU = req.SKU
	product.PurchasePrice = req.PurchasePrice
	product.SellingPrice = req.SellingPrice
	product.Stock = req.Stock

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		return s.productRepo.Update(txCtx, product)
	})
	if err != nil {
		return ProductResponse{}, fmt.Errorf("failed to update product: %w", err)
	}
	return toProductResponse(product), nil
}

// DeleteProduct enforces the protected-reference rule: a product that has
// ever been ordered stays.
func (s *catalogService) DeleteProduct(ctx context.Context, id string) error {
	productID, err := uuid.Parse(id)
	if err != nil {
		return &ValidationError{Field: "id", Message: "invalid product id"}
	}
	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("product: %w", ErrNotFound)
		}
		return fmt.Errorf("database error: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		count, err := s.productRepo.CountOrderItems(txCtx, productID)
		if err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		if count > 0 {
			return ErrProtectedReference
		}
		return s.productRepo.Delete(txCtx, productID)
	})
}

func validateProductRequest(req ProductRequest) error {
	if req.PurchasePrice.IsNegative() {
		return &ValidationError{Field: "purchase_price", Message: "purchase price cannot be negative"}
	}
	if req.SellingPrice.IsNegative() {
		return &ValidationError{Field: "selling_price", Message: "selling price cannot be negative"}
	}
	if req.Stock < 0 {
		return &ValidationError{Field: "stock", Message: "stock cannot be negative"}
	}
	return nil
}

func toProductResponse(p *model.Product) ProductResponse {
	return ProductResponse{
		ID:            p.ID.String(),
		Name:          p.Name,
		SKU:           p.SKU,
		PurchasePrice: p.PurchasePrice.StringFixed(2),
		SellingPrice:  p.SellingPrice.StringFixed(2),
		Stock:         p.Stock,
		ProfitMargin:  p.ProfitMargin().StringFixed(2),
		LowStock:      p.IsLowStock(),
	}
}
