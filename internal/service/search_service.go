package service

import (
	"context"
	"fmt"
	"strings"

	"orderdesk/internal/model"
	"orderdesk/internal/repository"
)

// Search behavior constants.
const (
	SearchMinQueryLength = 2
	SearchResultLimit    = 5
)

// SearchResult bundles up to SearchResultLimit matches per entity.
type SearchResult struct {
	Query     string            `json:"query"`
	Orders    []OrderResponse   `json:"orders"`
	Customers []model.Customer  `json:"customers"`
	Products  []ProductResponse `json:"products"`
}

type SearchService interface {
	Search(ctx context.Context, query string) (SearchResult, error)
}

type searchService struct {
	orderRepo    repository.OrderRepository
	customerRepo repository.CustomerRepository
	productRepo  repository.ProductRepository
}

func NewSearchService(
	orderRepo repository.OrderRepository,
	customerRepo repository.CustomerRepository,
	productRepo repository.ProductRepository,
) SearchService {
	return &searchService{
		orderRepo:    orderRepo,
		customerRepo: customerRepo,
		productRepo:  productRepo,
	}
}

func (s *searchService) Search(ctx context.Context, query string) (SearchResult, error) {
	query = strings.TrimSpace(query)
	result := SearchResult{
		Query:     query,
		Orders:    []OrderResponse{},
		Customers: []model.Customer{},
		Products:  []ProductResponse{},
	}

	// Queries under the minimum return empty sets, not errors.
	if len([]rune(query)) < SearchMinQueryLength {
		return result, nil
	}

	orders, err := s.orderRepo.Search(ctx, query, SearchResultLimit)
	if err != nil {
		return result, fmt.Errorf("order search failed: %w", err)
	}
	for i := range orders {
		result.Orders = append(result.Orders, toOrderResponse(&orders[i]))
	}

	customers, err := s.customerRepo.Search(ctx, query, SearchResultLimit)
	if err != nil {
		return result, fmt.Errorf("customer search failed: %w", err)
	}
	result.Customers = customers

	products, err := s.productRepo.Search(ctx, query, SearchResultLimit)
	if err != nil {
		return result, fmt.Errorf("product search failed: %w", err)
	}
	for i := range products {
		result.Products = append(result.Products, toProductResponse(&products[i]))
	}

	return result, nil
}
