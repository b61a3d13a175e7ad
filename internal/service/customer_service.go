package service

import (
	"context"
	"errors"
	"fmt"

	"orderdesk/internal/model"
	"orderdesk/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DTOs
type CustomerRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Email    string `json:"email"`
	Source   string `json:"source"`
	Notes    string `json:"notes"`
}

type CustomerService interface {
	ListCustomers(ctx context.Context, search string, page, limit int) ([]repository.CustomerWithOrderCount, int64, error)
	GetCustomer(ctx context.Context, id string) (*model.Customer, error)
	CreateCustomer(ctx context.Context, req CustomerRequest) (*model.Customer, error)
	UpdateCustomer(ctx context.Context, id string, req CustomerRequest) (*model.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
}

type customerService struct {
	customerRepo repository.CustomerRepository
	txManager    repository.TransactionManager
}

func NewCustomerService(customerRepo repository.CustomerRepository, txManager repository.TransactionManager) CustomerService {
	return &customerService{customerRepo: customerRepo, txManager: txManager}
}

func (s *customerService) ListCustomers(ctx context.Context, search string, page, limit int) ([]repository.CustomerWithOrderCount, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.customerRepo.List(ctx, search, page, limit)
}

func (s *customerService) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	customerID, err := uuid.Parse(id)
	if err != nil {
		return nil, &ValidationError{Field: "id", Message: "invalid customer id"}
	}
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("customer: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return customer, nil
}

func (s *customerService) CreateCustomer(ctx context.Context, req CustomerRequest) (*model.Customer, error) {
	if err := s.checkPhone(ctx, req.Phone, nil); err != nil {
		return nil, err
	}
	source := req.Source
	if source == "" {
		source = model.SourceOther
	}
	if !model.IsValidSource(source) {
		return nil, &ValidationError{Field: "source", Message: "unknown source: " + source}
	}

	customer := &model.Customer{
		FullName: req.FullName,
		Phone:    req.Phone,
		Email:    req.Email,
		Source:   source,
		Notes:    req.Notes,
	}
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		return s.customerRepo.Create(txCtx, customer)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return customer, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, id string, req CustomerRequest) (*model.Customer, error) {
	customerID, err := uuid.Parse(id)
	if err != nil {
		return nil, &ValidationError{Field: "id", Message: "invalid customer id"}
	}
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("customer: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	// Re-saving a customer with their own unchanged phone is allowed.
	if err := s.checkPhone(ctx, req.Phone, &customerID); err != nil {
		return nil, err
	}
	if req.Source != "" && !model.IsValidSource(req.Source) {
		return nil, &ValidationError{Field: "source", Message: "unknown source: " + req.Source}
	}

	customer.FullName = req.FullName
	customer.Phone = req.Phone
	customer.Email = req.Email
	if req.Source != "" {
		customer.Source = req.Source
	}
	customer.Notes = req.Notes

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		return s.customerRepo.Update(txCtx, customer)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}
	return customer, nil
}

// DeleteCustomer refuses to orphan orders: a customer with any order on
// record is protected.
func (s *customerService) DeleteCustomer(ctx context.Context, id string) error {
	customerID, err := uuid.Parse(id)
	if err != nil {
		return &ValidationError{Field: "id", Message: "invalid customer id"}
	}
	if _, err := s.customerRepo.FindByID(ctx, customerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("customer: %w", ErrNotFound)
		}
		return fmt.Errorf("database error: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		count, err := s.customerRepo.CountOrders(txCtx, customerID)
		if err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		if count > 0 {
			return ErrProtectedReference
		}
		return s.customerRepo.Delete(txCtx, customerID)
	})
}

func (s *customerService) checkPhone(ctx context.Context, phone string, excludeID *uuid.UUID) error {
	exists, err := s.customerRepo.PhoneExists(ctx, phone, excludeID)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if exists {
		return &ValidationError{Field: "phone", Message: "a customer with this phone already exists"}
	}
	return nil
}
