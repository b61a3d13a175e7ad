package repository

import (
	"context"

	"orderdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CustomerWithOrderCount decorates a customer row with its order tally for listings.
type CustomerWithOrderCount struct {
	model.Customer
	OrdersCount int64 `json:"orders_count"`
}

type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) error
	Update(ctx context.Context, customer *model.Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	FindByPhone(ctx context.Context, phone string) (*model.Customer, error)
	PhoneExists(ctx context.Context, phone string, excludeID *uuid.UUID) (bool, error)
	List(ctx context.Context, search string, page, limit int) ([]CustomerWithOrderCount, int64, error)
	Search(ctx context.Context, query string, limit int) ([]model.Customer, error)
	CountOrders(ctx context.Context, customerID uuid.UUID) (int64, error)
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, customer *model.Customer) error {
	return GetDB(ctx, r.db).Create(customer).Error
}

func (r *customerRepository) Update(ctx context.Context, customer *model.Customer) error {
	return GetDB(ctx, r.db).Save(customer).Error
}

func (r *customerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Customer{}).Error
}

func (r *customerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var customer model.Customer
	if err := GetDB(ctx, r.db).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// FindByPhone matches the phone exactly. Returns gorm.ErrRecordNotFound when
// no customer owns the number.
func (r *customerRepository) FindByPhone(ctx context.Context, phone string) (*model.Customer, error) {
	var customer model.Customer
	if err := GetDB(ctx, r.db).Where("phone = ?", phone).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// PhoneExists reports whether another customer already owns the phone.
// excludeID lets an update re-save its own unchanged number.
func (r *customerRepository) PhoneExists(ctx context.Context, phone string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	db := GetDB(ctx, r.db).Model(&model.Customer{}).Where("phone = ?", phone)
	if excludeID != nil {
		db = db.Where("id <> ?", *excludeID)
	}
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *customerRepository) List(ctx context.Context, search string, page, limit int) ([]CustomerWithOrderCount, int64, error) {
	var customers []CustomerWithOrderCount
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Customer{})
	if search != "" {
		db = db.Where("full_name ILIKE ? OR phone ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Select("customers.*, (SELECT COUNT(*) FROM orders WHERE orders.customer_id = customers.id) AS orders_count").
		Order("created_at desc").
		Offset(offset).Limit(limit).
		Scan(&customers).Error; err != nil {
		return nil, 0, err
	}

	return customers, total, nil
}

func (r *customerRepository) Search(ctx context.Context, query string, limit int) ([]model.Customer, error) {
	var customers []model.Customer
	if err := GetDB(ctx, r.db).
		Where("full_name ILIKE ? OR phone ILIKE ?", "%"+query+"%", "%"+query+"%").
		Order("created_at desc").
		Limit(limit).
		Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

// CountOrders backs the protected-delete rule for customers.
func (r *customerRepository) CountOrders(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Order{}).
		Where("customer_id = ?", customerID).
		Count(&count).Error
	return count, err
}
