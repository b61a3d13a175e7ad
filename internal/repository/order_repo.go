package repository

import (
	"context"

	"orderdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderFilter narrows order listings and exports. Date is a calendar day in
// YYYY-MM-DD; Search matches customer name/phone, TTN and city.
type OrderFilter struct {
	Status string
	Date   string
	Search string
	Page   int
	Limit  int
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	Update(ctx context.Context, order *model.Order) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status, ttn string) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error)
	ListForExport(ctx context.Context, filter OrderFilter) ([]model.Order, error)
	Search(ctx context.Context, query string, limit int) ([]model.Order, error)
	StatusCounts(ctx context.Context) (map[string]int64, error)

	CreateItem(ctx context.Context, item *model.OrderItem) error
	UpdateItem(ctx context.Context, item *model.OrderItem) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
	FindItemByID(ctx context.Context, id uuid.UUID) (*model.OrderItem, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(order).Error
}

func (r *orderRepository) Update(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(order).Error
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status, ttn string) error {
	updates := map[string]interface{}{"status": status}
	if ttn != "" {
		updates["ttn"] = ttn
	}
	return GetDB(ctx, r.db).Model(&model.Order{}).Where("id = ?", id).Updates(updates).Error
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).
		Preload("Customer").
		Preload("Items").
		Preload("Items.Product").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func applyOrderFilter(db *gorm.DB, filter OrderFilter) *gorm.DB {
	db = db.Joins("JOIN customers ON customers.id = orders.customer_id")
	if filter.Status != "" {
		db = db.Where("orders.status = ?", filter.Status)
	}
	if filter.Date != "" {
		db = db.Where("DATE(orders.created_at) = ?", filter.Date)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		db = db.Where(
			"customers.full_name ILIKE ? OR customers.phone ILIKE ? OR orders.ttn ILIKE ? OR orders.city ILIKE ?",
			like, like, like, like,
		)
	}
	return db
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	db := applyOrderFilter(GetDB(ctx, r.db).Model(&model.Order{}), filter)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := db.
		Preload("Customer").
		Preload("Items").
		Preload("Items.Product").
		Order("orders.created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// ListForExport returns every order matching the filter, unpaginated,
// newest first to mirror the on-screen listing.
func (r *orderRepository) ListForExport(ctx context.Context, filter OrderFilter) ([]model.Order, error) {
	var orders []model.Order
	db := applyOrderFilter(GetDB(ctx, r.db).Model(&model.Order{}), filter)
	if err := db.
		Preload("Customer").
		Preload("Items").
		Order("orders.created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) Search(ctx context.Context, query string, limit int) ([]model.Order, error) {
	var orders []model.Order
	like := "%" + query + "%"
	if err := GetDB(ctx, r.db).Model(&model.Order{}).
		Joins("JOIN customers ON customers.id = orders.customer_id").
		Where(
			"customers.full_name ILIKE ? OR customers.phone ILIKE ? OR orders.ttn ILIKE ? OR orders.city ILIKE ?",
			like, like, like, like,
		).
		Preload("Customer").
		Order("orders.created_at DESC").
		Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) StatusCounts(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := GetDB(ctx, r.db).Model(&model.Order{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(model.OrderStatuses))
	for _, s := range model.OrderStatuses {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *orderRepository) CreateItem(ctx context.Context, item *model.OrderItem) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(item).Error
}

func (r *orderRepository) UpdateItem(ctx context.Context, item *model.OrderItem) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(item).Error
}

func (r *orderRepository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.OrderItem{}).Error
}

func (r *orderRepository) FindItemByID(ctx context.Context, id uuid.UUID) (*model.OrderItem, error) {
	var item model.OrderItem
	if err := GetDB(ctx, r.db).Preload("Product").First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}
