package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"orderdesk/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TopProduct ranks a product by total quantity sold.
type TopProduct struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	ProductSKU  string `json:"product_sku"`
	TotalSold   int64  `json:"total_sold"`
}

// DashboardResponse carries the landing-page KPIs. Reads are plain
// snapshots, not transactionally isolated from concurrent writes.
type DashboardResponse struct {
	OrdersToday      int64             `json:"orders_today"`
	OrdersChange     float64           `json:"orders_change"`
	RevenueThisMonth string            `json:"revenue_this_month"`
	RevenueChange    float64           `json:"revenue_change"`
	NewOrders        int64             `json:"new_orders"`
	LowStockCount    int64             `json:"low_stock_count"`
	LowStockProducts []ProductResponse `json:"low_stock_products"`
	RecentOrders     []OrderResponse   `json:"recent_orders"`
	TopProducts      []TopProduct      `json:"top_products"`
}

type DashboardService interface {
	GetDashboard(ctx context.Context) (DashboardResponse, error)
}

type dashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) DashboardService {
	return &dashboardService{db: db}
}

func (s *dashboardService) GetDashboard(ctx context.Context) (DashboardResponse, error) {
	var res DashboardResponse

	now := time.Now()
	today := now.Format("2006-01-02")
	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	lastMonthStart := monthStart.AddDate(0, -1, 0)
	lastMonthEnd := monthStart.AddDate(0, 0, -1)

	inactive := inactiveStatusList()

	// Active orders placed today, compared against yesterday.
	var ordersToday, ordersYesterday int64
	if err := s.db.WithContext(ctx).Model(&model.Order{}).
		Where("DATE(created_at) = ? AND status NOT IN ?", today, inactive).
		Count(&ordersToday).Error; err != nil {
		return DashboardResponse{}, fmt.Errorf("failed to count today's orders: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&model.Order{}).
		Where("DATE(created_at) = ? AND status NOT IN ?", yesterday, inactive).
		Count(&ordersYesterday).Error; err != nil {
		return DashboardResponse{}, fmt.Errorf("failed to count yesterday's orders: %w", err)
	}
	res.OrdersToday = ordersToday
	res.OrdersChange = percentChangeInt(ordersToday, ordersYesterday)

	// Revenue counts completed orders only.
	revenueThisMonth, err := s.revenueBetween(ctx, monthStart.Format("2006-01-02"), today)
	if err != nil {
		return DashboardResponse{}, err
	}
	revenueLastMonth, err := s.revenueBetween(ctx, lastMonthStart.Format("2006-01-02"), lastMonthEnd.Format("2006-01-02"))
	if err != nil {
		return DashboardResponse{}, err
	}
	res.RevenueThisMonth = revenueThisMonth.StringFixed(2)
	res.RevenueChange = percentChangeDecimal(revenueThisMonth, revenueLastMonth)

	if err := s.db.WithContext(ctx).Model(&model.Order{}).
		Where("status = ?", model.StatusNew).
		Count(&res.NewOrders).Error; err != nil {
		return DashboardResponse{}, fmt.Errorf("failed to count new orders: %w", err)
	}

	var lowStock []model.Product
	if err := s.db.WithContext(ctx).
		Where("stock < ?", model.LowStockThreshold).
		Order("stock asc").
		Find(&lowStock).Error; err != nil {
		return DashboardResponse{}, fmt.Errorf("failed to load low-stock products: %w", err)
	}
	res.LowStockCount = int64(len(lowStock))
	res.LowStockProducts = make([]ProductResponse, 0, len(lowStock))
	for i := range lowStock {
		res.LowStockProducts = append(res.LowStockProducts, toProductResponse(&lowStock[i]))
	}

	var recent []model.Order
	if err := s.db.WithContext(ctx).
		Preload("Customer").
		Preload("Items").
		Preload("Items.Product").
		Order("created_at DESC").
		Limit(5).
		Find(&recent).Error; err != nil {
		return DashboardResponse{}, fmt.Errorf("failed to load recent orders: %w", err)
	}
	res.RecentOrders = make([]OrderResponse, 0, len(recent))
	for i := range recent {
		res.RecentOrders = append(res.RecentOrders, toOrderResponse(&recent[i]))
	}

	var top []TopProduct
	if err := s.db.WithContext(ctx).Table("order_items").
		Select("products.id as product_id, products.name as product_name, products.sku as product_sku, SUM(order_items.quantity) as total_sold").
		Joins("JOIN products ON products.id = order_items.product_id").
		Group("products.id, products.name, products.sku").
		Order("total_sold DESC").
		Limit(5).
		Scan(&top).Error; err != nil {
		return DashboardResponse{}, fmt.Errorf("failed to load top products: %w", err)
	}
	res.TopProducts = top

	return res, nil
}

// revenueBetween sums item totals of completed orders created within the
// inclusive date range. Summed in SQL and scanned as text to keep the
// arithmetic out of binary floats.
func (s *dashboardService) revenueBetween(ctx context.Context, fromDate, toDate string) (decimal.Decimal, error) {
	var row struct {
		Value string
	}
	if err := s.db.WithContext(ctx).Table("order_items").
		Select("COALESCE(CAST(SUM(order_items.quantity * order_items.price) AS TEXT), '0') as value").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status = ? AND DATE(orders.created_at) >= ? AND DATE(orders.created_at) <= ?",
			model.StatusCompleted, fromDate, toDate).
		Scan(&row).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum revenue: %w", err)
	}

	value, err := decimal.NewFromString(row.Value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse revenue total: %w", err)
	}
	return value, nil
}

func inactiveStatusList() []string {
	statuses := make([]string, 0, len(model.InactiveStatuses))
	for _, s := range model.OrderStatuses {
		if model.InactiveStatuses[s] {
			statuses = append(statuses, s)
		}
	}
	return statuses
}

func percentChangeInt(current, previous int64) float64 {
	if previous > 0 {
		return round1(float64(current-previous) / float64(previous) * 100)
	}
	if current > 0 {
		return 100
	}
	return 0
}

func percentChangeDecimal(current, previous decimal.Decimal) float64 {
	if previous.IsPositive() {
		change, _ := current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(1).Float64()
		return change
	}
	if current.IsPositive() {
		return 100
	}
	return 0
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
