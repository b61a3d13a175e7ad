package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"orderdesk/internal/model"
	"orderdesk/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// memStore is a shared in-memory backing store for the repository fakes.
// The fake transaction manager snapshots it before running a unit of work
// and restores it on error, giving tests the same all-or-nothing contract
// the real GORM transaction provides.
type memStore struct {
	products  map[uuid.UUID]model.Product
	customers map[uuid.UUID]model.Customer
	orders    map[uuid.UUID]model.Order
	items     map[uuid.UUID]model.OrderItem
}

func newMemStore() *memStore {
	return &memStore{
		products:  make(map[uuid.UUID]model.Product),
		customers: make(map[uuid.UUID]model.Customer),
		orders:    make(map[uuid.UUID]model.Order),
		items:     make(map[uuid.UUID]model.OrderItem),
	}
}

func (s *memStore) snapshot() *memStore {
	clone := newMemStore()
	for k, v := range s.products {
		clone.products[k] = v
	}
	for k, v := range s.customers {
		clone.customers[k] = v
	}
	for k, v := range s.orders {
		v.Items = nil
		v.Customer = nil
		clone.orders[k] = v
	}
	for k, v := range s.items {
		v.Product = nil
		v.Order = nil
		clone.items[k] = v
	}
	return clone
}

func (s *memStore) restore(snap *memStore) {
	s.products = snap.products
	s.customers = snap.customers
	s.orders = snap.orders
	s.items = snap.items
}

type fakeTxManager struct {
	store *memStore
}

func (t *fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	snap := t.store.snapshot()
	if err := fn(ctx); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

// fakeProductRepo

type fakeProductRepo struct {
	store *memStore
}

func (r *fakeProductRepo) Create(_ context.Context, product *model.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	product.CreatedAt = time.Now()
	r.store.products[product.ID] = *product
	return nil
}

func (r *fakeProductRepo) Update(_ context.Context, product *model.Product) error {
	if _, ok := r.store.products[product.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.store.products[product.ID] = *product
	return nil
}

func (r *fakeProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.store.products, id)
	return nil
}

func (r *fakeProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	product, ok := r.store.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &product, nil
}

func (r *fakeProductRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeProductRepo) FindBySKU(_ context.Context, sku string) (*model.Product, error) {
	for _, product := range r.store.products {
		if product.SKU == sku {
			p := product
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProductRepo) List(_ context.Context, search, stockFilter string, page, limit int) ([]model.Product, int64, error) {
	var products []model.Product
	for _, product := range r.store.products {
		if search != "" && !containsFold(product.Name, search) && !containsFold(product.SKU, search) {
			continue
		}
		switch stockFilter {
		case repository.StockFilterLow:
			if product.Stock >= model.LowStockThreshold {
				continue
			}
		case repository.StockFilterOut:
			if product.Stock != 0 {
				continue
			}
		case repository.StockFilterIn:
			if product.Stock <= 0 {
				continue
			}
		}
		products = append(products, product)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	total := int64(len(products))
	return paginate(products, page, limit), total, nil
}

func (r *fakeProductRepo) Search(_ context.Context, query string, limit int) ([]model.Product, error) {
	var products []model.Product
	for _, product := range r.store.products {
		if containsFold(product.Name, query) || containsFold(product.SKU, query) {
			products = append(products, product)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	if len(products) > limit {
		products = products[:limit]
	}
	return products, nil
}

func (r *fakeProductRepo) UpdateStock(_ context.Context, id uuid.UUID, stock int) error {
	product, ok := r.store.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	product.Stock = stock
	r.store.products[id] = product
	return nil
}

func (r *fakeProductRepo) CountOrderItems(_ context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	for _, item := range r.store.items {
		if item.ProductID == productID {
			count++
		}
	}
	return count, nil
}

// fakeCustomerRepo

type fakeCustomerRepo struct {
	store *memStore
}

func (r *fakeCustomerRepo) Create(_ context.Context, customer *model.Customer) error {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	customer.CreatedAt = time.Now()
	r.store.customers[customer.ID] = *customer
	return nil
}

func (r *fakeCustomerRepo) Update(_ context.Context, customer *model.Customer) error {
	if _, ok := r.store.customers[customer.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.store.customers[customer.ID] = *customer
	return nil
}

func (r *fakeCustomerRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.store.customers, id)
	return nil
}

func (r *fakeCustomerRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Customer, error) {
	customer, ok := r.store.customers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &customer, nil
}

func (r *fakeCustomerRepo) FindByPhone(_ context.Context, phone string) (*model.Customer, error) {
	for _, customer := range r.store.customers {
		if customer.Phone == phone {
			c := customer
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCustomerRepo) PhoneExists(_ context.Context, phone string, excludeID *uuid.UUID) (bool, error) {
	for _, customer := range r.store.customers {
		if customer.Phone != phone {
			continue
		}
		if excludeID != nil && customer.ID == *excludeID {
			continue
		}
		return true, nil
	}
	return false, nil
}

func (r *fakeCustomerRepo) List(_ context.Context, search string, page, limit int) ([]repository.CustomerWithOrderCount, int64, error) {
	var customers []repository.CustomerWithOrderCount
	for _, customer := range r.store.customers {
		if search != "" && !containsFold(customer.FullName, search) && !containsFold(customer.Phone, search) {
			continue
		}
		count, _ := r.CountOrders(context.Background(), customer.ID)
		customers = append(customers, repository.CustomerWithOrderCount{Customer: customer, OrdersCount: count})
	}
	sort.Slice(customers, func(i, j int) bool { return customers[i].CreatedAt.After(customers[j].CreatedAt) })
	total := int64(len(customers))
	return paginate(customers, page, limit), total, nil
}

func (r *fakeCustomerRepo) Search(_ context.Context, query string, limit int) ([]model.Customer, error) {
	var customers []model.Customer
	for _, customer := range r.store.customers {
		if containsFold(customer.FullName, query) || containsFold(customer.Phone, query) {
			customers = append(customers, customer)
		}
	}
	sort.Slice(customers, func(i, j int) bool { return customers[i].FullName < customers[j].FullName })
	if len(customers) > limit {
		customers = customers[:limit]
	}
	return customers, nil
}

func (r *fakeCustomerRepo) CountOrders(_ context.Context, customerID uuid.UUID) (int64, error) {
	var count int64
	for _, order := range r.store.orders {
		if order.CustomerID == customerID {
			count++
		}
	}
	return count, nil
}

// fakeOrderRepo

type fakeOrderRepo struct {
	store *memStore
}

func (r *fakeOrderRepo) Create(_ context.Context, order *model.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	order.UpdatedAt = order.CreatedAt
	stored := *order
	stored.Items = nil
	stored.Customer = nil
	r.store.orders[order.ID] = stored
	return nil
}

func (r *fakeOrderRepo) Update(_ context.Context, order *model.Order) error {
	existing, ok := r.store.orders[order.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *order
	stored.Items = nil
	stored.Customer = nil
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now()
	r.store.orders[order.ID] = stored
	return nil
}

func (r *fakeOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status, ttn string) error {
	order, ok := r.store.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	order.Status = status
	if ttn != "" {
		order.TTN = ttn
	}
	order.UpdatedAt = time.Now()
	r.store.orders[id] = order
	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	order, ok := r.store.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &order, nil
}

func (r *fakeOrderRepo) FindByIDWithItems(_ context.Context, id uuid.UUID) (*model.Order, error) {
	order, ok := r.store.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	r.hydrate(&order)
	return &order, nil
}

func (r *fakeOrderRepo) hydrate(order *model.Order) {
	if customer, ok := r.store.customers[order.CustomerID]; ok {
		c := customer
		order.Customer = &c
	}
	order.Items = nil
	for _, item := range r.store.items {
		if item.OrderID != order.ID {
			continue
		}
		if product, ok := r.store.products[item.ProductID]; ok {
			p := product
			item.Product = &p
		}
		order.Items = append(order.Items, item)
	}
	sort.Slice(order.Items, func(i, j int) bool {
		return order.Items[i].ID.String() < order.Items[j].ID.String()
	})
}

func (r *fakeOrderRepo) matches(order *model.Order, filter repository.OrderFilter) bool {
	if filter.Status != "" && order.Status != filter.Status {
		return false
	}
	if filter.Date != "" && order.CreatedAt.Format("2006-01-02") != filter.Date {
		return false
	}
	if filter.Search != "" {
		var name, phone string
		if order.Customer != nil {
			name = order.Customer.FullName
			phone = order.Customer.Phone
		}
		if !containsFold(name, filter.Search) &&
			!containsFold(phone, filter.Search) &&
			!containsFold(order.TTN, filter.Search) &&
			!containsFold(order.City, filter.Search) {
			return false
		}
	}
	return true
}

func (r *fakeOrderRepo) filtered(filter repository.OrderFilter) []model.Order {
	var orders []model.Order
	for _, order := range r.store.orders {
		r.hydrate(&order)
		if r.matches(&order, filter) {
			orders = append(orders, order)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders
}

func (r *fakeOrderRepo) List(_ context.Context, filter repository.OrderFilter) ([]model.Order, int64, error) {
	orders := r.filtered(filter)
	total := int64(len(orders))
	return paginate(orders, filter.Page, filter.Limit), total, nil
}

func (r *fakeOrderRepo) ListForExport(_ context.Context, filter repository.OrderFilter) ([]model.Order, error) {
	return r.filtered(filter), nil
}

func (r *fakeOrderRepo) Search(_ context.Context, query string, limit int) ([]model.Order, error) {
	orders := r.filtered(repository.OrderFilter{Search: query})
	if len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (r *fakeOrderRepo) StatusCounts(_ context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(model.OrderStatuses))
	for _, s := range model.OrderStatuses {
		counts[s] = 0
	}
	for _, order := range r.store.orders {
		counts[order.Status]++
	}
	return counts, nil
}

func (r *fakeOrderRepo) CreateItem(_ context.Context, item *model.OrderItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	stored := *item
	stored.Product = nil
	stored.Order = nil
	r.store.items[item.ID] = stored
	return nil
}

func (r *fakeOrderRepo) UpdateItem(_ context.Context, item *model.OrderItem) error {
	if _, ok := r.store.items[item.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *item
	stored.Product = nil
	stored.Order = nil
	r.store.items[item.ID] = stored
	return nil
}

func (r *fakeOrderRepo) DeleteItem(_ context.Context, id uuid.UUID) error {
	delete(r.store.items, id)
	return nil
}

func (r *fakeOrderRepo) FindItemByID(_ context.Context, id uuid.UUID) (*model.OrderItem, error) {
	item, ok := r.store.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if product, ok := r.store.products[item.ProductID]; ok {
		p := product
		item.Product = &p
	}
	return &item, nil
}

// helpers

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return nil
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// testEnv bundles the fakes and real services under test.
type testEnv struct {
	store        *memStore
	productRepo  *fakeProductRepo
	customerRepo *fakeCustomerRepo
	orderRepo    *fakeOrderRepo
	txManager    *fakeTxManager

	stock     StockService
	orders    OrderService
	catalog   CatalogService
	customers CustomerService
	export    ExportService
	search    SearchService
}

func newTestEnv() *testEnv {
	store := newMemStore()
	env := &testEnv{
		store:        store,
		productRepo:  &fakeProductRepo{store: store},
		customerRepo: &fakeCustomerRepo{store: store},
		orderRepo:    &fakeOrderRepo{store: store},
		txManager:    &fakeTxManager{store: store},
	}
	env.stock = NewStockService(env.productRepo, nil)
	env.orders = NewOrderService(env.orderRepo, env.customerRepo, env.stock, env.txManager)
	env.catalog = NewCatalogService(env.productRepo, env.txManager)
	env.customers = NewCustomerService(env.customerRepo, env.txManager)
	env.export = NewExportService(env.orderRepo)
	env.search = NewSearchService(env.orderRepo, env.customerRepo, env.productRepo)
	return env
}

func (e *testEnv) seedProduct(name, sku string, purchase, selling string, stock int) *model.Product {
	product := &model.Product{
		Name:          name,
		SKU:           sku,
		PurchasePrice: mustDecimal(purchase),
		SellingPrice:  mustDecimal(selling),
		Stock:         stock,
	}
	_ = e.productRepo.Create(context.Background(), product)
	return product
}

func (e *testEnv) seedCustomer(name, phone string) *model.Customer {
	customer := &model.Customer{
		FullName: name,
		Phone:    phone,
		Source:   model.SourceOther,
	}
	_ = e.customerRepo.Create(context.Background(), customer)
	return customer
}

func (e *testEnv) productStock(id uuid.UUID) int {
	return e.store.products[id].Stock
}
