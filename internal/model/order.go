package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus enum constants
const (
	StatusNew       = "new"
	StatusConfirmed = "confirmed"
	StatusShipped   = "shipped"
	StatusCompleted = "completed"
	StatusCanceled  = "canceled"
	StatusReturned  = "returned"
)

// OrderStatuses lists every status in display order.
var OrderStatuses = []string{
	StatusNew,
	StatusConfirmed,
	StatusShipped,
	StatusCompleted,
	StatusCanceled,
	StatusReturned,
}

// InactiveStatuses is the single source of truth for statuses whose orders
// do not reserve inventory. Every transition check reads this set.
var InactiveStatuses = map[string]bool{
	StatusCanceled: true,
	StatusReturned: true,
}

// IsInactiveStatus reports whether orders in status s hold no stock reservation.
func IsInactiveStatus(s string) bool {
	return InactiveStatuses[s]
}

// IsValidStatus reports whether s is a known order status.
func IsValidStatus(s string) bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// DeliveryService enum constants
const (
	DeliveryNovaPoshta = "nova_poshta"
	DeliveryUkrposhta  = "ukrposhta"
	DeliveryMeest      = "meest"
	DeliveryPickup     = "pickup"
)

// PaymentType enum constants
const (
	PaymentCOD     = "cod"
	PaymentPrepaid = "prepaid"
	PaymentPartial = "partial"
)

// Order is the sales-order aggregate root. Financial figures are derived
// on read from the item set, never cached.
type Order struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer        *Customer       `gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT" json:"customer,omitempty"`
	Status          string          `gorm:"type:varchar(20);not null;default:'new';index" json:"status"`
	DeliveryService string          `gorm:"type:varchar(20);not null;default:'nova_poshta'" json:"delivery_service"`
	City            string          `gorm:"type:varchar(100);not null" json:"city"`
	Warehouse       string          `gorm:"type:varchar(255)" json:"warehouse"`
	TTN             string          `gorm:"type:varchar(50)" json:"ttn"`
	PaymentType     string          `gorm:"type:varchar(20);not null;default:'cod'" json:"payment_type"`
	Prepayment      decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"prepayment"`
	SellerExpenses  decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"seller_expenses"`
	Notes           string          `gorm:"type:text" json:"notes,omitempty"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem is a single product line. Price is frozen at order time so
// later catalog price edits do not rewrite history.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	Order     *Order          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"-"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"product,omitempty"`
	Quantity  int             `gorm:"type:int;not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
}

// Cost returns price * quantity for this line.
func (i *OrderItem) Cost() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// TotalCost sums the cost of every line item.
func (o *Order) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for i := range o.Items {
		total = total.Add(o.Items[i].Cost())
	}
	return total
}

// AmountDue is what remains to be collected on delivery.
func (o *Order) AmountDue() decimal.Decimal {
	return o.TotalCost().Sub(o.Prepayment)
}

// Profit is total cost minus the purchase cost of every item and the
// seller's own expenses. Requires Items.Product to be preloaded.
func (o *Order) Profit() decimal.Decimal {
	purchase := decimal.Zero
	for i := range o.Items {
		item := &o.Items[i]
		if item.Product == nil {
			continue
		}
		purchase = purchase.Add(item.Product.PurchasePrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return o.TotalCost().Sub(purchase).Sub(o.SellerExpenses)
}

// IsInactive reports whether the order currently holds no stock reservation.
func (o *Order) IsInactive() bool {
	return IsInactiveStatus(o.Status)
}
