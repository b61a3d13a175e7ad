package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LowStockThreshold marks products that need restocking soon.
const LowStockThreshold = 5

// Product represents a catalog item with its on-hand stock counter.
// Stock is only ever mutated through the stock service while orders are
// edited; direct writes happen on product create/update (restock).
type Product struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	SKU           string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"sku"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"purchase_price"`
	SellingPrice  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"selling_price"`
	Stock         int             `gorm:"type:int;not null;default:0" json:"stock"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ProfitMargin returns (selling - purchase) / purchase * 100.
// Zero when the purchase price is zero.
func (p *Product) ProfitMargin() decimal.Decimal {
	if !p.PurchasePrice.IsPositive() {
		return decimal.Zero
	}
	return p.SellingPrice.Sub(p.PurchasePrice).
		Div(p.PurchasePrice).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

// IsLowStock reports whether the product is below the restock threshold.
func (p *Product) IsLowStock() bool {
	return p.Stock < LowStockThreshold
}
