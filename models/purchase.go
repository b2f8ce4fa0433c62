package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase is one visit to the box: the user scans any number of products,
// then completes the purchase. CompletedAt stays nil while the purchase is
// still open.
type Purchase struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"index;not null" json:"user_id"`
	CompletedAt *time.Time `gorm:"index" json:"completed_at,omitempty"`

	Scans []Scan `json:"scans,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Total sums the amounts of all scans in the purchase.
func (p *Purchase) Total() decimal.Decimal {
	total := decimal.Zero
	for _, s := range p.Scans {
		total = total.Add(s.Amount)
	}
	return total
}

// Scan is one barcode read within a purchase. Amount is the product price at
// scan time, frozen so later price changes don't rewrite history.
type Scan struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	PurchaseID uint            `gorm:"index;not null" json:"purchase_id"`
	ProductID  *uint           `gorm:"index" json:"product_id,omitempty"`
	Amount     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	ScannedAt  time.Time       `gorm:"not null" json:"scanned_at"`
}
