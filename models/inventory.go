package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType tags one shelving action on a batch.
type MovementType string

const (
	MovementAddedToStorage     MovementType = "added_to_storage"
	MovementMovedToShelf       MovementType = "moved_to_shelf"
	MovementMovedFromShelf     MovementType = "moved_from_shelf"
	MovementRemovedFromStorage MovementType = "removed_from_storage"
	MovementRemovedFromShelf   MovementType = "removed_from_shelf"
)

// Invoice is a supplier delivery note; batches reference the invoice they
// arrived on.
type Invoice struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Supplier   string          `gorm:"not null" json:"supplier"`
	Number     string          `gorm:"not null" json:"number"`
	Total      decimal.Decimal `gorm:"type:numeric(10,2)" json:"total"`
	InvoicedAt time.Time       `json:"invoiced_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Batch is one delivered lot of a product, carrying its own best-before date.
// Stock on hand is never stored; it is derived from the batch's movement log.
type Batch struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ProductID  uint       `gorm:"index;not null" json:"product_id"`
	InvoiceID  *uint      `gorm:"index" json:"invoice_id,omitempty"`
	BestBefore *time.Time `json:"best_before,omitempty"`

	Product   Product         `json:"-"`
	Movements []StockMovement `json:"movements,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// StockMovement is one entry in a batch's append-only shelving log.
type StockMovement struct {
	ID       uint         `gorm:"primaryKey" json:"id"`
	BatchID  uint         `gorm:"index;not null" json:"batch_id"`
	Type     MovementType `gorm:"not null" json:"type"`
	Quantity int          `gorm:"not null" json:"quantity"`
	MovedAt  time.Time    `gorm:"not null" json:"moved_at"`
}
