package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a snack sold through the box. Price is what one scan of the
// product's barcode charges to the scanning user.
type Product struct {
	ID      uint            `gorm:"primaryKey" json:"id"`
	Name    string          `gorm:"not null" json:"name"`
	Slug    string          `gorm:"uniqueIndex;not null" json:"slug"`
	Barcode string          `gorm:"uniqueIndex;not null" json:"barcode"`
	Price   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Active  bool            `gorm:"default:true" json:"active"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
