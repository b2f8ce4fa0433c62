package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is money a user has paid toward their running balance.
type Payment struct {
	ID     uint            `gorm:"primaryKey" json:"id"`
	UserID uint            `gorm:"index;not null" json:"user_id"`
	Amount decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	PaidAt time.Time       `gorm:"not null" json:"paid_at"`
	Note   string          `json:"note,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
