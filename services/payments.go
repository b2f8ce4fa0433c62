package services

import (
	"context"
	"errors"
	"time"

	"snackbox/models"
	"snackbox/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrInvalidAmount = errors.New("amount must be positive")

// Balance is a user's running account: everything scanned, everything paid,
// and the net debt (negative debt is credit).
type Balance struct {
	TotalScanned decimal.Decimal `json:"total_scanned"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	Debt         decimal.Decimal `json:"debt"`
}

// PaymentService records top-up payments and answers balance queries.
type PaymentService struct {
	DB      *gorm.DB
	history HistoryStore
}

func NewPaymentService(db *gorm.DB) *PaymentService {
	return &PaymentService{DB: db, history: NewGormHistoryStore(db)}
}

// RecordPayment books a top-up payment at the current time.
func (s *PaymentService) RecordPayment(ctx context.Context, userID uint, amount decimal.Decimal, note string) (*models.Payment, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	payment := models.Payment{
		UserID: userID,
		Amount: amount,
		PaidAt: time.Now().UTC(),
		Note:   note,
	}
	if err := s.DB.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, err
	}
	utils.PaymentsTotal.Inc()
	return &payment, nil
}

// Balance computes the user's account from the same sums the achievement
// engine's debt check uses.
func (s *PaymentService) Balance(ctx context.Context, userID uint) (*Balance, error) {
	scanned, err := s.history.TotalScanned(ctx, userID)
	if err != nil {
		return nil, err
	}
	paid, err := s.history.TotalPaid(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Balance{
		TotalScanned: scanned,
		TotalPaid:    paid,
		Debt:         scanned.Sub(paid),
	}, nil
}

// ListPayments returns a user's payments, newest first.
func (s *PaymentService) ListPayments(ctx context.Context, userID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("paid_at DESC").
		Find(&payments).Error
	return payments, err
}
