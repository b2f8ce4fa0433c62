package services

import (
	"context"
	"errors"
	"time"

	"snackbox/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// HistoryStore is the narrow read/write surface the achievement engine needs
// from the purchase history. Keeping it an interface lets the engine be tested
// against an in-memory history without a database.
type HistoryStore interface {
	// PurchaseWithScans returns the purchase with scans preloaded, or
	// (nil, nil) when the id does not resolve.
	PurchaseWithScans(ctx context.Context, purchaseID uint) (*models.Purchase, error)
	// EarnedCodes returns the set of achievement codes the user already holds.
	EarnedCodes(ctx context.Context, userID uint) (map[string]bool, error)
	// Catalog returns all achievement definitions.
	Catalog(ctx context.Context) ([]models.Achievement, error)
	// DistinctCompletionDates returns the user's distinct purchase-completion
	// days (UTC midnights) up to and including upTo, newest first.
	DistinctCompletionDates(ctx context.Context, userID uint, upTo time.Time) ([]time.Time, error)
	// PreviousCompletedPurchase returns the user's latest purchase completed
	// strictly before the given instant, or (nil, nil) when there is none.
	PreviousCompletedPurchase(ctx context.Context, userID uint, before time.Time) (*models.Purchase, error)
	// TotalScanned sums every scan amount across all the user's purchases.
	TotalScanned(ctx context.Context, userID uint) (decimal.Decimal, error)
	// TotalPaid sums the user's payments.
	TotalPaid(ctx context.Context, userID uint) (decimal.Decimal, error)
	// PurchaseCountOnDate counts purchases completed on the given UTC day.
	PurchaseCountOnDate(ctx context.Context, userID uint, day time.Time) (int64, error)
	// CompletionDatesBetween returns distinct completion days in [from, to).
	CompletionDatesBetween(ctx context.Context, userID uint, from, to time.Time) ([]time.Time, error)
	// SaveEarned persists freshly earned records as one batch.
	SaveEarned(ctx context.Context, records []models.UserAchievement) error
}

// GormHistoryStore implements HistoryStore on the Postgres schema.
type GormHistoryStore struct {
	DB *gorm.DB
}

func NewGormHistoryStore(db *gorm.DB) *GormHistoryStore {
	return &GormHistoryStore{DB: db}
}

func (s *GormHistoryStore) PurchaseWithScans(ctx context.Context, purchaseID uint) (*models.Purchase, error) {
	var purchase models.Purchase
	err := s.DB.WithContext(ctx).Preload("Scans").First(&purchase, purchaseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (s *GormHistoryStore) EarnedCodes(ctx context.Context, userID uint) (map[string]bool, error) {
	var codes []string
	err := s.DB.WithContext(ctx).
		Model(&models.UserAchievement{}).
		Joins("JOIN achievements ON achievements.id = user_achievements.achievement_id").
		Where("user_achievements.user_id = ?", userID).
		Pluck("achievements.code", &codes).Error
	if err != nil {
		return nil, err
	}
	held := make(map[string]bool, len(codes))
	for _, c := range codes {
		held[c] = true
	}
	return held, nil
}

func (s *GormHistoryStore) Catalog(ctx context.Context) ([]models.Achievement, error) {
	var catalog []models.Achievement
	err := s.DB.WithContext(ctx).Find(&catalog).Error
	return catalog, err
}

func (s *GormHistoryStore) DistinctCompletionDates(ctx context.Context, userID uint, upTo time.Time) ([]time.Time, error) {
	var dates []time.Time
	err := s.DB.WithContext(ctx).
		Model(&models.Purchase{}).
		Distinct("date_trunc('day', completed_at at time zone 'UTC')").
		Where("user_id = ? AND completed_at IS NOT NULL AND completed_at <= ?", userID, upTo).
		Order("1 DESC").
		Pluck("date_trunc('day', completed_at at time zone 'UTC')", &dates).Error
	return dates, err
}

func (s *GormHistoryStore) PreviousCompletedPurchase(ctx context.Context, userID uint, before time.Time) (*models.Purchase, error) {
	var purchase models.Purchase
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND completed_at IS NOT NULL AND completed_at < ?", userID, before).
		Order("completed_at DESC").
		First(&purchase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (s *GormHistoryStore) TotalScanned(ctx context.Context, userID uint) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := s.DB.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(scans.amount), 0)
		   FROM scans
		   JOIN purchases ON purchases.id = scans.purchase_id
		  WHERE purchases.user_id = ?`, userID).Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (s *GormHistoryStore) TotalPaid(ctx context.Context, userID uint) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := s.DB.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE user_id = ?`, userID).Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (s *GormHistoryStore) PurchaseCountOnDate(ctx context.Context, userID uint, day time.Time) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("user_id = ? AND completed_at >= ? AND completed_at < ?", userID, day, day.Add(24*time.Hour)).
		Count(&count).Error
	return count, err
}

func (s *GormHistoryStore) CompletionDatesBetween(ctx context.Context, userID uint, from, to time.Time) ([]time.Time, error) {
	var dates []time.Time
	err := s.DB.WithContext(ctx).
		Model(&models.Purchase{}).
		Distinct("date_trunc('day', completed_at at time zone 'UTC')").
		Where("user_id = ? AND completed_at >= ? AND completed_at < ?", userID, from, to).
		Pluck("date_trunc('day', completed_at at time zone 'UTC')", &dates).Error
	return dates, err
}

func (s *GormHistoryStore) SaveEarned(ctx context.Context, records []models.UserAchievement) error {
	if len(records) == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).Create(&records).Error
}
