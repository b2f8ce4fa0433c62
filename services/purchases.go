package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"snackbox/models"
	"snackbox/utils"

	"gorm.io/gorm"
)

var (
	ErrPurchaseNotFound  = errors.New("purchase not found")
	ErrPurchaseCompleted = errors.New("purchase already completed")
	ErrProductNotFound   = errors.New("product not found")
	ErrProductInactive   = errors.New("product is not for sale")
)

// PurchaseService drives the scan workflow: one open purchase per user,
// scans append to it, completion closes it and runs the achievement engine.
type PurchaseService struct {
	DB           *gorm.DB
	Achievements *AchievementService
}

func NewPurchaseService(db *gorm.DB, achievements *AchievementService) *PurchaseService {
	return &PurchaseService{DB: db, Achievements: achievements}
}

// openPurchase returns the user's open purchase, creating one if needed.
func (s *PurchaseService) openPurchase(ctx context.Context, tx *gorm.DB, userID uint) (*models.Purchase, error) {
	var purchase models.Purchase
	err := tx.WithContext(ctx).
		Where("user_id = ? AND completed_at IS NULL", userID).
		Order("created_at DESC").
		First(&purchase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		purchase = models.Purchase{UserID: userID}
		if err := tx.WithContext(ctx).Create(&purchase).Error; err != nil {
			return nil, err
		}
		return &purchase, nil
	}
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

// AddScan registers one barcode read for the user, opening a purchase when
// none is in progress. The scan freezes the product's current price.
func (s *PurchaseService) AddScan(ctx context.Context, userID uint, barcode string) (*models.Scan, error) {
	var scan *models.Scan
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var product models.Product
		err := tx.WithContext(ctx).Where("barcode = ?", barcode).First(&product).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		if err != nil {
			return err
		}
		if !product.Active {
			return ErrProductInactive
		}

		purchase, err := s.openPurchase(ctx, tx, userID)
		if err != nil {
			return err
		}

		scan = &models.Scan{
			PurchaseID: purchase.ID,
			ProductID:  &product.ID,
			Amount:     product.Price,
			ScannedAt:  time.Now().UTC(),
		}
		return tx.WithContext(ctx).Create(scan).Error
	})
	if err != nil {
		return nil, err
	}
	utils.ScansTotal.Inc()
	return scan, nil
}

// Complete closes the user's purchase and evaluates achievements. The newly
// earned badges are returned so the client can show them right away.
func (s *PurchaseService) Complete(ctx context.Context, userID, purchaseID uint) (*models.Purchase, []models.AchievementSummary, error) {
	var purchase models.Purchase
	err := s.DB.WithContext(ctx).Preload("Scans").
		Where("id = ? AND user_id = ?", purchaseID, userID).
		First(&purchase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrPurchaseNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if purchase.CompletedAt != nil {
		return nil, nil, ErrPurchaseCompleted
	}

	now := time.Now().UTC()
	purchase.CompletedAt = &now
	if err := s.DB.WithContext(ctx).Model(&models.Purchase{}).
		Where("id = ?", purchase.ID).
		Update("completed_at", now).Error; err != nil {
		return nil, nil, fmt.Errorf("complete purchase %d: %w", purchase.ID, err)
	}
	utils.PurchasesCompletedTotal.Inc()

	earned, err := s.Achievements.Evaluate(ctx, userID, purchase.ID)
	if err != nil {
		return nil, nil, err
	}
	for _, a := range earned {
		utils.AchievementsAwardedTotal.WithLabelValues(string(a.Category)).Inc()
	}
	return &purchase, earned, nil
}

// History lists a user's completed purchases, newest first.
func (s *PurchaseService) History(ctx context.Context, userID uint, limit int) ([]models.Purchase, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var purchases []models.Purchase
	err := s.DB.WithContext(ctx).Preload("Scans").
		Where("user_id = ? AND completed_at IS NOT NULL", userID).
		Order("completed_at DESC").
		Limit(limit).
		Find(&purchases).Error
	return purchases, err
}

// Current returns the user's open purchase with scans, or nil when the user
// has nothing in progress.
func (s *PurchaseService) Current(ctx context.Context, userID uint) (*models.Purchase, error) {
	var purchase models.Purchase
	err := s.DB.WithContext(ctx).Preload("Scans").
		Where("user_id = ? AND completed_at IS NULL", userID).
		Order("created_at DESC").
		First(&purchase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}
