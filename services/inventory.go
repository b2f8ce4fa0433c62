package services

import (
	"context"
	"errors"
	"time"

	"snackbox/models"
	"snackbox/utils"

	"gorm.io/gorm"
)

var (
	ErrBatchNotFound     = errors.New("batch not found")
	ErrInvalidMovement   = errors.New("invalid movement type")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInsufficientStock = errors.New("not enough stock for movement")
)

// BatchStock is the derived point-in-time stock of one batch.
type BatchStock struct {
	BatchID uint `json:"batch_id"`
	Storage int  `json:"storage"`
	Shelf   int  `json:"shelf"`
}

// ProductStock aggregates the derived stock of all batches of a product.
type ProductStock struct {
	ProductID          uint       `json:"product_id"`
	Storage            int        `json:"storage"`
	Shelf              int        `json:"shelf"`
	EarliestStorageBBD *time.Time `json:"earliest_storage_best_before,omitempty"`
	EarliestShelfBBD   *time.Time `json:"earliest_shelf_best_before,omitempty"`
	WeeklyThroughput   float64    `json:"weekly_throughput"`
}

var validMovements = map[models.MovementType]bool{
	models.MovementAddedToStorage:     true,
	models.MovementMovedToShelf:       true,
	models.MovementMovedFromShelf:     true,
	models.MovementRemovedFromStorage: true,
	models.MovementRemovedFromShelf:   true,
}

// InventoryService manages supplier invoices, batches, and the shelving log
// that all stock figures are derived from.
type InventoryService struct {
	DB *gorm.DB
}

func NewInventoryService(db *gorm.DB) *InventoryService {
	return &InventoryService{DB: db}
}

func (s *InventoryService) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	return s.DB.WithContext(ctx).Create(invoice).Error
}

// CreateBatch registers a delivered lot and books its initial quantity into
// storage in one transaction.
func (s *InventoryService) CreateBatch(ctx context.Context, batch *models.Batch, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Create(batch).Error; err != nil {
			return err
		}
		movement := models.StockMovement{
			BatchID:  batch.ID,
			Type:     models.MovementAddedToStorage,
			Quantity: quantity,
			MovedAt:  time.Now().UTC(),
		}
		if err := tx.WithContext(ctx).Create(&movement).Error; err != nil {
			return err
		}
		utils.StockMovementsTotal.WithLabelValues(string(movement.Type)).Inc()
		return nil
	})
}

// RecordMovement appends one shelving action to a batch's log, refusing moves
// that would drive the derived quantity below zero.
func (s *InventoryService) RecordMovement(ctx context.Context, batchID uint, movementType models.MovementType, quantity int) (*models.StockMovement, error) {
	if !validMovements[movementType] {
		return nil, ErrInvalidMovement
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	var movement *models.StockMovement
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var batch models.Batch
		err := tx.WithContext(ctx).Preload("Movements").First(&batch, batchID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBatchNotFound
		}
		if err != nil {
			return err
		}

		switch movementType {
		case models.MovementMovedToShelf, models.MovementRemovedFromStorage:
			if CalculateStorageQuantity(batch.Movements) < quantity {
				return ErrInsufficientStock
			}
		case models.MovementMovedFromShelf, models.MovementRemovedFromShelf:
			if CalculateShelfQuantity(batch.Movements) < quantity {
				return ErrInsufficientStock
			}
		}

		movement = &models.StockMovement{
			BatchID:  batchID,
			Type:     movementType,
			Quantity: quantity,
			MovedAt:  time.Now().UTC(),
		}
		return tx.WithContext(ctx).Create(movement).Error
	})
	if err != nil {
		return nil, err
	}
	utils.StockMovementsTotal.WithLabelValues(string(movementType)).Inc()
	return movement, nil
}

// BatchStock derives one batch's current storage and shelf quantities.
func (s *InventoryService) BatchStock(ctx context.Context, batchID uint) (*BatchStock, error) {
	var batch models.Batch
	err := s.DB.WithContext(ctx).Preload("Movements").First(&batch, batchID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &BatchStock{
		BatchID: batch.ID,
		Storage: CalculateStorageQuantity(batch.Movements),
		Shelf:   CalculateShelfQuantity(batch.Movements),
	}, nil
}

// ProductStock derives the product-level stock picture used by the admin
// restock view.
func (s *InventoryService) ProductStock(ctx context.Context, productID uint) (*ProductStock, error) {
	var batches []models.Batch
	err := s.DB.WithContext(ctx).Preload("Movements").
		Where("product_id = ?", productID).
		Find(&batches).Error
	if err != nil {
		return nil, err
	}

	stock := &ProductStock{ProductID: productID}
	var allMovements []models.StockMovement
	for _, b := range batches {
		stock.Storage += CalculateStorageQuantity(b.Movements)
		stock.Shelf += CalculateShelfQuantity(b.Movements)
		allMovements = append(allMovements, b.Movements...)
	}
	stock.EarliestStorageBBD = EarliestStorageBestBefore(batches)
	stock.EarliestShelfBBD = EarliestShelfBestBefore(batches)
	stock.WeeklyThroughput = CalculateWeeklyThroughput(allMovements)
	return stock, nil
}
