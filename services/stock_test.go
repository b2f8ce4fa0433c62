package services

import (
	"testing"
	"time"

	"snackbox/models"

	"github.com/stretchr/testify/assert"
)

func movement(t models.MovementType, qty int, movedAt time.Time) models.StockMovement {
	return models.StockMovement{Type: t, Quantity: qty, MovedAt: movedAt}
}

func TestCalculateStorageQuantity(t *testing.T) {
	now := time.Now()
	movements := []models.StockMovement{
		movement(models.MovementAddedToStorage, 24, now),
		movement(models.MovementMovedToShelf, 10, now),
		movement(models.MovementMovedFromShelf, 2, now),
		movement(models.MovementRemovedFromStorage, 4, now),
	}
	// 24 in, 10 out to shelf, 2 back, 4 discarded
	assert.Equal(t, 12, CalculateStorageQuantity(movements))
	assert.Equal(t, 0, CalculateStorageQuantity(nil))
}

func TestCalculateShelfQuantity(t *testing.T) {
	now := time.Now()
	movements := []models.StockMovement{
		movement(models.MovementAddedToStorage, 24, now),
		movement(models.MovementMovedToShelf, 10, now),
		movement(models.MovementMovedFromShelf, 2, now),
		movement(models.MovementRemovedFromShelf, 3, now),
	}
	assert.Equal(t, 5, CalculateShelfQuantity(movements))
	assert.Equal(t, 0, CalculateShelfQuantity(nil))
}

func TestEarliestBestBeforeSkipsEmptyBatches(t *testing.T) {
	now := time.Now()
	soon := now.AddDate(0, 0, 7)
	later := now.AddDate(0, 1, 0)

	batches := []models.Batch{
		{
			// sold out: earliest date but zero storage stock
			BestBefore: &soon,
			Movements: []models.StockMovement{
				movement(models.MovementAddedToStorage, 10, now),
				movement(models.MovementRemovedFromStorage, 10, now),
			},
		},
		{
			BestBefore: &later,
			Movements: []models.StockMovement{
				movement(models.MovementAddedToStorage, 5, now),
			},
		},
	}

	got := EarliestStorageBestBefore(batches)
	assert.NotNil(t, got)
	assert.True(t, got.Equal(later))

	assert.Nil(t, EarliestShelfBestBefore(batches))
	assert.Nil(t, EarliestStorageBestBefore(nil))
}

func TestCalculateWeeklyThroughput(t *testing.T) {
	start := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

	t.Run("averages over the movement span", func(t *testing.T) {
		movements := []models.StockMovement{
			movement(models.MovementMovedToShelf, 10, start),
			movement(models.MovementMovedToShelf, 10, start.AddDate(0, 0, 14)),
		}
		assert.InDelta(t, 10.0, CalculateWeeklyThroughput(movements), 0.001)
	})

	t.Run("same-day burst clamps to one week", func(t *testing.T) {
		movements := []models.StockMovement{
			movement(models.MovementMovedToShelf, 6, start),
			movement(models.MovementMovedToShelf, 6, start),
		}
		assert.InDelta(t, 12.0, CalculateWeeklyThroughput(movements), 0.001)
	})

	t.Run("ignores non-shelving movements", func(t *testing.T) {
		movements := []models.StockMovement{
			movement(models.MovementAddedToStorage, 100, start),
			movement(models.MovementMovedToShelf, 7, start),
		}
		assert.InDelta(t, 7.0, CalculateWeeklyThroughput(movements), 0.001)
	})

	t.Run("empty input yields zero", func(t *testing.T) {
		assert.Zero(t, CalculateWeeklyThroughput(nil))
	})
}
