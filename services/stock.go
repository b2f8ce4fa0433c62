package services

import (
	"time"

	"snackbox/models"
)

// Stock quantities are never stored. Each batch carries an append-only log of
// shelving movements and the point-in-time quantities are derived from it.

// CalculateStorageQuantity derives stock-on-hand in storage from a batch's
// movement log. Order of the movements does not matter.
func CalculateStorageQuantity(movements []models.StockMovement) int {
	qty := 0
	for _, m := range movements {
		switch m.Type {
		case models.MovementAddedToStorage, models.MovementMovedFromShelf:
			qty += m.Quantity
		case models.MovementMovedToShelf, models.MovementRemovedFromStorage:
			qty -= m.Quantity
		}
	}
	return qty
}

// CalculateShelfQuantity derives stock currently out on the shelf.
func CalculateShelfQuantity(movements []models.StockMovement) int {
	qty := 0
	for _, m := range movements {
		switch m.Type {
		case models.MovementMovedToShelf:
			qty += m.Quantity
		case models.MovementMovedFromShelf, models.MovementRemovedFromShelf:
			qty -= m.Quantity
		}
	}
	return qty
}

// EarliestStorageBestBefore returns the earliest best-before date among
// batches that still have stock in storage, or nil when none do. Batches must
// have their Movements loaded.
func EarliestStorageBestBefore(batches []models.Batch) *time.Time {
	return earliestBestBefore(batches, CalculateStorageQuantity)
}

// EarliestShelfBestBefore is the shelf-side counterpart of
// EarliestStorageBestBefore.
func EarliestShelfBestBefore(batches []models.Batch) *time.Time {
	return earliestBestBefore(batches, CalculateShelfQuantity)
}

func earliestBestBefore(batches []models.Batch, quantity func([]models.StockMovement) int) *time.Time {
	var earliest *time.Time
	for i := range batches {
		b := &batches[i]
		if b.BestBefore == nil || quantity(b.Movements) <= 0 {
			continue
		}
		if earliest == nil || b.BestBefore.Before(*earliest) {
			earliest = b.BestBefore
		}
	}
	return earliest
}

// CalculateWeeklyThroughput averages shelved quantity per week over the span
// between the first and last shelving movement. Spans shorter than a week are
// clamped to one week so a burst of same-day shelving doesn't blow up the
// average.
func CalculateWeeklyThroughput(movements []models.StockMovement) float64 {
	total := 0
	var first, last time.Time
	for _, m := range movements {
		if m.Type != models.MovementMovedToShelf {
			continue
		}
		total += m.Quantity
		if first.IsZero() || m.MovedAt.Before(first) {
			first = m.MovedAt
		}
		if last.IsZero() || m.MovedAt.After(last) {
			last = m.MovedAt
		}
	}
	if total == 0 {
		return 0
	}
	weeks := last.Sub(first).Hours() / (7 * 24)
	if weeks < 1 {
		weeks = 1
	}
	return float64(total) / weeks
}
