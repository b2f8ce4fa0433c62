package services

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"snackbox/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHistory is an in-memory HistoryStore. Queries are computed from the
// purchase and payment slices the same way the SQL implementation derives
// them from the tables.
type fakeHistory struct {
	purchases []*models.Purchase
	payments  []models.Payment
	catalog   []models.Achievement
	earned    []models.UserAchievement
	saveErr   error
}

func (f *fakeHistory) PurchaseWithScans(_ context.Context, purchaseID uint) (*models.Purchase, error) {
	for _, p := range f.purchases {
		if p.ID == purchaseID {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeHistory) EarnedCodes(_ context.Context, userID uint) (map[string]bool, error) {
	byID := make(map[uint]string, len(f.catalog))
	for _, a := range f.catalog {
		byID[a.ID] = a.Code
	}
	held := make(map[string]bool)
	for _, e := range f.earned {
		if e.UserID == userID {
			held[byID[e.AchievementID]] = true
		}
	}
	return held, nil
}

func (f *fakeHistory) Catalog(_ context.Context) ([]models.Achievement, error) {
	return f.catalog, nil
}

func (f *fakeHistory) DistinctCompletionDates(_ context.Context, userID uint, upTo time.Time) ([]time.Time, error) {
	seen := make(map[time.Time]bool)
	for _, p := range f.purchases {
		if p.UserID != userID || p.CompletedAt == nil || p.CompletedAt.After(upTo) {
			continue
		}
		seen[midnightUTC(*p.CompletedAt)] = true
	}
	var dates []time.Time
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })
	return dates, nil
}

func (f *fakeHistory) PreviousCompletedPurchase(_ context.Context, userID uint, before time.Time) (*models.Purchase, error) {
	var prev *models.Purchase
	for _, p := range f.purchases {
		if p.UserID != userID || p.CompletedAt == nil || !p.CompletedAt.Before(before) {
			continue
		}
		if prev == nil || p.CompletedAt.After(*prev.CompletedAt) {
			prev = p
		}
	}
	return prev, nil
}

func (f *fakeHistory) TotalScanned(_ context.Context, userID uint) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range f.purchases {
		if p.UserID != userID {
			continue
		}
		total = total.Add(p.Total())
	}
	return total, nil
}

func (f *fakeHistory) TotalPaid(_ context.Context, userID uint) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, pay := range f.payments {
		if pay.UserID == userID {
			total = total.Add(pay.Amount)
		}
	}
	return total, nil
}

func (f *fakeHistory) PurchaseCountOnDate(_ context.Context, userID uint, day time.Time) (int64, error) {
	end := day.Add(24 * time.Hour)
	var count int64
	for _, p := range f.purchases {
		if p.UserID != userID || p.CompletedAt == nil {
			continue
		}
		if !p.CompletedAt.Before(day) && p.CompletedAt.Before(end) {
			count++
		}
	}
	return count, nil
}

func (f *fakeHistory) CompletionDatesBetween(_ context.Context, userID uint, from, to time.Time) ([]time.Time, error) {
	seen := make(map[time.Time]bool)
	for _, p := range f.purchases {
		if p.UserID != userID || p.CompletedAt == nil {
			continue
		}
		d := midnightUTC(*p.CompletedAt)
		if !d.Before(from) && d.Before(to) {
			seen[d] = true
		}
	}
	var dates []time.Time
	for d := range seen {
		dates = append(dates, d)
	}
	return dates, nil
}

func (f *fakeHistory) SaveEarned(_ context.Context, records []models.UserAchievement) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.earned = append(f.earned, records...)
	return nil
}

var baseTime = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func completedPurchase(id, userID uint, completedAt time.Time, amounts ...string) *models.Purchase {
	p := &models.Purchase{ID: id, UserID: userID, CompletedAt: &completedAt}
	for _, a := range amounts {
		p.Scans = append(p.Scans, models.Scan{PurchaseID: id, Amount: money(a), ScannedAt: completedAt})
	}
	return p
}

func seededCatalog() []models.Achievement {
	catalog := make([]models.Achievement, len(models.DefaultCatalog))
	copy(catalog, models.DefaultCatalog)
	for i := range catalog {
		catalog[i].ID = uint(i + 1)
	}
	return catalog
}

func codesOf(summaries []models.AchievementSummary) []string {
	codes := make([]string, 0, len(summaries))
	for _, s := range summaries {
		codes = append(codes, s.Code)
	}
	return codes
}

func newEngine(store *fakeHistory, rules Ruleset) *AchievementService {
	return NewAchievementServiceWithStore(store, rules)
}

// Ruleset and catalog for the five-tier regression scenario: single-purchase
// tiers at 2..6 € next to debt tiers at 15..35 €, so a qualifying purchase
// amount must not leak into the debt category.
func fiveTierFixture() (Ruleset, []models.Achievement) {
	rules := Ruleset{
		SinglePurchase: []AmountTier{
			{money("2"), "SP_2"},
			{money("3"), "SP_3"},
			{money("4"), "SP_4"},
			{money("5"), "SP_5"},
			{money("6"), "SP_6"},
		},
		Debt: []AmountTier{
			{money("15"), "DEBT_15"},
			{money("20"), "DEBT_20"},
			{money("25"), "DEBT_25"},
			{money("30"), "DEBT_30"},
			{money("35"), "DEBT_35"},
		},
	}
	var catalog []models.Achievement
	for i, code := range []string{"SP_2", "SP_3", "SP_4", "SP_5", "SP_6"} {
		catalog = append(catalog, models.Achievement{ID: uint(i + 1), Code: code, Name: code, Category: models.CategorySinglePurchase})
	}
	for i, code := range []string{"DEBT_15", "DEBT_20", "DEBT_25", "DEBT_30", "DEBT_35"} {
		catalog = append(catalog, models.Achievement{ID: uint(i + 6), Code: code, Name: code, Category: models.CategoryHighDebt})
	}
	return rules, catalog
}

func TestEvaluateAwardsAllCrossedTiers(t *testing.T) {
	rules, catalog := fiveTierFixture()
	store := &fakeHistory{
		catalog:   catalog,
		purchases: []*models.Purchase{completedPurchase(1, 7, baseTime, "6.00")},
	}

	earned, err := newEngine(store, rules).Evaluate(context.Background(), 7, 1)
	require.NoError(t, err)

	// 6 € crosses all five single-purchase tiers but leaves debt at 6 €,
	// well under the lowest 15 € debt tier.
	assert.ElementsMatch(t, []string{"SP_2", "SP_3", "SP_4", "SP_5", "SP_6"}, codesOf(earned))
	assert.Len(t, store.earned, 5)
}

func TestSinglePurchaseExclusiveLegacyMode(t *testing.T) {
	// The legacy single-purchase policy is mutually exclusive: the highest
	// qualifying tier wins and the lower tiers are never considered. This
	// diverges from the cumulative default exercised above; the flag exists
	// for compatibility with the historical behavior.
	rules, catalog := fiveTierFixture()
	rules.SinglePurchaseExclusive = true
	store := &fakeHistory{
		catalog:   catalog,
		purchases: []*models.Purchase{completedPurchase(1, 7, baseTime, "6.00")},
	}

	earned, err := newEngine(store, rules).Evaluate(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"SP_6"}, codesOf(earned))

	// Exactly the top threshold still awards only the top code.
	store2 := &fakeHistory{
		catalog:   catalog,
		purchases: []*models.Purchase{completedPurchase(2, 8, baseTime, "6.00")},
	}
	earned, err = newEngine(store2, rules).Evaluate(context.Background(), 8, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"SP_6"}, codesOf(earned))
}

func TestThresholdBoundaryExactness(t *testing.T) {
	t.Run("single purchase at threshold", func(t *testing.T) {
		store := &fakeHistory{
			catalog:   seededCatalog(),
			purchases: []*models.Purchase{completedPurchase(1, 1, baseTime, "5.00")},
		}
		earned, err := newEngine(store, DefaultRuleset()).Evaluate(context.Background(), 1, 1)
		require.NoError(t, err)
		assert.Contains(t, codesOf(earned), "BIG_SPENDER_5")
	})

	t.Run("single purchase one cent below", func(t *testing.T) {
		store := &fakeHistory{
			catalog:   seededCatalog(),
			purchases: []*models.Purchase{completedPurchase(1, 1, baseTime, "4.99")},
		}
		earned, err := newEngine(store, DefaultRuleset()).Evaluate(context.Background(), 1, 1)
		require.NoError(t, err)
		assert.NotContains(t, codesOf(earned), "BIG_SPENDER_5")
	})

	t.Run("debt at threshold", func(t *testing.T) {
		store := &fakeHistory{
			catalog:   seededCatalog(),
			purchases: []*models.Purchase{completedPurchase(1, 1, baseTime, "15.00")},
		}
		earned, err := newEngine(store, DefaultRuleset()).Evaluate(context.Background(), 1, 1)
		require.NoError(t, err)
		assert.Contains(t, codesOf(earned), "DEBT_15")
	})

	t.Run("debt one cent below", func(t *testing.T) {
		store := &fakeHistory{
			catalog:   seededCatalog(),
			purchases: []*models.Purchase{completedPurchase(1, 1, baseTime, "14.99")},
		}
		earned, err := newEngine(store, DefaultRuleset()).Evaluate(context.Background(), 1, 1)
		require.NoError(t, err)
		assert.NotContains(t, codesOf(earned), "DEBT_15")
	})

	t.Run("total spent at threshold", func(t *testing.T) {
		store := &fakeHistory{
			catalog: seededCatalog(),
			purchases: []*models.Purchase{
				completedPurchase(1, 1, baseTime.AddDate(0, 0, -10), "48.00"),
				completedPurchase(2, 1, baseTime, "2.00"),
			},
		}
		earned, err := newEngine(store, DefaultRuleset()).Evaluate(context.Background(), 1, 2)
		require.NoError(t, err)
		assert.Contains(t, codesOf(earned), "TOTAL_SPENT_50")
	})

	t.Run("total spent one cent below", func(t *testing.T) {
		store := &fakeHistory{
			catalog: seededCatalog(),
			purchases: []*models.Purchase{
				completedPurchase(1, 1, baseTime.AddDate(0, 0, -10), "47.99"),
				completedPurchase(2, 1, baseTime, "2.00"),
			},
		}
		earned, err := newEngine(store, DefaultRuleset()).Evaluate(context.Background(), 1, 2)
		require.NoError(t, err)
		assert.NotContains(t, codesOf(earned), "TOTAL_SPENT_50")
	})
}

func TestEvaluateIsIdempotent(t *testing.T) {
	store := &fakeHistory{
		catalog:   seededCatalog(),
		purchases: []*models.Purchase{completedPurchase(1, 3, baseTime, "16.00")},
	}
	engine := newEngine(store, DefaultRuleset())

	first, err := engine.Evaluate(context.Background(), 3, 1)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	// The first run's records are persisted, so the second run sees every
	// code as already held.
	second, err := engine.Evaluate(context.Background(), 3, 1)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestAlreadyEarnedCodeIsSuppressed(t *testing.T) {
	catalog := seededCatalog()
	var bigSpender5 models.Achievement
	for _, a := range catalog {
		if a.Code == "BIG_SPENDER_5" {
			bigSpender5 = a
		}
	}
	require.NotZero(t, bigSpender5.ID)

	store := &fakeHistory{
		catalog:   catalog,
		purchases: []*models.Purchase{completedPurchase(1, 4, baseTime, "12.00")},
		earned: []models.UserAchievement{
			{UserID: 4, AchievementID: bigSpender5.ID, EarnedAt: baseTime.AddDate(0, -1, 0)},
		},
	}

	earned, err := newEngine(store, DefaultRuleset()).Evaluate(context.Background(), 4, 1)
	require.NoError(t, err)
	codes := codesOf(earned)
	assert.NotContains(t, codes, "BIG_SPENDER_5")
	assert.Contains(t, codes, "BIG_SPENDER_10")
}

func TestIncompletePurchaseIsNoop(t *testing.T) {
	open := &models.Purchase{ID: 1, UserID: 5}
	open.Scans = []models.Scan{{PurchaseID: 1, Amount: money("20.00"), ScannedAt: baseTime}}
	store := &fakeHistory{catalog: seededCatalog(), purchases: []*models.Purchase{open}}

	earned, err := newEngine(store, DefaultRuleset()).Evaluate(context.Background(), 5, 1)
	require.NoError(t, err)
	assert.Empty(t, earned)
	assert.Empty(t, store.earned)
}

func TestMissingPurchaseIsNoop(t *testing.T) {
	store := &fakeHistory{catalog: seededCatalog()}
	earned, err := newEngine(store, DefaultRuleset()).Evaluate(context.Background(), 5, 99)
	require.NoError(t, err)
	assert.Empty(t, earned)
}

func TestDailyStreak(t *testing.T) {
	day := func(offset int) time.Time { return baseTime.AddDate(0, 0, offset) }

	t.Run("three consecutive days award the streak", func(t *testing.T) {
		store := &fakeHistory{
			catalog: seededCatalog(),
			purchases: []*models.Purchase{
				completedPurchase(1, 6, day(-2), "0.50"),
				completedPurchase(2, 6, day(-1), "0.50"),
				completedPurchase(3, 6, day(0), "0.50"),
			},
		}
		earned, err := newEngine(store, DefaultRuleset()).Evaluate(context.Background(), 6, 3)
		require.NoError(t, err)
		assert.Contains(t, codesOf(earned), "STREAK_3")
	})

	t.Run("a gap breaks the streak", func(t *testing.T) {
		store := &fakeHistory{
			catalog: seededCatalog(),
			purchases: []*models.Purchase{
				completedPurchase(1, 6, day(-3), "0.50"),
				completedPurchase(2, 6, day(-1), "0.50"),
				completedPurchase(3, 6, day(0), "0.50"),
			},
		}
		earned, err := newEngine(store, DefaultRuleset()).Evaluate(context.Background(), 6, 3)
		require.NoError(t, err)
		assert.NotContains(t, codesOf(earned), "STREAK_3")
	})

	t.Run("several purchases on one day count once", func(t *testing.T) {
		store := &fakeHistory{
			catalog: seededCatalog(),
			purchases: []*models.Purchase{
				completedPurchase(1, 6, day(-1), "0.50"),
				completedPurchase(2, 6, day(-1).Add(2*time.Hour), "0.50"),
				completedPurchase(3, 6, day(0), "0.50"),
			},
		}
		earned, err := newEngine(store, DefaultRuleset()).Evaluate(context.Background(), 6, 3)
		require.NoError(t, err)
		assert.NotContains(t, codesOf(earned), "STREAK_3")
	})
}

func TestWeeklyStreak(t *testing.T) {
	day := func(offset int) time.Time { return baseTime.AddDate(0, 0, offset) }

	t.Run("all four trailing windows populated", func(t *testing.T) {
		store := &fakeHistory{
			catalog: seededCatalog(),
			purchases: []*models.Purchase{
				completedPurchase(1, 9, day(-25), "0.50"), // [day-28, day-21)
				completedPurchase(2, 9, day(-18), "0.50"), // [day-21, day-14)
				completedPurchase(3, 9, day(-11), "0.50"), // [day-14, day-7)
				completedPurchase(4, 9, day(-4), "0.50"),  // [day-7, day)
				completedPurchase(5, 9, day(0), "0.50"),
			},
		}
		earned, err := newEngine(store, DefaultRuleset()).Evaluate(context.Background(), 9, 5)
		require.NoError(t, err)
		assert.Contains(t, codesOf(earned), "WEEKLY_REGULAR")
	})

	t.Run("one empty window fails the check", func(t *testing.T) {
		store := &fakeHistory{
			catalog: seededCatalog(),
			purchases: []*models.Purchase{
				completedPurchase(1, 9, day(-25), "0.50"),
				completedPurchase(2, 9, day(-18), "0.50"),
				completedPurchase(3, 9, day(-11), "0.50"),
				// nothing in [day-7, day)
				completedPurchase(5, 9, day(0), "0.50"),
			},
		}
		earned, err := newEngine(store, DefaultRuleset()).Evaluate(context.Background(), 9, 5)
		require.NoError(t, err)
		assert.NotContains(t, codesOf(earned), "WEEKLY_REGULAR")
	})

	t.Run("the triggering day itself counts toward no window", func(t *testing.T) {
		store := &fakeHistory{
			catalog: seededCatalog(),
			purchases: []*models.Purchase{
				completedPurchase(1, 9, day(-25), "0.50"),
				completedPurchase(2, 9, day(-18), "0.50"),
				completedPurchase(3, 9, day(-11), "0.50"),
				completedPurchase(5, 9, day(0).Add(-time.Hour), "0.50"),
				completedPurchase(6, 9, day(0), "0.50"),
			},
		}
		// The day-0 purchases fall on the trigger day, outside [day-7, day).
		earned, err := newEngine(store, DefaultRuleset()).Evaluate(context.Background(), 9, 6)
		require.NoError(t, err)
		assert.NotContains(t, codesOf(earned), "WEEKLY_REGULAR")
	})
}

func TestComeback(t *testing.T) {
	t.Run("first purchase never awards a comeback", func(t *testing.T) {
		store := &fakeHistory{
			catalog:   seededCatalog(),
			purchases: []*models.Purchase{completedPurchase(1, 10, baseTime, "0.50")},
		}
		earned, err := newEngine(store, DefaultRuleset()).Evaluate(context.Background(), 10, 1)
		require.NoError(t, err)
		for _, code := range codesOf(earned) {
			assert.NotContains(t, code, "COMEBACK")
		}
	})

	t.Run("gap awards every crossed tier", func(t *testing.T) {
		store := &fakeHistory{
			catalog: seededCatalog(),
			purchases: []*models.Purchase{
				completedPurchase(1, 10, baseTime.AddDate(0, 0, -65), "0.50"),
				completedPurchase(2, 10, baseTime, "0.50"),
			},
		}
		earned, err := newEngine(store, DefaultRuleset()).Evaluate(context.Background(), 10, 2)
		require.NoError(t, err)
		codes := codesOf(earned)
		assert.Contains(t, codes, "COMEBACK_30")
		assert.Contains(t, codes, "COMEBACK_60")
		assert.NotContains(t, codes, "COMEBACK_90")
	})

	t.Run("short gap awards nothing", func(t *testing.T) {
		store := &fakeHistory{
			catalog: seededCatalog(),
			purchases: []*models.Purchase{
				completedPurchase(1, 10, baseTime.AddDate(0, 0, -29), "0.50"),
				completedPurchase(2, 10, baseTime, "0.50"),
			},
		}
		earned, err := newEngine(store, DefaultRuleset()).Evaluate(context.Background(), 10, 2)
		require.NoError(t, err)
		assert.NotContains(t, codesOf(earned), "COMEBACK_30")
	})
}

func TestDebtIsNetOfPayments(t *testing.T) {
	t.Run("payments reduce debt below the tier", func(t *testing.T) {
		store := &fakeHistory{
			catalog:   seededCatalog(),
			purchases: []*models.Purchase{completedPurchase(1, 11, baseTime, "20.00")},
			payments:  []models.Payment{{UserID: 11, Amount: money("10.00"), PaidAt: baseTime.AddDate(0, 0, -1)}},
		}
		earned, err := newEngine(store, DefaultRuleset()).Evaluate(context.Background(), 11, 1)
		require.NoError(t, err)
		assert.NotContains(t, codesOf(earned), "DEBT_15")
	})

	t.Run("credit crosses no debt tier", func(t *testing.T) {
		store := &fakeHistory{
			catalog:   seededCatalog(),
			purchases: []*models.Purchase{completedPurchase(1, 11, baseTime, "20.00")},
			payments:  []models.Payment{{UserID: 11, Amount: money("25.00"), PaidAt: baseTime.AddDate(0, 0, -1)}},
		}
		earned, err := newEngine(store, DefaultRuleset()).Evaluate(context.Background(), 11, 1)
		require.NoError(t, err)
		for _, code := range codesOf(earned) {
			assert.NotContains(t, code, "DEBT")
		}
	})

	t.Run("unpaid spend crosses the tier", func(t *testing.T) {
		store := &fakeHistory{
			catalog:   seededCatalog(),
			purchases: []*models.Purchase{completedPurchase(1, 11, baseTime, "20.00")},
		}
		earned, err := newEngine(store, DefaultRuleset()).Evaluate(context.Background(), 11, 1)
		require.NoError(t, err)
		assert.Contains(t, codesOf(earned), "DEBT_15")
	})
}

func TestDailyCountTiers(t *testing.T) {
	store := &fakeHistory{
		catalog: seededCatalog(),
		purchases: []*models.Purchase{
			completedPurchase(1, 12, baseTime.Add(-4*time.Hour), "0.50"),
			completedPurchase(2, 12, baseTime.Add(-2*time.Hour), "0.50"),
			completedPurchase(3, 12, baseTime, "0.50"),
		},
	}
	earned, err := newEngine(store, DefaultRuleset()).Evaluate(context.Background(), 12, 3)
	require.NoError(t, err)
	codes := codesOf(earned)
	assert.Contains(t, codes, "BUSY_BEE_3")
	assert.NotContains(t, codes, "BUSY_BEE_5")
}

func TestMissingCatalogEntryIsSkipped(t *testing.T) {
	rules := DefaultRuleset()
	catalog := seededCatalog()
	// Drop BIG_SPENDER_10 from the catalog; the tier still computes the code
	// but the award must be skipped without failing the evaluation.
	var trimmed []models.Achievement
	for _, a := range catalog {
		if a.Code != "BIG_SPENDER_10" {
			trimmed = append(trimmed, a)
		}
	}
	store := &fakeHistory{
		catalog:   trimmed,
		purchases: []*models.Purchase{completedPurchase(1, 13, baseTime, "12.00")},
	}

	earned, err := newEngine(store, rules).Evaluate(context.Background(), 13, 1)
	require.NoError(t, err)
	codes := codesOf(earned)
	assert.Contains(t, codes, "BIG_SPENDER_5")
	assert.NotContains(t, codes, "BIG_SPENDER_10")
}

func TestPersistFailureFailsEvaluation(t *testing.T) {
	store := &fakeHistory{
		catalog:   seededCatalog(),
		purchases: []*models.Purchase{completedPurchase(1, 14, baseTime, "6.00")},
		saveErr:   errors.New("connection reset"),
	}
	earned, err := newEngine(store, DefaultRuleset()).Evaluate(context.Background(), 14, 1)
	assert.Error(t, err)
	assert.Empty(t, earned)
}

func TestEarnedRecordsCarryTimestampAndShownFlag(t *testing.T) {
	store := &fakeHistory{
		catalog:   seededCatalog(),
		purchases: []*models.Purchase{completedPurchase(1, 15, baseTime, "6.00")},
	}
	engine := newEngine(store, DefaultRuleset())
	fixed := time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC)
	engine.now = func() time.Time { return fixed }

	_, err := engine.Evaluate(context.Background(), 15, 1)
	require.NoError(t, err)
	require.NotEmpty(t, store.earned)
	for _, rec := range store.earned {
		assert.Equal(t, uint(15), rec.UserID)
		assert.Equal(t, fixed, rec.EarnedAt)
		assert.False(t, rec.Shown)
	}
}
