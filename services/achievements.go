package services

import (
	"context"
	"fmt"
	"time"

	"snackbox/models"
	"snackbox/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AmountTier maps a money threshold to a stable achievement code.
type AmountTier struct {
	Threshold decimal.Decimal
	Code      string
}

// CountTier maps an integer threshold (purchases per day, streak days,
// comeback days) to a stable achievement code.
type CountTier struct {
	Threshold int
	Code      string
}

// Ruleset binds every evaluated category to its tier table. Tiers must be
// listed in ascending threshold order. Keeping codes here, next to the
// thresholds, stops the two from drifting apart silently; ValidateRuleset
// checks the codes against the catalog at startup.
type Ruleset struct {
	SinglePurchase []AmountTier
	// SinglePurchaseExclusive restores the legacy behavior where only the
	// highest qualifying single-purchase tier is awarded per purchase. The
	// default is cumulative awarding, same as every other category.
	SinglePurchaseExclusive bool

	DailyCount       []CountTier
	DailyStreak      []CountTier
	WeeklyStreakCode string
	Comeback         []CountTier // gap in whole days
	Debt             []AmountTier
	TotalSpent       []AmountTier
}

func euros(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

// DefaultRuleset returns the production tier tables. Codes must have matching
// rows in models.DefaultCatalog.
func DefaultRuleset() Ruleset {
	return Ruleset{
		SinglePurchase: []AmountTier{
			{euros(5), "BIG_SPENDER_5"},
			{euros(10), "BIG_SPENDER_10"},
			{euros(15), "BIG_SPENDER_15"},
		},
		DailyCount: []CountTier{
			{3, "BUSY_BEE_3"},
			{5, "BUSY_BEE_5"},
		},
		DailyStreak: []CountTier{
			{3, "STREAK_3"},
			{7, "STREAK_7"},
			{14, "STREAK_14"},
			{30, "STREAK_30"},
		},
		WeeklyStreakCode: "WEEKLY_REGULAR",
		Comeback: []CountTier{
			{30, "COMEBACK_30"},
			{60, "COMEBACK_60"},
			{90, "COMEBACK_90"},
		},
		Debt: []AmountTier{
			{euros(15), "DEBT_15"},
			{euros(25), "DEBT_25"},
			{euros(50), "DEBT_50"},
		},
		TotalSpent: []AmountTier{
			{euros(50), "TOTAL_SPENT_50"},
			{euros(100), "TOTAL_SPENT_100"},
			{euros(250), "TOTAL_SPENT_250"},
			{euros(500), "TOTAL_SPENT_500"},
		},
	}
}

// Codes lists every achievement code the ruleset can award.
func (r Ruleset) Codes() []string {
	var codes []string
	for _, t := range r.SinglePurchase {
		codes = append(codes, t.Code)
	}
	for _, t := range r.DailyCount {
		codes = append(codes, t.Code)
	}
	for _, t := range r.DailyStreak {
		codes = append(codes, t.Code)
	}
	if r.WeeklyStreakCode != "" {
		codes = append(codes, r.WeeklyStreakCode)
	}
	for _, t := range r.Comeback {
		codes = append(codes, t.Code)
	}
	for _, t := range r.Debt {
		codes = append(codes, t.Code)
	}
	for _, t := range r.TotalSpent {
		codes = append(codes, t.Code)
	}
	return codes
}

// ValidateRuleset checks that every coded tier has a catalog row. Run at
// startup after seeding so a typo in either table fails fast instead of
// silently never awarding.
func ValidateRuleset(rules Ruleset, catalog []models.Achievement) error {
	known := make(map[string]bool, len(catalog))
	for _, a := range catalog {
		known[a.Code] = true
	}
	for _, code := range rules.Codes() {
		if !known[code] {
			return fmt.Errorf("ruleset code %q has no catalog entry", code)
		}
	}
	return nil
}

// AchievementService evaluates the achievement rules against a user's
// purchase history whenever one of their purchases completes.
type AchievementService struct {
	Store HistoryStore
	Rules Ruleset

	// now is swappable for tests; defaults to time.Now.
	now func() time.Time
}

func NewAchievementService(db *gorm.DB) *AchievementService {
	return &AchievementService{
		Store: NewGormHistoryStore(db),
		Rules: DefaultRuleset(),
		now:   time.Now,
	}
}

// NewAchievementServiceWithStore wires an explicit store and ruleset, used by
// tests and by callers that tune the tiers.
func NewAchievementServiceWithStore(store HistoryStore, rules Ruleset) *AchievementService {
	return &AchievementService{Store: store, Rules: rules, now: time.Now}
}

// Evaluate runs every category check for the given just-completed purchase
// and returns the newly earned achievements, already persisted. A missing or
// still-open purchase is a no-op. Re-running for the same purchase returns
// nothing the second time because the first run's records show up in the
// already-held set.
func (s *AchievementService) Evaluate(ctx context.Context, userID, purchaseID uint) ([]models.AchievementSummary, error) {
	purchase, err := s.Store.PurchaseWithScans(ctx, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("load purchase %d: %w", purchaseID, err)
	}
	if purchase == nil || purchase.CompletedAt == nil {
		return nil, nil
	}

	held, err := s.Store.EarnedCodes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load earned codes: %w", err)
	}
	catalog, err := s.Store.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	byCode := make(map[string]models.Achievement, len(catalog))
	for _, a := range catalog {
		byCode[a.Code] = a
	}

	completedAt := purchase.CompletedAt.UTC()

	var codes []string
	codes = append(codes, s.checkSinglePurchase(purchase, held)...)

	more, err := s.checkDailyCount(ctx, userID, completedAt, held)
	if err != nil {
		return nil, err
	}
	codes = append(codes, more...)

	more, err = s.checkDailyStreak(ctx, userID, completedAt, held)
	if err != nil {
		return nil, err
	}
	codes = append(codes, more...)

	more, err = s.checkWeeklyStreak(ctx, userID, completedAt, held)
	if err != nil {
		return nil, err
	}
	codes = append(codes, more...)

	more, err = s.checkComeback(ctx, userID, completedAt, held)
	if err != nil {
		return nil, err
	}
	codes = append(codes, more...)

	more, err = s.checkDebt(ctx, userID, held)
	if err != nil {
		return nil, err
	}
	codes = append(codes, more...)

	more, err = s.checkTotalSpent(ctx, userID, held)
	if err != nil {
		return nil, err
	}
	codes = append(codes, more...)

	now := s.now().UTC()
	var records []models.UserAchievement
	var earned []models.AchievementSummary
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		if seen[code] {
			continue
		}
		seen[code] = true
		def, ok := byCode[code]
		if !ok {
			// A tier computed a code the catalog doesn't know. Skip the
			// single award rather than failing the whole evaluation.
			utils.GetLogger().Warn("achievement code missing from catalog, skipping",
				zap.String("code", code), zap.Uint("user_id", userID))
			continue
		}
		records = append(records, models.UserAchievement{
			UserID:        userID,
			AchievementID: def.ID,
			EarnedAt:      now,
			Shown:         false,
		})
		earned = append(earned, def.Summary())
	}

	if err := s.Store.SaveEarned(ctx, records); err != nil {
		return nil, fmt.Errorf("persist earned achievements: %w", err)
	}
	return earned, nil
}

// checkSinglePurchase compares the purchase's own total against the
// single-purchase tiers. Cumulative by default; in exclusive mode only the
// highest qualifying tier is considered, matching the historical behavior
// where a 15 € purchase earned only the top code.
func (s *AchievementService) checkSinglePurchase(purchase *models.Purchase, held map[string]bool) []string {
	total := purchase.Total()
	if s.Rules.SinglePurchaseExclusive {
		for i := len(s.Rules.SinglePurchase) - 1; i >= 0; i-- {
			tier := s.Rules.SinglePurchase[i]
			if total.GreaterThanOrEqual(tier.Threshold) {
				if !held[tier.Code] {
					return []string{tier.Code}
				}
				return nil
			}
		}
		return nil
	}
	return qualifyingAmountTiers(s.Rules.SinglePurchase, total, held)
}

// checkDailyCount awards tiers for the number of purchases completed on the
// triggering purchase's own UTC day, the triggering one included.
func (s *AchievementService) checkDailyCount(ctx context.Context, userID uint, completedAt time.Time, held map[string]bool) ([]string, error) {
	day := midnightUTC(completedAt)
	count, err := s.Store.PurchaseCountOnDate(ctx, userID, day)
	if err != nil {
		return nil, fmt.Errorf("count purchases on %s: %w", day.Format("2006-01-02"), err)
	}
	return qualifyingCountTiers(s.Rules.DailyCount, int(count), held), nil
}

// checkDailyStreak measures the unbroken run of consecutive purchase days
// ending on the triggering day. Distinct completion days are walked newest
// first; the streak ends at the first gap.
func (s *AchievementService) checkDailyStreak(ctx context.Context, userID uint, completedAt time.Time, held map[string]bool) ([]string, error) {
	dates, err := s.Store.DistinctCompletionDates(ctx, userID, completedAt)
	if err != nil {
		return nil, fmt.Errorf("load completion dates: %w", err)
	}
	streak := 0
	if len(dates) > 0 {
		streak = 1
		anchor := midnightUTC(dates[0])
		for _, d := range dates[1:] {
			d = midnightUTC(d)
			if !d.Equal(anchor.AddDate(0, 0, -1)) {
				break
			}
			streak++
			anchor = d
		}
	}
	return qualifyingCountTiers(s.Rules.DailyStreak, streak, held), nil
}

// checkWeeklyStreak passes when each of the four trailing 7-day windows
// before the triggering day contains at least one completed purchase. The
// windows are contiguous and end at the triggering day exclusive, so the
// triggering purchase itself does not count toward any window.
func (s *AchievementService) checkWeeklyStreak(ctx context.Context, userID uint, completedAt time.Time, held map[string]bool) ([]string, error) {
	code := s.Rules.WeeklyStreakCode
	if code == "" || held[code] {
		return nil, nil
	}
	day := midnightUTC(completedAt)
	from := day.AddDate(0, 0, -28)
	dates, err := s.Store.CompletionDatesBetween(ctx, userID, from, day)
	if err != nil {
		return nil, fmt.Errorf("load completion dates in window: %w", err)
	}
	for week := 0; week < 4; week++ {
		start := day.AddDate(0, 0, -7*(4-week))
		end := start.AddDate(0, 0, 7)
		hit := false
		for _, d := range dates {
			if !d.Before(start) && d.Before(end) {
				hit = true
				break
			}
		}
		if !hit {
			return nil, nil
		}
	}
	return []string{code}, nil
}

// checkComeback measures the gap in whole days since the previous completed
// purchase. A user's first purchase never awards a comeback.
func (s *AchievementService) checkComeback(ctx context.Context, userID uint, completedAt time.Time, held map[string]bool) ([]string, error) {
	prev, err := s.Store.PreviousCompletedPurchase(ctx, userID, completedAt)
	if err != nil {
		return nil, fmt.Errorf("load previous purchase: %w", err)
	}
	if prev == nil || prev.CompletedAt == nil {
		return nil, nil
	}
	gapDays := int(completedAt.Sub(prev.CompletedAt.UTC()).Hours() / 24)
	return qualifyingCountTiers(s.Rules.Comeback, gapDays, held), nil
}

// checkDebt evaluates the user's net debt: everything scanned minus
// everything paid, the triggering purchase included. Negative debt (credit)
// crosses no tier.
func (s *AchievementService) checkDebt(ctx context.Context, userID uint, held map[string]bool) ([]string, error) {
	scanned, err := s.Store.TotalScanned(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("sum scans: %w", err)
	}
	paid, err := s.Store.TotalPaid(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("sum payments: %w", err)
	}
	return qualifyingAmountTiers(s.Rules.Debt, scanned.Sub(paid), held), nil
}

// checkTotalSpent evaluates lifetime spend; payments are not subtracted.
func (s *AchievementService) checkTotalSpent(ctx context.Context, userID uint, held map[string]bool) ([]string, error) {
	scanned, err := s.Store.TotalScanned(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("sum scans: %w", err)
	}
	return qualifyingAmountTiers(s.Rules.TotalSpent, scanned, held), nil
}

func qualifyingAmountTiers(tiers []AmountTier, measure decimal.Decimal, held map[string]bool) []string {
	var codes []string
	for _, tier := range tiers {
		if measure.GreaterThanOrEqual(tier.Threshold) && !held[tier.Code] {
			codes = append(codes, tier.Code)
		}
	}
	return codes
}

func qualifyingCountTiers(tiers []CountTier, measure int, held map[string]bool) []string {
	var codes []string
	for _, tier := range tiers {
		if measure >= tier.Threshold && !held[tier.Code] {
			codes = append(codes, tier.Code)
		}
	}
	return codes
}

func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
