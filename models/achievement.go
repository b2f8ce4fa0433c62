package models

import "time"

// AchievementCategory groups catalog entries by the rule that awards them.
// Only the first six categories are evaluated by the achievement engine;
// TimeOfDay and Misc exist in the catalog schema but have no evaluator yet.
type AchievementCategory string

const (
	CategorySinglePurchase AchievementCategory = "single_purchase"
	CategoryDailyActivity  AchievementCategory = "daily_activity"
	CategoryStreak         AchievementCategory = "streak"
	CategoryComeback       AchievementCategory = "comeback"
	CategoryHighDebt       AchievementCategory = "high_debt"
	CategoryTotalSpent     AchievementCategory = "total_spent"
	CategoryTimeOfDay      AchievementCategory = "time_of_day"
	CategoryMisc           AchievementCategory = "misc"
)

// Achievement is an immutable catalog entry. Code is the stable key the
// engine's tier tables refer to; the engine never mutates the catalog.
type Achievement struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	Code        string              `gorm:"uniqueIndex;not null" json:"code"`
	Name        string              `gorm:"not null" json:"name"`
	Description string              `json:"description"`
	Category    AchievementCategory `gorm:"not null;index" json:"category"`
	Icon        string              `json:"icon"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// UserAchievement records that a user earned an achievement at a point in
// time. The schema allows repeat awards of the same code; the engine's
// already-held check is what keeps awards one-time in practice.
type UserAchievement struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"index;not null" json:"user_id"`
	AchievementID uint      `gorm:"index;not null" json:"achievement_id"`
	EarnedAt      time.Time `gorm:"not null" json:"earned_at"`
	Shown         bool      `gorm:"default:false" json:"shown"`

	Achievement Achievement `json:"achievement,omitempty"`
}

// AchievementSummary is what the purchase-completion flow hands back to the
// client for freshly earned badges.
type AchievementSummary struct {
	Code        string              `json:"code"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Category    AchievementCategory `json:"category"`
}

// Summary flattens a catalog entry for API responses.
func (a Achievement) Summary() AchievementSummary {
	return AchievementSummary{
		Code:        a.Code,
		Name:        a.Name,
		Description: a.Description,
		Category:    a.Category,
	}
}

// DefaultCatalog seeds the achievement catalog. Codes must stay in sync with
// the engine's tier tables; services.ValidateRuleset checks that at startup.
var DefaultCatalog = []Achievement{
	{Code: "BIG_SPENDER_5", Name: "Big Spender", Description: "Spent 5 € or more in a single purchase", Category: CategorySinglePurchase, Icon: "💶"},
	{Code: "BIG_SPENDER_10", Name: "Bigger Spender", Description: "Spent 10 € or more in a single purchase", Category: CategorySinglePurchase, Icon: "💰"},
	{Code: "BIG_SPENDER_15", Name: "Biggest Spender", Description: "Spent 15 € or more in a single purchase", Category: CategorySinglePurchase, Icon: "🤑"},

	{Code: "BUSY_BEE_3", Name: "Busy Bee", Description: "Completed 3 purchases in one day", Category: CategoryDailyActivity, Icon: "🐝"},
	{Code: "BUSY_BEE_5", Name: "Swarm", Description: "Completed 5 purchases in one day", Category: CategoryDailyActivity, Icon: "🍯"},

	{Code: "STREAK_3", Name: "Warming Up", Description: "Purchased on 3 days in a row", Category: CategoryStreak, Icon: "🔥"},
	{Code: "STREAK_7", Name: "Full Week", Description: "Purchased on 7 days in a row", Category: CategoryStreak, Icon: "📅"},
	{Code: "STREAK_14", Name: "Fortnight", Description: "Purchased on 14 days in a row", Category: CategoryStreak, Icon: "⚡"},
	{Code: "STREAK_30", Name: "Iron Habit", Description: "Purchased on 30 days in a row", Category: CategoryStreak, Icon: "🏆"},
	{Code: "WEEKLY_REGULAR", Name: "Regular", Description: "Purchased in each of the last four weeks", Category: CategoryStreak, Icon: "🗓️"},

	{Code: "COMEBACK_30", Name: "Welcome Back", Description: "Returned after 30 days away", Category: CategoryComeback, Icon: "👋"},
	{Code: "COMEBACK_60", Name: "Long Time No See", Description: "Returned after 60 days away", Category: CategoryComeback, Icon: "🕰️"},
	{Code: "COMEBACK_90", Name: "Back From The Dead", Description: "Returned after 90 days away", Category: CategoryComeback, Icon: "🧟"},

	{Code: "DEBT_15", Name: "On The Tab", Description: "Ran up a tab of 15 € or more", Category: CategoryHighDebt, Icon: "📋"},
	{Code: "DEBT_25", Name: "Deep Tab", Description: "Ran up a tab of 25 € or more", Category: CategoryHighDebt, Icon: "📉"},
	{Code: "DEBT_50", Name: "House Favorite", Description: "Ran up a tab of 50 € or more", Category: CategoryHighDebt, Icon: "🏦"},

	{Code: "TOTAL_SPENT_50", Name: "Regular Customer", Description: "Spent 50 € in total", Category: CategoryTotalSpent, Icon: "🥉"},
	{Code: "TOTAL_SPENT_100", Name: "Loyal Customer", Description: "Spent 100 € in total", Category: CategoryTotalSpent, Icon: "🥈"},
	{Code: "TOTAL_SPENT_250", Name: "Snack Patron", Description: "Spent 250 € in total", Category: CategoryTotalSpent, Icon: "🥇"},
	{Code: "TOTAL_SPENT_500", Name: "Snack Legend", Description: "Spent 500 € in total", Category: CategoryTotalSpent, Icon: "👑"},
}
