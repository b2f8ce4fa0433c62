package services

import (
	"testing"

	"snackbox/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRulesetMatchesDefaultCatalog(t *testing.T) {
	// Every code the shipped tiers can award must have a catalog row,
	// otherwise the engine would silently never award it.
	require.NoError(t, ValidateRuleset(DefaultRuleset(), models.DefaultCatalog))
}

func TestValidateRulesetRejectsUnknownCode(t *testing.T) {
	rules := DefaultRuleset()
	rules.WeeklyStreakCode = "DOES_NOT_EXIST"

	err := ValidateRuleset(rules, models.DefaultCatalog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DOES_NOT_EXIST")
}

func TestRulesetCodesListsEveryTier(t *testing.T) {
	rules := DefaultRuleset()
	codes := rules.Codes()

	expected := 0
	expected += len(rules.SinglePurchase)
	expected += len(rules.DailyCount)
	expected += len(rules.DailyStreak)
	expected++ // weekly streak
	expected += len(rules.Comeback)
	expected += len(rules.Debt)
	expected += len(rules.TotalSpent)

	assert.Len(t, codes, expected)
}
