package services

import (
	"snackbox/models"
	"snackbox/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedAchievementCatalog upserts the default catalog by code and then checks
// that every tier in the ruleset has a catalog row. Idempotent: existing rows
// keep their id and any admin-edited display fields.
func SeedAchievementCatalog(db *gorm.DB, rules Ruleset) error {
	catalog := make([]models.Achievement, len(models.DefaultCatalog))
	copy(catalog, models.DefaultCatalog)

	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(&catalog).Error; err != nil {
		return err
	}

	var all []models.Achievement
	if err := db.Find(&all).Error; err != nil {
		return err
	}
	if err := ValidateRuleset(rules, all); err != nil {
		return err
	}

	utils.GetLogger().Info("achievement catalog ready", zap.Int("entries", len(all)))
	return nil
}
