package handlers

import (
	"strconv"

	"snackbox/middleware"
	"snackbox/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupAchievementRoutes(app *fiber.App, db *gorm.DB) {
	app.Get("/achievements", middleware.RequireAuth, func(c *fiber.Ctx) error {
		var catalog []models.Achievement
		if err := db.Order("category, id").Find(&catalog).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load catalog"})
		}
		return c.JSON(catalog)
	})

	group := app.Group("/user/achievements", middleware.RequireAuth)

	group.Get("/", func(c *fiber.Ctx) error {
		userID, err := middleware.GetUserID(c)
		if err != nil {
			return err
		}
		var earned []models.UserAchievement
		if err := db.Preload("Achievement").
			Where("user_id = ?", userID).
			Order("earned_at DESC").
			Find(&earned).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load achievements"})
		}
		return c.JSON(earned)
	})

	// Unseen badges since the last acknowledgement, shown on next scan.
	group.Get("/unseen", func(c *fiber.Ctx) error {
		userID, err := middleware.GetUserID(c)
		if err != nil {
			return err
		}
		var earned []models.UserAchievement
		if err := db.Preload("Achievement").
			Where("user_id = ? AND shown = false", userID).
			Order("earned_at").
			Find(&earned).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load achievements"})
		}
		return c.JSON(earned)
	})

	group.Post("/:id/shown", func(c *fiber.Ctx) error {
		userID, err := middleware.GetUserID(c)
		if err != nil {
			return err
		}
		id, err := strconv.ParseUint(c.Params("id"), 10, 32)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
		}
		result := db.Model(&models.UserAchievement{}).
			Where("id = ? AND user_id = ?", id, userID).
			Update("shown", true)
		if result.Error != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to acknowledge"})
		}
		if result.RowsAffected == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "achievement not found"})
		}
		return c.JSON(fiber.Map{"message": "acknowledged"})
	})
}
