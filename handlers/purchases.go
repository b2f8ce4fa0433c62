package handlers

import (
	"errors"
	"strconv"

	"snackbox/middleware"
	"snackbox/services"

	"github.com/gofiber/fiber/v2"
)

func SetupPurchaseRoutes(app *fiber.App, purchases *services.PurchaseService) {
	group := app.Group("/purchases", middleware.RequireAuth)

	// Scan one product barcode into the caller's open purchase.
	group.Post("/scan", func(c *fiber.Ctx) error {
		userID, err := middleware.GetUserID(c)
		if err != nil {
			return err
		}
		var req struct {
			Barcode string `json:"barcode"`
		}
		if err := c.BodyParser(&req); err != nil || req.Barcode == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "barcode is required"})
		}

		scan, err := purchases.AddScan(c.Context(), userID, req.Barcode)
		if errors.Is(err, services.ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown barcode"})
		}
		if errors.Is(err, services.ErrProductInactive) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "product is not for sale"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to register scan"})
		}
		return c.Status(fiber.StatusCreated).JSON(scan)
	})

	group.Get("/current", func(c *fiber.Ctx) error {
		userID, err := middleware.GetUserID(c)
		if err != nil {
			return err
		}
		purchase, err := purchases.Current(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load purchase"})
		}
		if purchase == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no open purchase"})
		}
		return c.JSON(fiber.Map{"purchase": purchase, "total": purchase.Total()})
	})

	// Complete the purchase; newly earned achievements ride along in the
	// response so the client can show fresh badges immediately.
	group.Post("/:id/complete", func(c *fiber.Ctx) error {
		userID, err := middleware.GetUserID(c)
		if err != nil {
			return err
		}
		id, err := strconv.ParseUint(c.Params("id"), 10, 32)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid purchase id"})
		}

		purchase, earned, err := purchases.Complete(c.Context(), userID, uint(id))
		if errors.Is(err, services.ErrPurchaseNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "purchase not found"})
		}
		if errors.Is(err, services.ErrPurchaseCompleted) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "purchase already completed"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to complete purchase"})
		}
		return c.JSON(fiber.Map{
			"purchase":         purchase,
			"total":            purchase.Total(),
			"new_achievements": earned,
		})
	})

	group.Get("/", func(c *fiber.Ctx) error {
		userID, err := middleware.GetUserID(c)
		if err != nil {
			return err
		}
		limit, _ := strconv.Atoi(c.Query("limit", "20"))
		history, err := purchases.History(c.Context(), userID, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load history"})
		}
		return c.JSON(history)
	})
}
