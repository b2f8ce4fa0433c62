package handlers

import (
	"errors"
	"strconv"
	"time"

	"snackbox/middleware"
	"snackbox/models"
	"snackbox/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

func SetupInventoryRoutes(app *fiber.App, inventory *services.InventoryService) {
	admin := app.Group("/admin/inventory", middleware.RequireAuth, middleware.RequireAdmin)

	admin.Post("/invoices", func(c *fiber.Ctx) error {
		var req struct {
			Supplier   string `json:"supplier"`
			Number     string `json:"number"`
			Total      string `json:"total"`
			InvoicedAt string `json:"invoiced_at"`
		}
		if err := c.BodyParser(&req); err != nil || req.Supplier == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "supplier is required"})
		}
		total, err := decimal.NewFromString(req.Total)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid total"})
		}
		invoicedAt, err := time.Parse(time.RFC3339, req.InvoicedAt)
		if err != nil {
			invoicedAt = time.Now().UTC()
		}

		invoice := models.Invoice{
			Supplier:   req.Supplier,
			Number:     req.Number,
			Total:      total,
			InvoicedAt: invoicedAt,
		}
		if err := inventory.CreateInvoice(c.Context(), &invoice); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create invoice"})
		}
		return c.Status(fiber.StatusCreated).JSON(invoice)
	})

	admin.Post("/batches", func(c *fiber.Ctx) error {
		var req struct {
			ProductID  uint   `json:"product_id"`
			InvoiceID  *uint  `json:"invoice_id"`
			BestBefore string `json:"best_before"`
			Quantity   int    `json:"quantity"`
		}
		if err := c.BodyParser(&req); err != nil || req.ProductID == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "product_id is required"})
		}

		batch := models.Batch{ProductID: req.ProductID, InvoiceID: req.InvoiceID}
		if req.BestBefore != "" {
			bbd, err := time.Parse("2006-01-02", req.BestBefore)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "best_before must be YYYY-MM-DD"})
			}
			batch.BestBefore = &bbd
		}

		err := inventory.CreateBatch(c.Context(), &batch, req.Quantity)
		if errors.Is(err, services.ErrInvalidQuantity) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "quantity must be positive"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create batch"})
		}
		return c.Status(fiber.StatusCreated).JSON(batch)
	})

	admin.Post("/batches/:id/movements", func(c *fiber.Ctx) error {
		batchID, err := strconv.ParseUint(c.Params("id"), 10, 32)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid batch id"})
		}
		var req struct {
			Type     models.MovementType `json:"type"`
			Quantity int                 `json:"quantity"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		movement, err := inventory.RecordMovement(c.Context(), uint(batchID), req.Type, req.Quantity)
		switch {
		case errors.Is(err, services.ErrBatchNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "batch not found"})
		case errors.Is(err, services.ErrInvalidMovement):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid movement type"})
		case errors.Is(err, services.ErrInvalidQuantity):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "quantity must be positive"})
		case errors.Is(err, services.ErrInsufficientStock):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "not enough stock for movement"})
		case err != nil:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to record movement"})
		}
		return c.Status(fiber.StatusCreated).JSON(movement)
	})

	admin.Get("/batches/:id/stock", func(c *fiber.Ctx) error {
		batchID, err := strconv.ParseUint(c.Params("id"), 10, 32)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid batch id"})
		}
		stock, err := inventory.BatchStock(c.Context(), uint(batchID))
		if errors.Is(err, services.ErrBatchNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "batch not found"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to derive stock"})
		}
		return c.JSON(stock)
	})

	admin.Get("/products/:id/stock", func(c *fiber.Ctx) error {
		productID, err := strconv.ParseUint(c.Params("id"), 10, 32)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
		}
		stock, err := inventory.ProductStock(c.Context(), uint(productID))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to derive stock"})
		}
		return c.JSON(stock)
	})
}
