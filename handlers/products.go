package handlers

import (
	"errors"
	"strconv"

	"snackbox/middleware"
	"snackbox/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

func SetupProductRoutes(app *fiber.App, products *services.ProductService) {
	group := app.Group("/products", middleware.RequireAuth)

	group.Get("/", func(c *fiber.Ctx) error {
		includeInactive := c.QueryBool("all") && c.Locals("isAdmin") == true
		list, err := products.List(c.Context(), includeInactive)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list products"})
		}
		return c.JSON(list)
	})

	group.Get("/barcode/:barcode", func(c *fiber.Ctx) error {
		product, err := products.GetByBarcode(c.Context(), c.Params("barcode"))
		if errors.Is(err, services.ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
		}
		return c.JSON(product)
	})

	group.Get("/:slug", func(c *fiber.Ctx) error {
		product, err := products.GetBySlug(c.Context(), c.Params("slug"))
		if errors.Is(err, services.ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
		}
		return c.JSON(product)
	})

	admin := app.Group("/admin/products", middleware.RequireAuth, middleware.RequireAdmin)

	admin.Post("/", func(c *fiber.Ctx) error {
		var req struct {
			Name    string `json:"name"`
			Barcode string `json:"barcode"`
			Price   string `json:"price"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		price, err := decimal.NewFromString(req.Price)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid price"})
		}

		product, err := products.Create(c.Context(), req.Name, req.Barcode, price)
		if errors.Is(err, services.ErrInvalidAmount) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "price must be positive"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create product"})
		}
		return c.Status(fiber.StatusCreated).JSON(product)
	})

	admin.Put("/:id", func(c *fiber.Ctx) error {
		id, err := strconv.ParseUint(c.Params("id"), 10, 32)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
		}
		var req struct {
			Name   string `json:"name"`
			Price  string `json:"price"`
			Active bool   `json:"active"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		price := decimal.Zero
		if req.Price != "" {
			price, err = decimal.NewFromString(req.Price)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid price"})
			}
		}

		product, err := products.Update(c.Context(), uint(id), req.Name, price, req.Active)
		if errors.Is(err, services.ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update product"})
		}
		return c.JSON(product)
	})
}
