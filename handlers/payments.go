package handlers

import (
	"errors"

	"snackbox/middleware"
	"snackbox/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

func SetupPaymentRoutes(app *fiber.App, payments *services.PaymentService) {
	group := app.Group("/payments", middleware.RequireAuth)

	group.Post("/", func(c *fiber.Ctx) error {
		userID, err := middleware.GetUserID(c)
		if err != nil {
			return err
		}
		var req struct {
			Amount string `json:"amount"`
			Note   string `json:"note"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid amount"})
		}

		payment, err := payments.RecordPayment(c.Context(), userID, amount, req.Note)
		if errors.Is(err, services.ErrInvalidAmount) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "amount must be positive"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to record payment"})
		}
		return c.Status(fiber.StatusCreated).JSON(payment)
	})

	group.Get("/", func(c *fiber.Ctx) error {
		userID, err := middleware.GetUserID(c)
		if err != nil {
			return err
		}
		list, err := payments.ListPayments(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list payments"})
		}
		return c.JSON(list)
	})

	app.Get("/balance", middleware.RequireAuth, func(c *fiber.Ctx) error {
		userID, err := middleware.GetUserID(c)
		if err != nil {
			return err
		}
		balance, err := payments.Balance(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to compute balance"})
		}
		return c.JSON(balance)
	})
}
