package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snackbox/handlers"
	"snackbox/models"
	"snackbox/services"
	"snackbox/utils"
	"snackbox/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	if err := utils.InitLogger(os.Getenv("ENV")); err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer utils.SyncLogger()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Invoice{},
		&models.Batch{},
		&models.StockMovement{},
		&models.Purchase{},
		&models.Scan{},
		&models.Payment{},
		&models.Achievement{},
		&models.UserAchievement{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	achievementService := services.NewAchievementService(db)
	if err := services.SeedAchievementCatalog(db, achievementService.Rules); err != nil {
		log.Fatal("failed to seed achievement catalog:", err)
	}

	userService := services.NewUserService(db)
	productService := services.NewProductService(db)
	purchaseService := services.NewPurchaseService(db, achievementService)
	paymentService := services.NewPaymentService(db)
	inventoryService := services.NewInventoryService(db)

	app := fiber.New(fiber.Config{
		AppName: "snackbox",
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	handlers.SetupAuthRoutes(app, userService)
	handlers.SetupProductRoutes(app, productService)
	handlers.SetupPurchaseRoutes(app, purchaseService)
	handlers.SetupPaymentRoutes(app, paymentService)
	handlers.SetupAchievementRoutes(app, db)
	handlers.SetupInventoryRoutes(app, inventoryService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Nightly database backup to object storage.
	if os.Getenv("S3_BUCKET_NAME") != "" {
		if err := utils.InitStorage(); err != nil {
			log.Fatal("failed to initialize object storage:", err)
		}
		backupWorker := workers.NewBackupWorker(dsn)
		if err := backupWorker.Start(); err != nil {
			log.Fatal("failed to start backup worker:", err)
		}
		defer backupWorker.Stop()
	} else {
		log.Println("⚠️  S3_BUCKET_NAME not set — database backups disabled")
	}

	// Debt reminder mails.
	if apiKey := os.Getenv("MAIL_API_KEY"); apiKey != "" {
		mailer := utils.NewMailer(
			getEnv("MAIL_API_URL", "https://api.sendgrid.com/v3/mail/send"),
			apiKey,
			getEnv("MAIL_SENDER", "snackbox@example.com"),
		)
		threshold, err := decimal.NewFromString(getEnv("REMINDER_DEBT_THRESHOLD", "10"))
		if err != nil {
			log.Fatal("invalid REMINDER_DEBT_THRESHOLD:", err)
		}
		reminderWorker := workers.NewReminderWorker(db, mailer, threshold)
		go reminderWorker.Poll(ctx, 6*time.Hour)
	} else {
		log.Println("⚠️  MAIL_API_KEY not set — debt reminders disabled")
	}

	// Prometheus metrics on a separate port.
	go func() {
		metricsAddr := ":" + getEnv("METRICS_PORT", "9090")
		if err := http.ListenAndServe(metricsAddr, promhttp.Handler()); err != nil {
			log.Printf("metrics server error: %v", err)
		}
	}()

	port := getEnv("PORT", "5200")
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
