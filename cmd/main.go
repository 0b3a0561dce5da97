package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/astrovani/backend/internal/analytics"
	"github.com/astrovani/backend/internal/calendar"
	"github.com/astrovani/backend/internal/gateway"
	"github.com/astrovani/backend/internal/repository"
	"github.com/astrovani/backend/internal/service"
	"github.com/astrovani/backend/internal/transport/http"
	"github.com/astrovani/backend/internal/transport/http/handler"
	"github.com/astrovani/backend/pkg/config"
	"github.com/astrovani/backend/pkg/db"
	"github.com/astrovani/backend/pkg/utils"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not found: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := utils.InitTracer(ctx, "astrovani-backend")
	if err != nil {
		log.Fatalf("Failed to init trace: %v", err)
	}

	cfg := config.MustLoad()

	loggerCfg := config.LoggerConfig{
		Level: "info",
		Env:   cfg.Env,
	}

	logger, err := config.NewLogger(loggerCfg)
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := db.NewPostgresDB(cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("Error creating postgres DB: %v", err)
	}

	logger.Info("Astrovani backend started!")

	orderRepo := repository.NewOrderRepository(pool, logger)
	paymentRepo := repository.NewPaymentRepository(pool, logger)
	bookingRepo := repository.NewBookingRepository(pool, logger)
	leadRepo := repository.NewLeadRepository(pool, logger)

	ga4Client := analytics.NewGA4Client(cfg.Analytics.GA4MeasurementID, cfg.Analytics.GA4APISecret, logger)
	metaClient := analytics.NewMetaClient(cfg.Analytics.MetaPixelID, cfg.Analytics.MetaCAPIToken, logger)
	notifier := analytics.NewNotifier(ga4Client, metaClient, logger)

	calendarClient := calendar.NewClient(
		cfg.Calendar.ServiceAccountEmail,
		cfg.Calendar.ServiceAccountKey,
		cfg.Calendar.CalendarID,
		cfg.Calendar.Timezone,
		logger,
	)
	gatewayClient := gateway.NewClient(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, logger)

	webhookService := service.NewWebhookService(pool, orderRepo, paymentRepo, notifier, logger)
	checkoutService := service.NewCheckoutService(pool, orderRepo, gatewayClient, cfg.Razorpay.KeySecret, logger)
	bookingService := service.NewBookingService(bookingRepo, calendarClient, logger)
	leadService := service.NewLeadService(leadRepo, logger)

	app := fiber.New()

	app.Use(otelfiber.Middleware())

	app.Use(limiter.New(limiter.Config{
		Max:        20,
		Expiration: 5 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Try again later.",
			})
		},
	}))

	handlers := &http.Handlers{
		Webhook:  handler.NewWebhookHandler(webhookService, cfg.Razorpay.WebhookSecret, logger),
		Checkout: handler.NewCheckoutHandler(checkoutService, logger),
		Booking:  handler.NewBookingHandler(bookingService, logger),
		Lead:     handler.NewLeadHandler(leadService, logger),
		Admin:    handler.NewAdminHandler(orderRepo, paymentRepo, bookingRepo, leadRepo, logger),
	}

	http.RegisterRoutes(app, handlers, cfg.Admin.Token)

	go func() {
		log.Println("HTTP Service listening on: " + cfg.HTTP.Port)
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			log.Fatalf("Error listening on HTTP port %v: %v\n", cfg.HTTP.Port, err)
		}
	}()

	<-ctx.Done()

	log.Println("Shutting down gracefully...")
	shutdownContext, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownContext); err != nil {
		log.Printf("Error shutting down HTTP app: %v\n", err)
	} else {
		log.Println("HTTP App stopped gracefully")
	}

	if err := tp.Shutdown(shutdownContext); err != nil {
		log.Printf("Error shutting down telemetry: %v\n", err)
	} else {
		log.Println("Telemetry stopped correctly")
	}

	pool.Close()
}
