package handler

import (
	"encoding/json"
	"errors"

	"github.com/astrovani/backend/internal/domain"
	"github.com/astrovani/backend/internal/repository"
	"github.com/astrovani/backend/internal/service"
	"github.com/astrovani/backend/internal/signature"
	"github.com/astrovani/backend/pkg/mylogger"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type WebhookHandler struct {
	service service.WebhookService
	secret  string
	logger  *zap.Logger
}

func NewWebhookHandler(webhookService service.WebhookService, secret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: webhookService,
		secret:  secret,
		logger:  logger,
	}
}

// Handle receives one gateway delivery. Verification runs over the raw
// body before anything is parsed, and always before any store
// mutation.
func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	sig := c.Get("X-Razorpay-Signature")
	if sig == "" {
		h.logger.Warn("Missing X-Razorpay-Signature header")

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing signature",
		})
	}

	if h.secret == "" {
		h.logger.Error("Webhook secret is not configured")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Server configuration error",
		})
	}

	body := c.Body()
	if !signature.VerifyWebhook(body, sig, h.secret) {
		h.logger.Warn("Invalid webhook signature")

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid signature",
		})
	}

	var event domain.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.logger.Warn("Failed to parse webhook body", zap.Error(err))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Malformed payload",
		})
	}

	meta := service.WebhookMeta{
		ClientIP:  c.IP(),
		UserAgent: c.Get("User-Agent"),
	}

	if err := h.service.Process(c.UserContext(), event, meta); err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Order not found",
			})
		case errors.Is(err, service.ErrInvalidPayload):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid payload",
			})
		default:
			mylogger.Error(c.UserContext(), h.logger, "Webhook processing error",
				zap.String("event", string(event.Event)),
				zap.Error(err),
			)

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
	})
}
