package handler

import (
	"errors"

	"github.com/astrovani/backend/internal/repository"
	"github.com/astrovani/backend/internal/service"
	"github.com/astrovani/backend/pkg/mylogger"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	service service.CheckoutService
	logger  *zap.Logger
}

func NewCheckoutHandler(checkoutService service.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: checkoutService,
		logger:  logger,
	}
}

func (h *CheckoutHandler) CreateOrder(c *fiber.Ctx) error {
	var input service.CreateOrderInput
	if err := c.BodyParser(&input); err != nil {
		h.logger.Warn("failed to parse body in create order", zap.Error(err))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	order, err := h.service.CreateOrder(c.UserContext(), input)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAmount) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		mylogger.Error(c.UserContext(), h.logger, "create order failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create order",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"order": order,
	})
}

type verifyRequest struct {
	GatewayOrderID   string `json:"razorpay_order_id"`
	GatewayPaymentID string `json:"razorpay_payment_id"`
	Signature        string `json:"razorpay_signature"`
}

func (h *CheckoutHandler) VerifyPayment(c *fiber.Ctx) error {
	var input verifyRequest
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"ok":    false,
			"error": "error parsing body",
		})
	}

	if input.GatewayOrderID == "" || input.GatewayPaymentID == "" || input.Signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"ok":    false,
			"error": "Missing verification fields",
		})
	}

	order, err := h.service.VerifyPayment(c.UserContext(), input.GatewayOrderID, input.GatewayPaymentID, input.Signature)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"ok":    false,
				"error": "Invalid signature",
			})
		case errors.Is(err, repository.ErrOrderNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"ok":    false,
				"error": "Order not found",
			})
		default:
			mylogger.Error(c.UserContext(), h.logger, "verify payment failed", zap.Error(err))

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"ok":    false,
				"error": "Verification failed",
			})
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":    true,
		"order": order,
	})
}
