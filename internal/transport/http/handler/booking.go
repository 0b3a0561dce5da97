package handler

import (
	"errors"

	"github.com/astrovani/backend/internal/service"
	"github.com/astrovani/backend/pkg/mylogger"
	"github.com/astrovani/backend/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service service.BookingService
	logger  *zap.Logger
}

func NewBookingHandler(bookingService service.BookingService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service: bookingService,
		logger:  logger,
	}
}

func (h *BookingHandler) Create(c *fiber.Ctx) error {
	var input service.BookingInput
	if err := c.BodyParser(&input); err != nil {
		h.logger.Warn("failed to parse body in create booking", zap.Error(err))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	booking, event, err := h.service.Create(c.UserContext(), input)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"errors": utils.FormatValidationError(err),
			})
		}

		mylogger.Error(c.UserContext(), h.logger, "create booking failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create booking",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":            true,
		"booking":       booking,
		"calendarEvent": event,
	})
}
