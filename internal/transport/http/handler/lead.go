package handler

import (
	"errors"

	"github.com/astrovani/backend/internal/repository"
	"github.com/astrovani/backend/internal/service"
	"github.com/astrovani/backend/pkg/mylogger"
	"github.com/astrovani/backend/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type LeadHandler struct {
	service service.LeadService
	logger  *zap.Logger
}

func NewLeadHandler(leadService service.LeadService, logger *zap.Logger) *LeadHandler {
	return &LeadHandler{
		service: leadService,
		logger:  logger,
	}
}

func (h *LeadHandler) Create(c *fiber.Ctx) error {
	var input service.LeadInput
	if err := c.BodyParser(&input); err != nil {
		h.logger.Warn("failed to parse body in create lead", zap.Error(err))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	lead, err := h.service.Create(c.UserContext(), input)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"errors": utils.FormatValidationError(err),
			})
		}

		if errors.Is(err, repository.ErrDuplicateLead) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Email already exists",
			})
		}

		mylogger.Error(c.UserContext(), h.logger, "create lead failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unexpected error",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":   true,
		"lead": lead,
	})
}
