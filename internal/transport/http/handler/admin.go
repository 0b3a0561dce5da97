package handler

import (
	"github.com/astrovani/backend/internal/domain"
	"github.com/astrovani/backend/internal/repository"
	"github.com/astrovani/backend/pkg/mylogger"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const maxPageSize = 100

// AdminHandler serves the paginated read tables behind the dashboard.
type AdminHandler struct {
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	bookingRepo repository.BookingRepository
	leadRepo    repository.LeadRepository
	logger      *zap.Logger
}

func NewAdminHandler(
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	bookingRepo repository.BookingRepository,
	leadRepo repository.LeadRepository,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		bookingRepo: bookingRepo,
		leadRepo:    leadRepo,
		logger:      logger,
	}
}

// parsePagination validates page/pageSize query params and writes the
// 400 response itself on bad input. pageSize is clamped to maxPageSize
// rather than rejected.
func parsePagination(c *fiber.Ctx) (page, pageSize int, ok bool) {
	page = c.QueryInt("page", 1)
	if page < 1 {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Page must be a positive integer",
			"code":  "INVALID_PAGE",
		})
		return 0, 0, false
	}

	pageSize = c.QueryInt("pageSize", 10)
	if pageSize < 1 {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Page size must be a positive integer",
			"code":  "INVALID_PAGE_SIZE",
		})
		return 0, 0, false
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	return page, pageSize, true
}

func (h *AdminHandler) ListOrders(c *fiber.Ctx) error {
	page, pageSize, ok := parsePagination(c)
	if !ok {
		return nil
	}

	status := c.Query("status")
	if status != "" && !domain.ValidOrderStatus(status) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid status. Must be one of: created, paid, failed, refunded",
			"code":  "INVALID_STATUS",
		})
	}

	orders, total, err := h.orderRepo.List(c.UserContext(), page, pageSize, status)
	if err != nil {
		mylogger.Error(c.UserContext(), h.logger, "list orders failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"orders":   orders,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

func (h *AdminHandler) ListPayments(c *fiber.Ctx) error {
	page, pageSize, ok := parsePagination(c)
	if !ok {
		return nil
	}

	status := c.Query("status")
	if status != "" && !domain.ValidPaymentStatus(status) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid status. Must be one of: created, authorized, captured, failed, refunded",
			"code":  "INVALID_STATUS",
		})
	}

	payments, total, err := h.paymentRepo.List(c.UserContext(), page, pageSize, status)
	if err != nil {
		mylogger.Error(c.UserContext(), h.logger, "list payments failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"payments": payments,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

func (h *AdminHandler) ListBookings(c *fiber.Ctx) error {
	page, pageSize, ok := parsePagination(c)
	if !ok {
		return nil
	}

	status := c.Query("status")
	if status != "" && !domain.ValidBookingStatus(status) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid status. Must be one of: pending, confirmed, cancelled",
			"code":  "INVALID_STATUS",
		})
	}

	bookings, total, err := h.bookingRepo.List(c.UserContext(), page, pageSize, status)
	if err != nil {
		mylogger.Error(c.UserContext(), h.logger, "list bookings failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"bookings": bookings,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

func (h *AdminHandler) ListLeads(c *fiber.Ctx) error {
	page, pageSize, ok := parsePagination(c)
	if !ok {
		return nil
	}

	leads, total, err := h.leadRepo.List(c.UserContext(), page, pageSize)
	if err != nil {
		mylogger.Error(c.UserContext(), h.logger, "list leads failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"leads":    leads,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}
