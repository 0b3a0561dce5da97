package http

import (
	"github.com/astrovani/backend/internal/transport/http/handler"
	"github.com/astrovani/backend/internal/transport/http/middleware"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Webhook  *handler.WebhookHandler
	Checkout *handler.CheckoutHandler
	Booking  *handler.BookingHandler
	Lead     *handler.LeadHandler
	Admin    *handler.AdminHandler
}

func RegisterRoutes(app *fiber.App, h *Handlers, adminToken string) {
	api := app.Group("/api")

	razorpay := api.Group("/razorpay")
	razorpay.Post("/webhook", h.Webhook.Handle)
	razorpay.Post("/order", h.Checkout.CreateOrder)
	razorpay.Post("/verify", h.Checkout.VerifyPayment)

	api.Post("/leads", h.Lead.Create)
	api.Post("/bookings", h.Booking.Create)

	admin := api.Group("/admin", middleware.NewAdminMiddleware(adminToken))
	admin.Get("/orders", h.Admin.ListOrders)
	admin.Get("/payments", h.Admin.ListPayments)
	admin.Get("/bookings", h.Admin.ListBookings)
	admin.Get("/leads", h.Admin.ListLeads)
}
