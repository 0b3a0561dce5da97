package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/astrovani/backend/internal/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeOrderRepo struct {
	lastPage     int
	lastPageSize int
	lastStatus   string
	orders       []domain.Order
	total        int64
}

func (f *fakeOrderRepo) Create(ctx context.Context, order *domain.Order) error { return nil }

func (f *fakeOrderRepo) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	return nil, nil
}

func (f *fakeOrderRepo) UpdateStatusByGatewayOrderID(ctx context.Context, tx pgx.Tx, gatewayOrderID string, status domain.OrderStatus) error {
	return nil
}

func (f *fakeOrderRepo) List(ctx context.Context, page, pageSize int, status string) ([]domain.Order, int64, error) {
	f.lastPage = page
	f.lastPageSize = pageSize
	f.lastStatus = status
	return f.orders, f.total, nil
}

type fakePaymentRepo struct{}

func (f *fakePaymentRepo) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.Payment, error) {
	return nil, nil
}
func (f *fakePaymentRepo) Insert(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error {
	return nil
}
func (f *fakePaymentRepo) Update(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error {
	return nil
}
func (f *fakePaymentRepo) MarkRefunded(ctx context.Context, tx pgx.Tx, gatewayPaymentID string) error {
	return nil
}
func (f *fakePaymentRepo) List(ctx context.Context, page, pageSize int, status string) ([]domain.Payment, int64, error) {
	return nil, 0, nil
}

type fakeBookingRepo struct{}

func (f *fakeBookingRepo) Create(ctx context.Context, booking *domain.Booking) error { return nil }
func (f *fakeBookingRepo) List(ctx context.Context, page, pageSize int, status string) ([]domain.Booking, int64, error) {
	return nil, 0, nil
}

type fakeLeadRepo struct{}

func (f *fakeLeadRepo) Create(ctx context.Context, lead *domain.Lead) error { return nil }
func (f *fakeLeadRepo) List(ctx context.Context, page, pageSize int) ([]domain.Lead, int64, error) {
	return []domain.Lead{{ID: 1, Email: "user@example.com"}}, 1, nil
}

func newAdminApp(orderRepo *fakeOrderRepo) *fiber.App {
	app := fiber.New()
	h := NewAdminHandler(orderRepo, &fakePaymentRepo{}, &fakeBookingRepo{}, &fakeLeadRepo{}, zap.NewNop())
	app.Get("/api/admin/orders", h.ListOrders)
	app.Get("/api/admin/payments", h.ListPayments)
	app.Get("/api/admin/bookings", h.ListBookings)
	app.Get("/api/admin/leads", h.ListLeads)
	return app
}

func adminGet(t *testing.T, app *fiber.App, path string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	return res
}

func TestAdminListOrders(t *testing.T) {
	repo := &fakeOrderRepo{
		orders: []domain.Order{{ID: 1, GatewayOrderID: "order_1", Status: domain.OrderStatusPaid}},
		total:  42,
	}
	app := newAdminApp(repo)

	res := adminGet(t, app, "/api/admin/orders?page=2&pageSize=5&status=paid")
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	body := decodeBody(t, res)
	require.Equal(t, float64(42), body["total"])
	require.Equal(t, float64(2), body["page"])
	require.Equal(t, float64(5), body["pageSize"])

	require.Equal(t, 2, repo.lastPage)
	require.Equal(t, 5, repo.lastPageSize)
	require.Equal(t, "paid", repo.lastStatus)
}

func TestAdminListOrdersClampsPageSize(t *testing.T) {
	repo := &fakeOrderRepo{}
	app := newAdminApp(repo)

	res := adminGet(t, app, "/api/admin/orders?pageSize=5000")
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	require.Equal(t, maxPageSize, repo.lastPageSize)
}

func TestAdminListOrdersBadPagination(t *testing.T) {
	app := newAdminApp(&fakeOrderRepo{})

	res := adminGet(t, app, "/api/admin/orders?page=0")
	require.Equal(t, fiber.StatusBadRequest, res.StatusCode)
	require.Equal(t, "INVALID_PAGE", decodeBody(t, res)["code"])

	res = adminGet(t, app, "/api/admin/orders?pageSize=-1")
	require.Equal(t, fiber.StatusBadRequest, res.StatusCode)
	require.Equal(t, "INVALID_PAGE_SIZE", decodeBody(t, res)["code"])
}

func TestAdminListOrdersBadStatus(t *testing.T) {
	app := newAdminApp(&fakeOrderRepo{})

	res := adminGet(t, app, "/api/admin/orders?status=sideways")
	require.Equal(t, fiber.StatusBadRequest, res.StatusCode)
	require.Equal(t, "INVALID_STATUS", decodeBody(t, res)["code"])
}

func TestAdminListPaymentsBadStatus(t *testing.T) {
	app := newAdminApp(&fakeOrderRepo{})

	res := adminGet(t, app, "/api/admin/payments?status=pending")
	require.Equal(t, fiber.StatusBadRequest, res.StatusCode)
	require.Equal(t, "INVALID_STATUS", decodeBody(t, res)["code"])
}

func TestAdminListLeads(t *testing.T) {
	app := newAdminApp(&fakeOrderRepo{})

	res := adminGet(t, app, "/api/admin/leads")
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	body := decodeBody(t, res)
	require.Equal(t, float64(1), body["total"])
}
