package service_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/astrovani/backend/internal/analytics"
	"github.com/astrovani/backend/internal/domain"
	"github.com/astrovani/backend/internal/repository"
	"github.com/astrovani/backend/internal/service"
	"github.com/astrovani/backend/pkg/testsuite"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type recordingNotifier struct {
	mu        sync.Mutex
	purchases []analytics.Purchase
}

func (n *recordingNotifier) PurchaseCaptured(ctx context.Context, p analytics.Purchase) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.purchases = append(n.purchases, p)
}

func (n *recordingNotifier) snapshot() []analytics.Purchase {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]analytics.Purchase(nil), n.purchases...)
}

type WebhookServiceSuite struct {
	testsuite.BaseSuite
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	notifier    *recordingNotifier
	service     service.WebhookService
}

func (s *WebhookServiceSuite) SetupSuite() {
	s.SetupInfrastructure("../../migrations")

	logger := zap.NewNop()
	s.orderRepo = repository.NewOrderRepository(s.DbPool, logger)
	s.paymentRepo = repository.NewPaymentRepository(s.DbPool, logger)
}

func (s *WebhookServiceSuite) TearDownSuite() {
	s.TearDownInfrastructure()
}

func (s *WebhookServiceSuite) SetupTest() {
	s.TruncateTable("payments")
	s.TruncateTable("orders")

	s.notifier = &recordingNotifier{}
	s.service = service.NewWebhookService(s.DbPool, s.orderRepo, s.paymentRepo, s.notifier, zap.NewNop())
}

func (s *WebhookServiceSuite) createOrder(gatewayOrderID string, amount int64) *domain.Order {
	order := &domain.Order{
		GatewayOrderID: gatewayOrderID,
		Amount:         amount,
		Currency:       "INR",
		Status:         domain.OrderStatusCreated,
		Product:        "consultation",
		Receipt:        "rcpt_" + gatewayOrderID,
	}
	s.Require().NoError(s.orderRepo.Create(s.Ctx, order))
	return order
}

func paymentEvent(s *WebhookServiceSuite, event domain.EventType, entity domain.PaymentEntity) domain.WebhookEvent {
	payload, err := json.Marshal(map[string]any{
		"payment": map[string]any{"entity": entity},
	})
	s.Require().NoError(err)

	return domain.WebhookEvent{Event: event, Payload: payload}
}

func refundEvent(s *WebhookServiceSuite, paymentID string) domain.WebhookEvent {
	payload, err := json.Marshal(map[string]any{
		"refund": map[string]any{"entity": domain.RefundEntity{
			ID:        "rfnd_1",
			PaymentID: paymentID,
			Amount:    149900,
			Currency:  "INR",
		}},
	})
	s.Require().NoError(err)

	return domain.WebhookEvent{Event: domain.EventRefundProcessed, Payload: payload}
}

func (s *WebhookServiceSuite) paymentCount() int64 {
	var count int64
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, "SELECT COUNT(*) FROM payments").Scan(&count))
	return count
}

func (s *WebhookServiceSuite) TestCapturedEventReconciles() {
	s.createOrder("order_cap1", 149900)

	entity := domain.PaymentEntity{
		ID:       "pay_cap1",
		OrderID:  "order_cap1",
		Amount:   149900,
		Currency: "INR",
		Method:   "upi",
		Email:    "user@example.com",
	}

	err := s.service.Process(s.Ctx, paymentEvent(s, domain.EventPaymentCaptured, entity), service.WebhookMeta{
		ClientIP:  "203.0.113.7",
		UserAgent: "Mozilla/5.0",
	})
	s.Require().NoError(err)

	payment, err := s.paymentRepo.GetByGatewayPaymentID(s.Ctx, "pay_cap1")
	s.Require().NoError(err)
	s.Equal(domain.PaymentStatusCaptured, payment.Status)
	s.Equal(int64(149900), payment.Amount)
	s.Require().NotNil(payment.Method)
	s.Equal("upi", *payment.Method)

	order, err := s.orderRepo.GetByGatewayOrderID(s.Ctx, "order_cap1")
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusPaid, order.Status)

	purchases := s.notifier.snapshot()
	s.Require().Len(purchases, 1)
	s.Equal("pay_cap1", purchases[0].TransactionID)
	s.Equal(1499.0, purchases[0].Value)
	s.Equal("srv.order_cap1", purchases[0].ClientID)
	s.Equal("user@example.com", purchases[0].Email)
	s.Equal("203.0.113.7", purchases[0].ClientIP)
}

func (s *WebhookServiceSuite) TestReplayedCaptureIsIdempotent() {
	s.createOrder("order_rep1", 50000)

	entity := domain.PaymentEntity{
		ID:       "pay_rep1",
		OrderID:  "order_rep1",
		Amount:   50000,
		Currency: "INR",
	}
	event := paymentEvent(s, domain.EventPaymentCaptured, entity)

	s.Require().NoError(s.service.Process(s.Ctx, event, service.WebhookMeta{}))

	first, err := s.paymentRepo.GetByGatewayPaymentID(s.Ctx, "pay_rep1")
	s.Require().NoError(err)

	time.Sleep(20 * time.Millisecond)
	s.Require().NoError(s.service.Process(s.Ctx, event, service.WebhookMeta{}))

	s.Equal(int64(1), s.paymentCount())

	second, err := s.paymentRepo.GetByGatewayPaymentID(s.Ctx, "pay_rep1")
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)
	s.True(first.CreatedAt.Equal(second.CreatedAt), "replay must not reset created_at")
}

func (s *WebhookServiceSuite) TestAuthorizedThenCaptured() {
	s.createOrder("order_auth1", 75000)

	entity := domain.PaymentEntity{
		ID:       "pay_auth1",
		OrderID:  "order_auth1",
		Amount:   75000,
		Currency: "INR",
	}

	s.Require().NoError(s.service.Process(s.Ctx, paymentEvent(s, domain.EventPaymentAuthorized, entity), service.WebhookMeta{}))

	order, err := s.orderRepo.GetByGatewayOrderID(s.Ctx, "order_auth1")
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusCreated, order.Status, "authorized must not mark the order paid")
	s.Empty(s.notifier.snapshot())

	s.Require().NoError(s.service.Process(s.Ctx, paymentEvent(s, domain.EventPaymentCaptured, entity), service.WebhookMeta{}))

	s.Equal(int64(1), s.paymentCount())

	payment, err := s.paymentRepo.GetByGatewayPaymentID(s.Ctx, "pay_auth1")
	s.Require().NoError(err)
	s.Equal(domain.PaymentStatusCaptured, payment.Status)

	order, err = s.orderRepo.GetByGatewayOrderID(s.Ctx, "order_auth1")
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusPaid, order.Status)
	s.Len(s.notifier.snapshot(), 1)
}

func (s *WebhookServiceSuite) TestFailedPaymentLeavesOrderUntouched() {
	s.createOrder("order_fail1", 30000)

	entity := domain.PaymentEntity{
		ID:       "pay_fail1",
		OrderID:  "order_fail1",
		Amount:   30000,
		Currency: "INR",
	}

	s.Require().NoError(s.service.Process(s.Ctx, paymentEvent(s, domain.EventPaymentFailed, entity), service.WebhookMeta{}))

	payment, err := s.paymentRepo.GetByGatewayPaymentID(s.Ctx, "pay_fail1")
	s.Require().NoError(err)
	s.Equal(domain.PaymentStatusFailed, payment.Status)

	order, err := s.orderRepo.GetByGatewayOrderID(s.Ctx, "order_fail1")
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusCreated, order.Status)
	s.Empty(s.notifier.snapshot())
}

func (s *WebhookServiceSuite) TestCapturedWithoutOrderLeavesNoOrphan() {
	entity := domain.PaymentEntity{
		ID:       "pay_orphan1",
		OrderID:  "order_missing",
		Amount:   10000,
		Currency: "INR",
	}

	err := s.service.Process(s.Ctx, paymentEvent(s, domain.EventPaymentCaptured, entity), service.WebhookMeta{})
	s.Require().ErrorIs(err, repository.ErrOrderNotFound)

	s.Equal(int64(0), s.paymentCount())
	s.Empty(s.notifier.snapshot())
}

func (s *WebhookServiceSuite) TestRefundMarksPaymentRefunded() {
	s.createOrder("order_ref1", 149900)

	entity := domain.PaymentEntity{
		ID:       "pay_ref1",
		OrderID:  "order_ref1",
		Amount:   149900,
		Currency: "INR",
	}
	s.Require().NoError(s.service.Process(s.Ctx, paymentEvent(s, domain.EventPaymentCaptured, entity), service.WebhookMeta{}))

	s.Require().NoError(s.service.Process(s.Ctx, refundEvent(s, "pay_ref1"), service.WebhookMeta{}))

	payment, err := s.paymentRepo.GetByGatewayPaymentID(s.Ctx, "pay_ref1")
	s.Require().NoError(err)
	s.Equal(domain.PaymentStatusRefunded, payment.Status)
}

func (s *WebhookServiceSuite) TestRefundForUnknownPaymentIsDropped() {
	err := s.service.Process(s.Ctx, refundEvent(s, "pay_never_seen"), service.WebhookMeta{})
	s.Require().NoError(err)
	s.Equal(int64(0), s.paymentCount())
}

func (s *WebhookServiceSuite) TestOrderPaidEvent() {
	s.createOrder("order_paid1", 99900)

	payload, err := json.Marshal(map[string]any{
		"order": map[string]any{"entity": domain.OrderEntity{
			ID:         "order_paid1",
			Amount:     99900,
			AmountPaid: 99900,
			Currency:   "INR",
		}},
	})
	s.Require().NoError(err)

	event := domain.WebhookEvent{Event: domain.EventOrderPaid, Payload: payload}
	s.Require().NoError(s.service.Process(s.Ctx, event, service.WebhookMeta{}))

	order, err := s.orderRepo.GetByGatewayOrderID(s.Ctx, "order_paid1")
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusPaid, order.Status)

	purchases := s.notifier.snapshot()
	s.Require().Len(purchases, 1)
	s.Equal(999.0, purchases[0].Value)
}

func (s *WebhookServiceSuite) TestUnknownEventIsIgnored() {
	event := domain.WebhookEvent{
		Event:   domain.EventType("subscription.activated"),
		Payload: json.RawMessage(`{}`),
	}
	s.Require().NoError(s.service.Process(s.Ctx, event, service.WebhookMeta{}))
	s.Equal(int64(0), s.paymentCount())
}

func (s *WebhookServiceSuite) TestPayloadMissingIDs() {
	event := paymentEvent(s, domain.EventPaymentCaptured, domain.PaymentEntity{Amount: 1000})
	err := s.service.Process(s.Ctx, event, service.WebhookMeta{})
	s.Require().ErrorIs(err, service.ErrInvalidPayload)
}

func TestWebhookServiceSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}
	suite.Run(t, new(WebhookServiceSuite))
}
