package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/astrovani/backend/internal/analytics"
	"github.com/astrovani/backend/internal/domain"
	"github.com/astrovani/backend/internal/repository"
	"github.com/astrovani/backend/pkg/mylogger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrInvalidPayload marks a verified delivery whose payload is missing
// required fields. The sender gets a 400 and should not retry.
var ErrInvalidPayload = errors.New("invalid webhook payload")

// WebhookMeta carries request attributes forwarded to the ads
// collector alongside a purchase.
type WebhookMeta struct {
	ClientIP  string
	UserAgent string
}

type PurchaseNotifier interface {
	PurchaseCaptured(ctx context.Context, p analytics.Purchase)
}

// WebhookService reconciles verified gateway deliveries against the
// order and payment stores. Every mutation is idempotent, so a
// redelivered event leaves the store unchanged.
type WebhookService interface {
	Process(ctx context.Context, event domain.WebhookEvent, meta WebhookMeta) error
}

type webhookService struct {
	pool        *pgxpool.Pool
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	notifier    PurchaseNotifier
	logger      *zap.Logger
	tracer      trace.Tracer
}

func NewWebhookService(
	pool *pgxpool.Pool,
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	notifier PurchaseNotifier,
	logger *zap.Logger,
) WebhookService {
	return &webhookService{
		pool:        pool,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		notifier:    notifier,
		logger:      logger,
		tracer:      otel.Tracer("service/webhook_service"),
	}
}

func (s *webhookService) Process(ctx context.Context, event domain.WebhookEvent, meta WebhookMeta) error {
	ctx, span := s.tracer.Start(ctx, "WebhookService.Process")
	defer span.End()

	span.SetAttributes(
		attribute.String("event", string(event.Event)),
	)

	mylogger.Info(ctx, s.logger, "Processing webhook event",
		zap.String("event", string(event.Event)),
	)

	switch event.Event {
	case domain.EventPaymentAuthorized:
		return s.handlePaymentEvent(ctx, event, domain.PaymentStatusAuthorized, meta)
	case domain.EventPaymentCaptured:
		return s.handlePaymentEvent(ctx, event, domain.PaymentStatusCaptured, meta)
	case domain.EventPaymentFailed:
		return s.handlePaymentEvent(ctx, event, domain.PaymentStatusFailed, meta)
	case domain.EventOrderPaid:
		return s.handleOrderPaid(ctx, event, meta)
	case domain.EventRefundProcessed:
		return s.handleRefundProcessed(ctx, event)
	default:
		// Deliberately ignored. Responding success keeps the gateway
		// from redelivering events this system does not care about.
		mylogger.Info(ctx, s.logger, "Unhandled webhook event type",
			zap.String("event", string(event.Event)),
		)
		return nil
	}
}

// handlePaymentEvent upserts the payment row keyed by the gateway
// payment id and, for captured payments, flips the order to paid in
// the same transaction.
func (s *webhookService) handlePaymentEvent(ctx context.Context, event domain.WebhookEvent, status domain.PaymentStatus, meta WebhookMeta) error {
	ctx, span := s.tracer.Start(ctx, "WebhookService.handlePaymentEvent")
	defer span.End()

	var payload domain.PaymentPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		mylogger.Warn(ctx, s.logger, "Failed to decode payment payload", zap.Error(err))
		return ErrInvalidPayload
	}

	entity := payload.Payment.Entity
	if entity.ID == "" || entity.OrderID == "" {
		mylogger.Warn(ctx, s.logger, "Payment entity missing ids",
			zap.String("event", string(event.Event)),
		)
		return ErrInvalidPayload
	}

	span.SetAttributes(
		attribute.String("razorpay_payment_id", entity.ID),
		attribute.String("razorpay_order_id", entity.OrderID),
	)

	order, err := s.orderRepo.GetByGatewayOrderID(ctx, entity.OrderID)
	if err != nil {
		// Not found surfaces as 404 so the gateway retries once the
		// order exists. No orphan payment row is ever created.
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		mylogger.Error(ctx, s.logger, "Error beginning transaction", zap.Error(err))
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		err := tx.Rollback(cleanupCtx)

		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(ctx, s.logger, "Error rolling back transaction",
				zap.Error(err),
				zap.String("method_name", "handlePaymentEvent"),
			)
		}
	}()

	if err := s.upsertPayment(ctx, tx, order, entity, status); err != nil {
		return err
	}

	if status == domain.PaymentStatusCaptured {
		if err := s.orderRepo.UpdateStatusByGatewayOrderID(ctx, tx, entity.OrderID, domain.OrderStatusPaid); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	mylogger.Info(ctx, s.logger, "Payment event reconciled",
		zap.String("razorpay_payment_id", entity.ID),
		zap.String("status", string(status)),
	)

	if status == domain.PaymentStatusCaptured {
		s.notifier.PurchaseCaptured(ctx, analytics.Purchase{
			TransactionID: entity.ID,
			EventID:       entity.ID,
			Value:         float64(entity.Amount) / 100,
			Currency:      entity.Currency,
			ClientID:      "srv." + order.GatewayOrderID,
			Email:         entity.Email,
			ClientIP:      meta.ClientIP,
			UserAgent:     meta.UserAgent,
		})
	}

	return nil
}

// upsertPayment inserts the payment or rewrites its mutable fields.
// A unique-violation from a concurrent duplicate delivery falls back
// to the update path, preserving the idempotence guarantee without
// any locking.
func (s *webhookService) upsertPayment(ctx context.Context, tx pgx.Tx, order *domain.Order, entity domain.PaymentEntity, status domain.PaymentStatus) error {
	payment := &domain.Payment{
		GatewayPaymentID: entity.ID,
		OrderID:          order.ID,
		Amount:           entity.Amount,
		Currency:         entity.Currency,
		Status:           status,
	}
	if entity.Method != "" {
		payment.Method = &entity.Method
	}
	if entity.Email != "" {
		payment.Email = &entity.Email
	}
	if entity.Contact != "" {
		payment.Contact = &entity.Contact
	}
	if entity.Fee != 0 {
		payment.Fees = &entity.Fee
	}
	if entity.Tax != 0 {
		payment.Tax = &entity.Tax
	}

	_, err := s.paymentRepo.GetByGatewayPaymentID(ctx, entity.ID)
	switch {
	case err == nil:
		return s.paymentRepo.Update(ctx, tx, payment)
	case errors.Is(err, repository.ErrPaymentNotFound):
		insertErr := s.paymentRepo.Insert(ctx, tx, payment)
		if errors.Is(insertErr, repository.ErrDuplicatePayment) {
			return s.paymentRepo.Update(ctx, tx, payment)
		}
		return insertErr
	default:
		return err
	}
}

func (s *webhookService) handleOrderPaid(ctx context.Context, event domain.WebhookEvent, meta WebhookMeta) error {
	ctx, span := s.tracer.Start(ctx, "WebhookService.handleOrderPaid")
	defer span.End()

	var payload domain.OrderPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		mylogger.Warn(ctx, s.logger, "Failed to decode order payload", zap.Error(err))
		return ErrInvalidPayload
	}

	entity := payload.Order.Entity
	if entity.ID == "" {
		mylogger.Warn(ctx, s.logger, "Order entity missing id")
		return ErrInvalidPayload
	}

	span.SetAttributes(
		attribute.String("razorpay_order_id", entity.ID),
	)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		mylogger.Error(ctx, s.logger, "Error beginning transaction", zap.Error(err))
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		err := tx.Rollback(cleanupCtx)

		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(ctx, s.logger, "Error rolling back transaction",
				zap.Error(err),
				zap.String("method_name", "handleOrderPaid"),
			)
		}
	}()

	if err := s.orderRepo.UpdateStatusByGatewayOrderID(ctx, tx, entity.ID, domain.OrderStatusPaid); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	mylogger.Info(ctx, s.logger, "Order marked paid",
		zap.String("razorpay_order_id", entity.ID),
	)

	s.notifier.PurchaseCaptured(ctx, analytics.Purchase{
		TransactionID: entity.ID,
		EventID:       entity.ID,
		Value:         float64(entity.AmountPaid) / 100,
		Currency:      entity.Currency,
		ClientID:      "srv." + entity.ID,
		ClientIP:      meta.ClientIP,
		UserAgent:     meta.UserAgent,
	})

	return nil
}

func (s *webhookService) handleRefundProcessed(ctx context.Context, event domain.WebhookEvent) error {
	ctx, span := s.tracer.Start(ctx, "WebhookService.handleRefundProcessed")
	defer span.End()

	var payload domain.RefundPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		mylogger.Warn(ctx, s.logger, "Failed to decode refund payload", zap.Error(err))
		return ErrInvalidPayload
	}

	entity := payload.Refund.Entity
	if entity.PaymentID == "" {
		mylogger.Warn(ctx, s.logger, "Refund entity missing payment id")
		return ErrInvalidPayload
	}

	span.SetAttributes(
		attribute.String("razorpay_payment_id", entity.PaymentID),
	)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		mylogger.Error(ctx, s.logger, "Error beginning transaction", zap.Error(err))
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		err := tx.Rollback(cleanupCtx)

		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(ctx, s.logger, "Error rolling back transaction",
				zap.Error(err),
				zap.String("method_name", "handleRefundProcessed"),
			)
		}
	}()

	err = s.paymentRepo.MarkRefunded(ctx, tx, entity.PaymentID)
	if errors.Is(err, repository.ErrPaymentNotFound) {
		// A refund for a payment this system never saw is dropped, not
		// failed. The gateway must not retry it.
		mylogger.Warn(ctx, s.logger, "Payment not found for refund",
			zap.String("razorpay_payment_id", entity.PaymentID),
		)
		return nil
	}
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	mylogger.Info(ctx, s.logger, "Payment marked refunded",
		zap.String("razorpay_payment_id", entity.PaymentID),
	)

	return nil
}
