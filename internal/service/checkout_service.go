package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/astrovani/backend/internal/domain"
	"github.com/astrovani/backend/internal/gateway"
	"github.com/astrovani/backend/internal/repository"
	"github.com/astrovani/backend/internal/signature"
	"github.com/astrovani/backend/pkg/mylogger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	ErrInvalidAmount    = errors.New("amount in the smallest currency unit is required")
	ErrInvalidSignature = errors.New("invalid checkout signature")
)

type CreateOrderInput struct {
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Receipt   string            `json:"receipt"`
	Product   string            `json:"product"`
	Notes     map[string]string `json:"notes"`
	BookingID *int64            `json:"booking_id"`
}

// CheckoutService drives the payment flow before webhooks take over:
// creating a gateway order and verifying the browser-side callback.
type CheckoutService interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error)
	VerifyPayment(ctx context.Context, gatewayOrderID, gatewayPaymentID, sig string) (*domain.Order, error)
}

type checkoutService struct {
	pool      *pgxpool.Pool
	orderRepo repository.OrderRepository
	gateway   gateway.Client
	keySecret string
	logger    *zap.Logger
	tracer    trace.Tracer
}

func NewCheckoutService(
	pool *pgxpool.Pool,
	orderRepo repository.OrderRepository,
	gatewayClient gateway.Client,
	keySecret string,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutService{
		pool:      pool,
		orderRepo: orderRepo,
		gateway:   gatewayClient,
		keySecret: keySecret,
		logger:    logger,
		tracer:    otel.Tracer("service/checkout_service"),
	}
}

func (s *checkoutService) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "CheckoutService.CreateOrder")
	defer span.End()

	if in.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if in.Currency == "" {
		in.Currency = "INR"
	}
	if in.Receipt == "" {
		in.Receipt = "rcpt_" + uuid.NewString()
	}
	if in.Product == "" {
		in.Product = "consultation"
	}

	span.SetAttributes(
		attribute.Int64("amount", in.Amount),
		attribute.String("currency", in.Currency),
		attribute.String("product", in.Product),
	)

	gatewayOrderID, err := s.gateway.CreateOrder(ctx, in.Amount, in.Currency, in.Receipt, in.Notes)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		GatewayOrderID: gatewayOrderID,
		Amount:         in.Amount,
		Currency:       in.Currency,
		Status:         domain.OrderStatusCreated,
		Product:        in.Product,
		Receipt:        in.Receipt,
		Notes:          in.Notes,
		BookingID:      in.BookingID,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	mylogger.Info(ctx, s.logger, "Checkout order created",
		zap.String("razorpay_order_id", order.GatewayOrderID),
		zap.Int64("amount", order.Amount),
	)

	return order, nil
}

func (s *checkoutService) VerifyPayment(ctx context.Context, gatewayOrderID, gatewayPaymentID, sig string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "CheckoutService.VerifyPayment")
	defer span.End()

	span.SetAttributes(
		attribute.String("razorpay_order_id", gatewayOrderID),
		attribute.String("razorpay_payment_id", gatewayPaymentID),
	)

	if !signature.VerifyCheckout(gatewayOrderID, gatewayPaymentID, sig, s.keySecret) {
		mylogger.Warn(ctx, s.logger, "Checkout signature mismatch",
			zap.String("razorpay_order_id", gatewayOrderID),
		)
		return nil, ErrInvalidSignature
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		mylogger.Error(ctx, s.logger, "Error beginning transaction", zap.Error(err))
		return nil, fmt.Errorf("error beginning transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		err := tx.Rollback(cleanupCtx)

		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(ctx, s.logger, "Error rolling back transaction",
				zap.Error(err),
				zap.String("method_name", "VerifyPayment"),
			)
		}
	}()

	if err := s.orderRepo.UpdateStatusByGatewayOrderID(ctx, tx, gatewayOrderID, domain.OrderStatusPaid); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	mylogger.Info(ctx, s.logger, "Checkout payment verified",
		zap.String("razorpay_order_id", gatewayOrderID),
	)

	return s.orderRepo.GetByGatewayOrderID(ctx, gatewayOrderID)
}
