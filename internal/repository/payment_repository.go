package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/astrovani/backend/internal/domain"
	"github.com/astrovani/backend/pkg/mylogger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type PaymentRepository interface {
	GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.Payment, error)
	Insert(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error
	Update(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error
	MarkRefunded(ctx context.Context, tx pgx.Tx, gatewayPaymentID string) error
	List(ctx context.Context, page, pageSize int, status string) ([]domain.Payment, int64, error)
}

type paymentRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewPaymentRepository(pool *pgxpool.Pool, logger *zap.Logger) PaymentRepository {
	return &paymentRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("repository/payment_repo"),
	}
}

func (r *paymentRepo) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.Payment, error) {
	ctx, span := r.tracer.Start(ctx, "PaymentRepository.GetByGatewayPaymentID")
	defer span.End()

	span.SetAttributes(
		attribute.String("razorpay_payment_id", gatewayPaymentID),
	)

	query := `
		SELECT id, razorpay_payment_id, order_id, amount, currency, status, method, email, contact, fees, tax, created_at
		FROM payments
		WHERE razorpay_payment_id = $1
	`

	var result domain.Payment
	if err := r.pool.QueryRow(ctx, query, gatewayPaymentID).Scan(
		&result.ID,
		&result.GatewayPaymentID,
		&result.OrderID,
		&result.Amount,
		&result.Currency,
		&result.Status,
		&result.Method,
		&result.Email,
		&result.Contact,
		&result.Fees,
		&result.Tax,
		&result.CreatedAt,
	); err != nil {
		span.RecordError(err)

		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}

		mylogger.Error(ctx, r.logger, "GetByGatewayPaymentID failed", zap.Error(err))

		return nil, fmt.Errorf("error getting payment by gateway id: %w", err)
	}

	return &result, nil
}

func (r *paymentRepo) Insert(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error {
	ctx, span := r.tracer.Start(ctx, "PaymentRepository.Insert")
	defer span.End()

	span.SetAttributes(
		attribute.String("razorpay_payment_id", payment.GatewayPaymentID),
		attribute.Int64("order_id", payment.OrderID),
		attribute.Int64("amount", payment.Amount),
	)

	query := `
		INSERT INTO payments (razorpay_payment_id, order_id, amount, currency, status, method, email, contact, fees, tax, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING id, created_at
	`

	if err := tx.QueryRow(ctx, query,
		payment.GatewayPaymentID,
		payment.OrderID,
		payment.Amount,
		payment.Currency,
		string(payment.Status),
		payment.Method,
		payment.Email,
		payment.Contact,
		payment.Fees,
		payment.Tax,
	).Scan(
		&payment.ID,
		&payment.CreatedAt,
	); err != nil {
		span.RecordError(err)

		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == "23505" {
			mylogger.Warn(ctx, r.logger, "Payment already exists",
				zap.String("razorpay_payment_id", payment.GatewayPaymentID),
			)

			return ErrDuplicatePayment
		}

		mylogger.Warn(ctx, r.logger, "Failed to insert payment", zap.Error(err))

		return fmt.Errorf("failed to insert payment: %w", err)
	}

	return nil
}

// Update rewrites every mutable field of the row keyed by the gateway
// payment id. created_at is deliberately left untouched so replayed
// deliveries never reset the original record's creation time.
func (r *paymentRepo) Update(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error {
	ctx, span := r.tracer.Start(ctx, "PaymentRepository.Update")
	defer span.End()

	span.SetAttributes(
		attribute.String("razorpay_payment_id", payment.GatewayPaymentID),
		attribute.String("status", string(payment.Status)),
	)

	query := `
		UPDATE payments
		SET order_id = $1,
			amount = $2,
			currency = $3,
			status = $4,
			method = $5,
			email = $6,
			contact = $7,
			fees = $8,
			tax = $9
		WHERE razorpay_payment_id = $10;
	`

	commandTag, err := tx.Exec(ctx, query,
		payment.OrderID,
		payment.Amount,
		payment.Currency,
		string(payment.Status),
		payment.Method,
		payment.Email,
		payment.Contact,
		payment.Fees,
		payment.Tax,
		payment.GatewayPaymentID,
	)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Failed to update payment",
			zap.String("razorpay_payment_id", payment.GatewayPaymentID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to update payment: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}

	return nil
}

func (r *paymentRepo) MarkRefunded(ctx context.Context, tx pgx.Tx, gatewayPaymentID string) error {
	ctx, span := r.tracer.Start(ctx, "PaymentRepository.MarkRefunded")
	defer span.End()

	span.SetAttributes(
		attribute.String("razorpay_payment_id", gatewayPaymentID),
	)

	query := `
		UPDATE payments
		SET status = $1
		WHERE razorpay_payment_id = $2;
	`

	commandTag, err := tx.Exec(ctx, query, string(domain.PaymentStatusRefunded), gatewayPaymentID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Failed to mark payment refunded",
			zap.String("razorpay_payment_id", gatewayPaymentID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to mark payment refunded: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}

	return nil
}

func (r *paymentRepo) List(ctx context.Context, page, pageSize int, status string) ([]domain.Payment, int64, error) {
	ctx, span := r.tracer.Start(ctx, "PaymentRepository.List")
	defer span.End()

	span.SetAttributes(
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	)

	offset := (page - 1) * pageSize

	countQuery := `SELECT COUNT(*) FROM payments`
	listQuery := `
		SELECT id, razorpay_payment_id, order_id, amount, currency, status, method, email, contact, fees, tax, created_at
		FROM payments
	`

	args := []any{}
	if status != "" {
		countQuery += ` WHERE status = $1`
		listQuery += ` WHERE status = $1`
		args = append(args, status)
	}
	listQuery += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, pageSize, offset)

	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to count payments", zap.Error(err))
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, listQuery, args...)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to query payments", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Payment
	for rows.Next() {
		var payment domain.Payment
		if err := rows.Scan(
			&payment.ID,
			&payment.GatewayPaymentID,
			&payment.OrderID,
			&payment.Amount,
			&payment.Currency,
			&payment.Status,
			&payment.Method,
			&payment.Email,
			&payment.Contact,
			&payment.Fees,
			&payment.Tax,
			&payment.CreatedAt,
		); err != nil {
			span.RecordError(err)
			mylogger.Error(ctx, r.logger, "Failed to scan row", zap.Error(err))
			return nil, 0, err
		}

		result = append(result, payment)
	}

	if err := rows.Err(); err != nil {
		mylogger.Error(ctx, r.logger, "Rows error", zap.Error(err))
		return nil, 0, err
	}

	return result, total, nil
}
