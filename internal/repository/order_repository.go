package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/astrovani/backend/internal/domain"
	"github.com/astrovani/backend/pkg/mylogger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error)
	UpdateStatusByGatewayOrderID(ctx context.Context, tx pgx.Tx, gatewayOrderID string, status domain.OrderStatus) error
	List(ctx context.Context, page, pageSize int, status string) ([]domain.Order, int64, error)
}

type orderRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewOrderRepository(pool *pgxpool.Pool, logger *zap.Logger) OrderRepository {
	return &orderRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("repository/order_repo"),
	}
}

func (r *orderRepo) Create(ctx context.Context, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("razorpay_order_id", order.GatewayOrderID),
		attribute.Int64("amount", order.Amount),
	)

	query := `
		INSERT INTO orders (razorpay_order_id, amount, currency, status, product, receipt, notes, booking_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id, created_at
	`

	if err := r.pool.QueryRow(ctx, query,
		order.GatewayOrderID,
		order.Amount,
		order.Currency,
		string(order.Status),
		order.Product,
		order.Receipt,
		order.Notes,
		order.BookingID,
	).Scan(
		&order.ID,
		&order.CreatedAt,
	); err != nil {
		span.RecordError(err)

		mylogger.Warn(ctx, r.logger, "Failed to insert order",
			zap.String("razorpay_order_id", order.GatewayOrderID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

func (r *orderRepo) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetByGatewayOrderID")
	defer span.End()

	span.SetAttributes(
		attribute.String("razorpay_order_id", gatewayOrderID),
	)

	query := `
		SELECT id, razorpay_order_id, amount, currency, status, product, receipt, notes, booking_id, created_at
		FROM orders
		WHERE razorpay_order_id = $1
	`

	var result domain.Order
	if err := r.pool.QueryRow(ctx, query, gatewayOrderID).Scan(
		&result.ID,
		&result.GatewayOrderID,
		&result.Amount,
		&result.Currency,
		&result.Status,
		&result.Product,
		&result.Receipt,
		&result.Notes,
		&result.BookingID,
		&result.CreatedAt,
	); err != nil {
		span.RecordError(err)

		if errors.Is(err, pgx.ErrNoRows) {
			mylogger.Warn(ctx, r.logger, "Order not found",
				zap.String("razorpay_order_id", gatewayOrderID),
			)
			return nil, ErrOrderNotFound
		}

		mylogger.Error(ctx, r.logger, "GetByGatewayOrderID failed", zap.Error(err))

		return nil, fmt.Errorf("error getting order by gateway id: %w", err)
	}

	return &result, nil
}

func (r *orderRepo) UpdateStatusByGatewayOrderID(ctx context.Context, tx pgx.Tx, gatewayOrderID string, status domain.OrderStatus) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.UpdateStatusByGatewayOrderID")
	defer span.End()

	span.SetAttributes(
		attribute.String("razorpay_order_id", gatewayOrderID),
		attribute.String("status", string(status)),
	)

	query := `
		UPDATE orders
		SET status = $1
		WHERE razorpay_order_id = $2;
	`

	commandTag, err := tx.Exec(ctx, query, string(status), gatewayOrderID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Failed to update order status",
			zap.String("razorpay_order_id", gatewayOrderID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to update order status: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		mylogger.Warn(ctx, r.logger, "Order not found",
			zap.String("razorpay_order_id", gatewayOrderID),
		)

		return ErrOrderNotFound
	}

	return nil
}

func (r *orderRepo) List(ctx context.Context, page, pageSize int, status string) ([]domain.Order, int64, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.List")
	defer span.End()

	span.SetAttributes(
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	)

	offset := (page - 1) * pageSize

	countQuery := `SELECT COUNT(*) FROM orders`
	listQuery := `
		SELECT id, razorpay_order_id, amount, currency, status, product, receipt, notes, booking_id, created_at
		FROM orders
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
		mylogger.Error(ctx, r.logger, "Failed to count orders", zap.Error(err))
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, listQuery, args...)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to query orders", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Order
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID,
			&order.GatewayOrderID,
			&order.Amount,
			&order.Currency,
			&order.Status,
			&order.Product,
			&order.Receipt,
			&order.Notes,
			&order.BookingID,
			&order.CreatedAt,
		); err != nil {
			span.RecordError(err)
			mylogger.Error(ctx, r.logger, "Failed to scan row", zap.Error(err))
			return nil, 0, err
		}

		result = append(result, order)
	}

	if err := rows.Err(); err != nil {
		mylogger.Error(ctx, r.logger, "Rows error", zap.Error(err))
		return nil, 0, err
	}

	return result, total, nil
}
