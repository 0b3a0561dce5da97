package repository

import (
	"context"
	"fmt"

	"github.com/astrovani/backend/internal/domain"
	"github.com/astrovani/backend/pkg/mylogger"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	List(ctx context.Context, page, pageSize int, status string) ([]domain.Booking, int64, error)
}

type bookingRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewBookingRepository(pool *pgxpool.Pool, logger *zap.Logger) BookingRepository {
	return &bookingRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("repository/booking_repo"),
	}
}

func (r *bookingRepo) Create(ctx context.Context, booking *domain.Booking) error {
	ctx, span := r.tracer.Start(ctx, "BookingRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("email", booking.Email),
		attribute.String("topic", booking.Topic),
	)

	query := `
		INSERT INTO bookings (name, email, phone, topic, preferred_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`

	if err := r.pool.QueryRow(ctx, query,
		booking.Name,
		booking.Email,
		booking.Phone,
		booking.Topic,
		booking.PreferredDate,
		string(booking.Status),
	).Scan(
		&booking.ID,
		&booking.CreatedAt,
	); err != nil {
		span.RecordError(err)

		mylogger.Warn(ctx, r.logger, "Failed to insert booking",
			zap.String("email", booking.Email),
			zap.Error(err),
		)

		return fmt.Errorf("failed to insert booking: %w", err)
	}

	return nil
}

func (r *bookingRepo) List(ctx context.Context, page, pageSize int, status string) ([]domain.Booking, int64, error) {
	ctx, span := r.tracer.Start(ctx, "BookingRepository.List")
	defer span.End()

	offset := (page - 1) * pageSize

	countQuery := `SELECT COUNT(*) FROM bookings`
	listQuery := `
		SELECT id, name, email, phone, topic, preferred_date, status, created_at
		FROM bookings
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
		mylogger.Error(ctx, r.logger, "Failed to count bookings", zap.Error(err))
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, listQuery, args...)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to query bookings", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Booking
	for rows.Next() {
		var booking domain.Booking
		if err := rows.Scan(
			&booking.ID,
			&booking.Name,
			&booking.Email,
			&booking.Phone,
			&booking.Topic,
			&booking.PreferredDate,
			&booking.Status,
			&booking.CreatedAt,
		); err != nil {
			span.RecordError(err)
			mylogger.Error(ctx, r.logger, "Failed to scan row", zap.Error(err))
			return nil, 0, err
		}

		result = append(result, booking)
	}

	if err := rows.Err(); err != nil {
		mylogger.Error(ctx, r.logger, "Rows error", zap.Error(err))
		return nil, 0, err
	}

	return result, total, nil
}
