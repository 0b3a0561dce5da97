package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/astrovani/backend/internal/domain"
	"github.com/astrovani/backend/pkg/mylogger"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type LeadRepository interface {
	Create(ctx context.Context, lead *domain.Lead) error
	List(ctx context.Context, page, pageSize int) ([]domain.Lead, int64, error)
}

type leadRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewLeadRepository(pool *pgxpool.Pool, logger *zap.Logger) LeadRepository {
	return &leadRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("repository/lead_repo"),
	}
}

func (r *leadRepo) Create(ctx context.Context, lead *domain.Lead) error {
	ctx, span := r.tracer.Start(ctx, "LeadRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("email", lead.Email),
	)

	query := `
		INSERT INTO leads (email, created_at)
		VALUES ($1, NOW())
		RETURNING id, created_at
	`

	if err := r.pool.QueryRow(ctx, query, lead.Email).Scan(
		&lead.ID,
		&lead.CreatedAt,
	); err != nil {
		span.RecordError(err)

		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == "23505" {
			mylogger.Warn(ctx, r.logger, "Lead already exists",
				zap.String("email", lead.Email),
			)

			return ErrDuplicateLead
		}

		mylogger.Error(ctx, r.logger, "Failed to insert lead", zap.Error(err))

		return fmt.Errorf("failed to insert lead: %w", err)
	}

	return nil
}

func (r *leadRepo) List(ctx context.Context, page, pageSize int) ([]domain.Lead, int64, error) {
	ctx, span := r.tracer.Start(ctx, "LeadRepository.List")
	defer span.End()

	offset := (page - 1) * pageSize

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads`).Scan(&total); err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to count leads", zap.Error(err))
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT id, email, created_at
		FROM leads
		ORDER BY created_at DESC
		LIMIT %d OFFSET %d
	`, pageSize, offset)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to query leads", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Lead
	for rows.Next() {
		var lead domain.Lead
		if err := rows.Scan(&lead.ID, &lead.Email, &lead.CreatedAt); err != nil {
			span.RecordError(err)
			mylogger.Error(ctx, r.logger, "Failed to scan row", zap.Error(err))
			return nil, 0, err
		}

		result = append(result, lead)
	}

	if err := rows.Err(); err != nil {
		mylogger.Error(ctx, r.logger, "Rows error", zap.Error(err))
		return nil, 0, err
	}

	return result, total, nil
}
