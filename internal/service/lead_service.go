package service

import (
	"context"
	"strings"

	"github.com/astrovani/backend/internal/domain"
	"github.com/astrovani/backend/internal/repository"
	"github.com/astrovani/backend/pkg/mylogger"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type LeadInput struct {
	Email string `json:"email" validate:"required,email"`
}

type LeadService interface {
	Create(ctx context.Context, in LeadInput) (*domain.Lead, error)
}

type leadService struct {
	leadRepo repository.LeadRepository
	validate *validator.Validate
	logger   *zap.Logger
	tracer   trace.Tracer
}

func NewLeadService(leadRepo repository.LeadRepository, logger *zap.Logger) LeadService {
	return &leadService{
		leadRepo: leadRepo,
		validate: validator.New(),
		logger:   logger,
		tracer:   otel.Tracer("service/lead_service"),
	}
}

func (s *leadService) Create(ctx context.Context, in LeadInput) (*domain.Lead, error) {
	ctx, span := s.tracer.Start(ctx, "LeadService.Create")
	defer span.End()

	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	lead := &domain.Lead{
		Email: strings.ToLower(strings.TrimSpace(in.Email)),
	}

	span.SetAttributes(
		attribute.String("email", lead.Email),
	)

	if err := s.leadRepo.Create(ctx, lead); err != nil {
		return nil, err
	}

	mylogger.Info(ctx, s.logger, "Lead captured",
		zap.Int64("lead_id", lead.ID),
	)

	return lead, nil
}
