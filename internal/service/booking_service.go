package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/astrovani/backend/internal/calendar"
	"github.com/astrovani/backend/internal/domain"
	"github.com/astrovani/backend/internal/repository"
	"github.com/astrovani/backend/pkg/mylogger"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const consultationSlot = 60 * time.Minute

type BookingInput struct {
	Name              string `json:"name" validate:"required"`
	Email             string `json:"email" validate:"required,email"`
	Phone             string `json:"phone"`
	DateOfBirth       string `json:"dateOfBirth" validate:"required"`
	TimeOfBirth       string `json:"timeOfBirth" validate:"required"`
	PlaceOfBirth      string `json:"placeOfBirth" validate:"required"`
	Modality          string `json:"modality" validate:"required"`
	Plan              string `json:"plan" validate:"required"`
	Topic             string `json:"topic"`
	PreferredDateTime string `json:"preferredDateTime"`
}

type BookingService interface {
	Create(ctx context.Context, in BookingInput) (*domain.Booking, *calendar.Event, error)
}

type bookingService struct {
	bookingRepo repository.BookingRepository
	calendar    *calendar.Client
	validate    *validator.Validate
	logger      *zap.Logger
	tracer      trace.Tracer
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	calendarClient *calendar.Client,
	logger *zap.Logger,
) BookingService {
	return &bookingService{
		bookingRepo: bookingRepo,
		calendar:    calendarClient,
		validate:    validator.New(),
		logger:      logger,
		tracer:      otel.Tracer("service/booking_service"),
	}
}

func (s *bookingService) Create(ctx context.Context, in BookingInput) (*domain.Booking, *calendar.Event, error) {
	ctx, span := s.tracer.Start(ctx, "BookingService.Create")
	defer span.End()

	if err := s.validate.Struct(in); err != nil {
		return nil, nil, err
	}

	topic := in.Topic
	if topic == "" {
		topic = in.Modality
	}

	booking := &domain.Booking{
		Name:   strings.TrimSpace(in.Name),
		Email:  strings.ToLower(strings.TrimSpace(in.Email)),
		Topic:  topic,
		Status: domain.BookingStatusPending,
	}
	if in.Phone != "" {
		booking.Phone = &in.Phone
	}
	preferred := in.PreferredDateTime
	if preferred == "" {
		preferred = in.DateOfBirth
	}
	if preferred != "" {
		booking.PreferredDate = &preferred
	}

	span.SetAttributes(
		attribute.String("email", booking.Email),
		attribute.String("topic", booking.Topic),
	)

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		return nil, nil, err
	}

	mylogger.Info(ctx, s.logger, "Booking request stored",
		zap.Int64("booking_id", booking.ID),
		zap.String("topic", booking.Topic),
	)

	// Calendar sync is best-effort; a failure here never fails the
	// booking.
	event := s.syncCalendar(ctx, booking, in)

	return booking, event, nil
}

func (s *bookingService) syncCalendar(ctx context.Context, booking *domain.Booking, in BookingInput) *calendar.Event {
	if !s.calendar.Configured() || in.PreferredDateTime == "" {
		return nil
	}

	start, err := time.Parse(time.RFC3339, in.PreferredDateTime)
	if err != nil {
		mylogger.Warn(ctx, s.logger, "Skipping calendar sync, bad preferred datetime",
			zap.String("preferred_datetime", in.PreferredDateTime),
			zap.Error(err),
		)
		return nil
	}

	description := fmt.Sprintf("Topic: %s\nPlan: %s\nPOB: %s\nDOB: %s\nTOB: %s",
		booking.Topic, in.Plan, in.PlaceOfBirth, in.DateOfBirth, in.TimeOfBirth)

	event, err := s.calendar.InsertEvent(ctx, calendar.EventInput{
		Summary:       "Consultation: " + booking.Name,
		Description:   description,
		Start:         start,
		End:           start.Add(consultationSlot),
		AttendeeEmail: booking.Email,
		AttendeeName:  booking.Name,
		Meet:          true,
	})
	if err != nil {
		mylogger.Warn(ctx, s.logger, "Calendar sync failed",
			zap.Int64("booking_id", booking.ID),
			zap.Error(err),
		)
		return nil
	}

	return event
}
