package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/confplan-api/internal/dto"
	"github.com/noah-isme/confplan-api/internal/models"
	appErrors "github.com/noah-isme/confplan-api/pkg/errors"
)

type eventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context, limit, offset int) ([]models.Event, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id string) error
}

type eventCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// EventService manages conference events.
type EventService struct {
	repo      eventRepository
	cache     eventCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEventService constructs an EventService instance.
func NewEventService(repo eventRepository, cache eventCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// Create validates and stores a new event. The presentation count must equal
// slots x rooms and room capacities must be sorted descending, so the failure
// surfaces at creation instead of at first planning run.
func (s *EventService) Create(ctx context.Context, req dto.CreateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if len(req.Presentations) != len(req.TimeSlots)*len(req.RoomCapacities) {
		return nil, appErrors.Clone(appErrors.ErrCardinalityMismatch,
			fmt.Sprintf("%d presentations for %d slots x %d rooms", len(req.Presentations), len(req.TimeSlots), len(req.RoomCapacities)))
	}
	for i := 1; i < len(req.RoomCapacities); i++ {
		if req.RoomCapacities[i] > req.RoomCapacities[i-1] {
			return nil, appErrors.Clone(appErrors.ErrValidation, "roomCapacities must be sorted in descending order")
		}
	}

	event := &models.Event{
		Name:           req.Name,
		TimeSlots:      pq.StringArray(req.TimeSlots),
		RoomCapacities: pq.Int64Array(req.RoomCapacities),
		Presentations:  pq.StringArray(req.Presentations),
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}

	s.logger.Info("created event",
		zap.String("eventId", event.ID),
		zap.Int("slots", len(event.TimeSlots)),
		zap.Int("rooms", len(event.RoomCapacities)))
	return event, nil
}

// Get loads one event.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event id is required")
	}
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

// List returns a paginated event listing.
func (s *EventService) List(ctx context.Context, query dto.EventQuery) ([]models.Event, *models.Pagination, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}

	events, err := s.repo.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count events")
	}

	pagination := &models.Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}
	return events, pagination, nil
}

// Delete removes an event with its ballots and schedules, and drops any
// cached payloads derived from it.
func (s *EventService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return appErrors.Clone(appErrors.ErrValidation, "event id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}
	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, fmt.Sprintf("confplan:*:%s", id)); err != nil {
			s.logger.Warn("failed to invalidate event cache", zap.String("eventId", id), zap.Error(err))
		}
	}
	return nil
}
