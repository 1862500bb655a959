package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/confplan-api/internal/dto"
	"github.com/noah-isme/confplan-api/internal/models"
	"github.com/noah-isme/confplan-api/internal/planner"
	appErrors "github.com/noah-isme/confplan-api/pkg/errors"
	"github.com/noah-isme/confplan-api/pkg/jobs"
)

// JobTypeWarmPopularity re-computes an event's popularity summary after
// ballot writes.
const JobTypeWarmPopularity = "warm_popularity"

type ballotRepository interface {
	Create(ctx context.Context, ballot *models.Ballot) error
	ListByEvent(ctx context.Context, eventID string) ([]models.Ballot, error)
	CountByEvent(ctx context.Context, eventID string) (int, error)
	DeleteByEvent(ctx context.Context, eventID string) error
}

type ballotEventReader interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

type popularityCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cacheHitRecorder interface {
	RecordCacheOperation(hit bool)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// BallotService accepts voter ballots and serves popularity summaries.
type BallotService struct {
	repo      ballotRepository
	events    ballotEventReader
	cache     popularityCache
	metrics   cacheHitRecorder
	queue     jobEnqueuer
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewBallotService constructs a BallotService instance.
func NewBallotService(
	repo ballotRepository,
	events ballotEventReader,
	cache popularityCache,
	metrics cacheHitRecorder,
	queue jobEnqueuer,
	validate *validator.Validate,
	logger *zap.Logger,
	cacheTTL time.Duration,
) *BallotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &BallotService{
		repo:      repo,
		events:    events,
		cache:     cache,
		metrics:   metrics,
		queue:     queue,
		validator: validate,
		logger:    logger,
		cacheTTL:  cacheTTL,
	}
}

// Submit validates a ballot against its event and stores it. The weight
// vector must match the event's presentation count, contain no negative
// weights, and sum to at most the presentation count.
func (s *BallotService) Submit(ctx context.Context, eventID string, req dto.SubmitBallotRequest) (*models.Ballot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid ballot payload")
	}
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	weights := make([]int, len(req.Weights))
	for i, w := range req.Weights {
		weights[i] = int(w)
	}
	if _, err := planner.TallyVotes([][]int{weights}, len(event.Presentations)); err != nil {
		var invalid *planner.InvalidBallotError
		if errors.As(err, &invalid) {
			return nil, appErrors.Clone(appErrors.ErrInvalidBallot, invalid.Reason)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate ballot")
	}

	ballot := &models.Ballot{
		EventID:  eventID,
		VoterRef: req.VoterRef,
		Weights:  pq.Int64Array(req.Weights),
	}
	if err := s.repo.Create(ctx, ballot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store ballot")
	}

	s.invalidateAndRewarm(ctx, eventID)
	return ballot, nil
}

// Popularity returns the aggregated per-presentation vote totals for an
// event, served from cache when possible.
func (s *BallotService) Popularity(ctx context.Context, eventID string) (*dto.PopularitySummary, error) {
	if eventID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event id is required")
	}

	key := cachePopularityKey(eventID)
	if s.cache != nil {
		var cached dto.PopularitySummary
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheOperation(true)
			}
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("popularity cache lookup failed", zap.String("eventId", eventID), zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false)
		}
	}

	summary, err := s.computePopularity(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache popularity summary", zap.String("eventId", eventID), zap.Error(err))
		}
	}
	return summary, nil
}

// List returns all ballots for an event.
func (s *BallotService) List(ctx context.Context, eventID string) ([]models.Ballot, error) {
	if eventID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event id is required")
	}
	ballots, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ballots")
	}
	return ballots, nil
}

// DeleteByEvent removes all ballots of an event and its cached summary.
func (s *BallotService) DeleteByEvent(ctx context.Context, eventID string) error {
	if eventID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "event id is required")
	}
	if err := s.repo.DeleteByEvent(ctx, eventID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete ballots")
	}
	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, cachePopularityKey(eventID)); err != nil {
			s.logger.Warn("failed to invalidate popularity cache", zap.String("eventId", eventID), zap.Error(err))
		}
	}
	return nil
}

// WarmPopularity is the background handler that recomputes and re-caches an
// event's popularity summary.
func (s *BallotService) WarmPopularity(ctx context.Context, job jobs.Job) error {
	eventID, ok := job.Payload.(string)
	if !ok || eventID == "" {
		s.logger.Warn("warm popularity job missing event id", zap.String("jobId", job.ID))
		return nil
	}
	summary, err := s.computePopularity(ctx, eventID)
	if err != nil {
		return err
	}
	if s.cache == nil {
		return nil
	}
	return s.cache.Set(ctx, cachePopularityKey(eventID), summary, s.cacheTTL)
}

func (s *BallotService) computePopularity(ctx context.Context, eventID string) (*dto.PopularitySummary, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	ballots, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ballots")
	}

	popularity, err := planner.TallyVotes(ballotWeights(ballots), len(event.Presentations))
	if err != nil {
		var invalid *planner.InvalidBallotError
		if errors.As(err, &invalid) {
			return nil, appErrors.Clone(appErrors.ErrInvalidBallot, invalid.Reason)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to tally votes")
	}

	entries := popularityEntries(event, popularity)
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Score > entries[b].Score
	})

	return &dto.PopularitySummary{
		EventID:     eventID,
		BallotCount: len(ballots),
		Entries:     entries,
	}, nil
}

func (s *BallotService) invalidateAndRewarm(ctx context.Context, eventID string) {
	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, cachePopularityKey(eventID)); err != nil {
			s.logger.Warn("failed to invalidate popularity cache", zap.String("eventId", eventID), zap.Error(err))
		}
	}
	if s.queue != nil {
		job := jobs.Job{
			ID:      uuid.NewString(),
			Type:    JobTypeWarmPopularity,
			Payload: eventID,
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue popularity warm job", zap.String("eventId", eventID), zap.Error(err))
		}
	}
}

func cachePopularityKey(eventID string) string {
	return "confplan:popularity:" + eventID
}
