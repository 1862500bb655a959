package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/confplan-api/internal/dto"
	"github.com/noah-isme/confplan-api/internal/models"
	appErrors "github.com/noah-isme/confplan-api/pkg/errors"
	"github.com/noah-isme/confplan-api/pkg/jobs"
)

func newBallotServiceFixture(repo *ballotRepoStub, cache popularityCache, queue jobEnqueuer) *BallotService {
	return NewBallotService(
		repo,
		eventReaderStub{event: conferenceEvent()},
		cache,
		nil,
		queue,
		validator.New(),
		zap.NewNop(),
		time.Minute,
	)
}

func TestBallotServiceSubmitValid(t *testing.T) {
	repo := &ballotRepoStub{}
	cache := &cacheStub{}
	queue := &queueStub{}
	service := newBallotServiceFixture(repo, cache, queue)

	ballot, err := service.Submit(context.Background(), "event-1", dto.SubmitBallotRequest{
		VoterRef: "voter-1",
		Weights:  []int64{5, 4, 0, 0, 0, 0, 0, 0, 0},
	})
	require.NoError(t, err)
	assert.Equal(t, "event-1", ballot.EventID)
	require.Len(t, repo.items, 1)

	// A ballot write invalidates and re-warms the cached summary.
	assert.NotEmpty(t, cache.deleted)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypeWarmPopularity, queue.jobs[0].Type)
}

func TestBallotServiceSubmitOverweight(t *testing.T) {
	service := newBallotServiceFixture(&ballotRepoStub{}, nil, nil)

	// Nine presentations, total weight 10.
	_, err := service.Submit(context.Background(), "event-1", dto.SubmitBallotRequest{
		Weights: []int64{5, 5, 0, 0, 0, 0, 0, 0, 0},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidBallot.Code, appErrors.FromError(err).Code)
}

func TestBallotServiceSubmitWrongLength(t *testing.T) {
	service := newBallotServiceFixture(&ballotRepoStub{}, nil, nil)

	_, err := service.Submit(context.Background(), "event-1", dto.SubmitBallotRequest{
		Weights: []int64{1, 2},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidBallot.Code, appErrors.FromError(err).Code)
}

func TestBallotServiceSubmitNegativeWeight(t *testing.T) {
	service := newBallotServiceFixture(&ballotRepoStub{}, nil, nil)

	_, err := service.Submit(context.Background(), "event-1", dto.SubmitBallotRequest{
		Weights: []int64{-1, 2, 0, 0, 0, 0, 0, 0, 0},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidBallot.Code, appErrors.FromError(err).Code)
}

func TestBallotServicePopularityComputesAndCaches(t *testing.T) {
	repo := &ballotRepoStub{items: conferenceBallots()}
	cache := &cacheStub{}
	service := newBallotServiceFixture(repo, cache, nil)

	summary, err := service.Popularity(context.Background(), "event-1")
	require.NoError(t, err)
	assert.Equal(t, 58, summary.BallotCount)
	require.NotEmpty(t, summary.Entries)

	// Sorted by score descending, first-index order among ties.
	assert.Equal(t, "python1", summary.Entries[0].Title)
	assert.Equal(t, 132, summary.Entries[0].Score)
	assert.Equal(t, "sponsor presentation", summary.Entries[len(summary.Entries)-1].Title)

	require.Len(t, cache.stored, 1)
}

func TestBallotServicePopularityServedFromCache(t *testing.T) {
	cached := &dto.PopularitySummary{EventID: "event-1", BallotCount: 3}
	cache := &cacheStub{hit: cached}
	repo := &ballotRepoStub{}
	service := newBallotServiceFixture(repo, cache, nil)

	summary, err := service.Popularity(context.Background(), "event-1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.BallotCount)
	assert.Empty(t, cache.stored)
}

func TestBallotServiceWarmPopularity(t *testing.T) {
	repo := &ballotRepoStub{items: conferenceBallots()}
	cache := &cacheStub{}
	service := newBallotServiceFixture(repo, cache, nil)

	err := service.WarmPopularity(context.Background(), jobs.Job{ID: "job-1", Type: JobTypeWarmPopularity, Payload: "event-1"})
	require.NoError(t, err)
	require.Len(t, cache.stored, 1)
}

// --- Stubs ---

type ballotRepoStub struct {
	mu    sync.Mutex
	items []models.Ballot
}

func (s *ballotRepoStub) Create(ctx context.Context, ballot *models.Ballot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ballot.ID = "ballot-1"
	s.items = append(s.items, *ballot)
	return nil
}

func (s *ballotRepoStub) ListByEvent(ctx context.Context, eventID string) ([]models.Ballot, error) {
	return s.items, nil
}

func (s *ballotRepoStub) CountByEvent(ctx context.Context, eventID string) (int, error) {
	return len(s.items), nil
}

func (s *ballotRepoStub) DeleteByEvent(ctx context.Context, eventID string) error {
	s.items = nil
	return nil
}

type cacheStub struct {
	hit     *dto.PopularitySummary
	stored  map[string]interface{}
	deleted []string
}

func (s *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	if s.hit == nil {
		return appErrors.ErrCacheMiss
	}
	if out, ok := dest.(*dto.PopularitySummary); ok {
		*out = *s.hit
		return nil
	}
	return appErrors.ErrCacheMiss
}

func (s *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s.stored == nil {
		s.stored = make(map[string]interface{})
	}
	s.stored[key] = value
	return nil
}

func (s *cacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.deleted = append(s.deleted, pattern)
	return nil
}

type queueStub struct {
	jobs []jobs.Job
}

func (s *queueStub) Enqueue(job jobs.Job) error {
	s.jobs = append(s.jobs, job)
	return nil
}
