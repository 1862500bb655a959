package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/confplan-api/internal/dto"
	"github.com/noah-isme/confplan-api/internal/models"
	"github.com/noah-isme/confplan-api/internal/planner"
	appErrors "github.com/noah-isme/confplan-api/pkg/errors"
)

// conferenceEvent is the canonical three-room example: nine presentations,
// three time slots, five voter blocks.
func conferenceEvent() *models.Event {
	return &models.Event{
		ID:             "event-1",
		Name:           "DevConf",
		TimeSlots:      pq.StringArray{"morning", "noon", "evening"},
		RoomCapacities: pq.Int64Array{30, 20, 10},
		Presentations: pq.StringArray{
			"java1", "java2", "golang1", "golang2", "golang3",
			"python1", "python2", "haskell", "sponsor presentation",
		},
	}
}

func conferenceBallots() []models.Ballot {
	ballots := make([]models.Ballot, 0, 58)
	add := func(count int, weights pq.Int64Array) {
		for i := 0; i < count; i++ {
			row := make(pq.Int64Array, len(weights))
			copy(row, weights)
			ballots = append(ballots, models.Ballot{EventID: "event-1", Weights: row})
		}
	}
	add(16, pq.Int64Array{5, 4, 0, 0, 0, 0, 0, 0, 0})
	add(15, pq.Int64Array{0, 0, 5, 3, 1, 0, 0, 0, 0})
	add(20, pq.Int64Array{0, 0, 0, 0, 0, 6, 3, 0, 0})
	add(5, pq.Int64Array{0, 0, 0, 0, 0, 2, 0, 7, 0})
	add(2, pq.Int64Array{1, 1, 1, 1, 1, 1, 1, 1, 1})
	return ballots
}

func newPlannerServiceFixture(cfg plannerFixtureConfig) *PlannerService {
	events := cfg.events
	if events == nil {
		events = eventReaderStub{event: conferenceEvent()}
	}
	ballots := cfg.ballots
	if ballots == nil {
		ballots = ballotListerStub{items: conferenceBallots()}
	}
	tx := cfg.tx
	if tx == nil {
		tx = noopTxProvider{}
	}
	return NewPlannerService(
		events,
		ballots,
		cfg.schedules,
		cfg.slots,
		tx,
		nil,
		validator.New(),
		zap.NewNop(),
		PlannerServiceConfig{ExactSearchLimit: 10, ProposalTTL: time.Hour},
	)
}

type plannerFixtureConfig struct {
	events    plannerEventReader
	ballots   plannerBallotLister
	schedules scheduleRepository
	slots     scheduleSlotRepository
	tx        txProvider
}

func TestPlannerServiceGenerateConferenceExample(t *testing.T) {
	service := newPlannerServiceFixture(plannerFixtureConfig{})

	resp, err := service.Generate(context.Background(), dto.GeneratePlanRequest{EventID: "event-1"})
	require.NoError(t, err)
	require.Len(t, resp.Rooms, 3)
	assert.Equal(t, 58, resp.BallotCount)
	assert.NotEmpty(t, resp.ProposalID)
	assert.Equal(t, planner.AlgorithmExact, resp.Algorithm)

	largest := resp.Rooms[0]
	assert.Equal(t, 30, largest.Capacity)
	require.Len(t, largest.Slots, 3)
	assert.Equal(t, "python1", largest.Slots[0].PresentationTitle)
	assert.Equal(t, "java1", largest.Slots[1].PresentationTitle)
	assert.Equal(t, "golang1", largest.Slots[2].PresentationTitle)

	assigned := make(map[int]bool)
	for _, room := range resp.Rooms {
		for _, slot := range room.Slots {
			assert.False(t, assigned[slot.PresentationIndex])
			assigned[slot.PresentationIndex] = true
		}
	}
	assert.Len(t, assigned, 9)
}

func TestPlannerServiceGenerateGreedyOverride(t *testing.T) {
	service := newPlannerServiceFixture(plannerFixtureConfig{})
	greedy := true

	resp, err := service.Generate(context.Background(), dto.GeneratePlanRequest{EventID: "event-1", Greedy: &greedy})
	require.NoError(t, err)
	assert.Equal(t, planner.AlgorithmGreedy, resp.Algorithm)
}

func TestPlannerServiceGenerateEventNotFound(t *testing.T) {
	service := newPlannerServiceFixture(plannerFixtureConfig{
		events: eventReaderStub{},
	})

	_, err := service.Generate(context.Background(), dto.GeneratePlanRequest{EventID: "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPlannerServiceGenerateNoBallots(t *testing.T) {
	service := newPlannerServiceFixture(plannerFixtureConfig{
		ballots: ballotListerStub{},
	})

	_, err := service.Generate(context.Background(), dto.GeneratePlanRequest{EventID: "event-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestPlannerServiceGenerateCardinalityMismatch(t *testing.T) {
	event := conferenceEvent()
	event.Presentations = event.Presentations[:8]
	service := newPlannerServiceFixture(plannerFixtureConfig{
		events: eventReaderStub{event: event},
	})

	_, err := service.Generate(context.Background(), dto.GeneratePlanRequest{EventID: "event-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCardinalityMismatch.Code, appErrors.FromError(err).Code)
}

func TestPlannerServiceGenerateInvalidBallot(t *testing.T) {
	ballots := conferenceBallots()
	ballots = append(ballots, models.Ballot{EventID: "event-1", Weights: pq.Int64Array{9, 9, 9, 9, 9, 9, 9, 9, 9}})
	service := newPlannerServiceFixture(plannerFixtureConfig{
		ballots: ballotListerStub{items: ballots},
	})

	_, err := service.Generate(context.Background(), dto.GeneratePlanRequest{EventID: "event-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidBallot.Code, appErrors.FromError(err).Code)
}

func TestPlannerServiceSavePersistsSchedule(t *testing.T) {
	txProv, mock := newTxProviderMock(t)
	schedules := &scheduleRepoStub{}
	slots := &scheduleSlotRepoStub{}
	service := newPlannerServiceFixture(plannerFixtureConfig{
		schedules: schedules,
		slots:     slots,
		tx:        txProv,
	})

	resp, err := service.Generate(context.Background(), dto.GeneratePlanRequest{EventID: "event-1"})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	id, err := service.Save(context.Background(), dto.SavePlanRequest{ProposalID: resp.ProposalID})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Len(t, slots.items[id], 9)
	assert.NoError(t, mock.ExpectationsWereMet())

	// The proposal is consumed on save.
	_, err = service.Save(context.Background(), dto.SavePlanRequest{ProposalID: resp.ProposalID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPlannerServiceSavePublish(t *testing.T) {
	txProv, mock := newTxProviderMock(t)
	schedules := &scheduleRepoStub{}
	service := newPlannerServiceFixture(plannerFixtureConfig{
		schedules: schedules,
		slots:     &scheduleSlotRepoStub{},
		tx:        txProv,
	})

	resp, err := service.Generate(context.Background(), dto.GeneratePlanRequest{EventID: "event-1"})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	id, err := service.Save(context.Background(), dto.SavePlanRequest{ProposalID: resp.ProposalID, Publish: true})
	require.NoError(t, err)

	record, err := schedules.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusPublished, record.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlannerServiceDeleteDraftOnly(t *testing.T) {
	schedules := &scheduleRepoStub{}
	service := newPlannerServiceFixture(plannerFixtureConfig{
		schedules: schedules,
		slots:     &scheduleSlotRepoStub{},
	})

	published := &models.Schedule{EventID: "event-1", Status: models.ScheduleStatusPublished}
	require.NoError(t, schedules.CreateVersioned(context.Background(), nil, published))

	err := service.Delete(context.Background(), published.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	draft := &models.Schedule{EventID: "event-1", Status: models.ScheduleStatusDraft}
	require.NoError(t, schedules.CreateVersioned(context.Background(), nil, draft))
	require.NoError(t, service.Delete(context.Background(), draft.ID))
}

// --- Stubs ---

type eventReaderStub struct {
	event *models.Event
}

func (s eventReaderStub) FindByID(ctx context.Context, id string) (*models.Event, error) {
	if s.event == nil || s.event.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.event, nil
}

type ballotListerStub struct {
	items []models.Ballot
}

func (s ballotListerStub) ListByEvent(ctx context.Context, eventID string) ([]models.Ballot, error) {
	return s.items, nil
}

type scheduleRepoStub struct {
	items []models.Schedule
}

func (s *scheduleRepoStub) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error {
	schedule.ID = fmt.Sprintf("sched-%d", len(s.items)+1)
	schedule.Version = len(s.items) + 1
	s.items = append(s.items, *schedule)
	return nil
}

func (s *scheduleRepoStub) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	for _, item := range s.items {
		if item.ID == id {
			return &item, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *scheduleRepoStub) ListByEvent(ctx context.Context, eventID string) ([]models.Schedule, error) {
	return s.items, nil
}

func (s *scheduleRepoStub) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ScheduleStatus) error {
	for idx := range s.items {
		if s.items[idx].ID == id {
			s.items[idx].Status = status
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *scheduleRepoStub) Delete(ctx context.Context, id string) error {
	for idx, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:idx], s.items[idx+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type scheduleSlotRepoStub struct {
	items map[string][]models.ScheduleSlot
}

func (s *scheduleSlotRepoStub) UpsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.ScheduleSlot) error {
	if s.items == nil {
		s.items = make(map[string][]models.ScheduleSlot)
	}
	for _, slot := range slots {
		s.items[slot.ScheduleID] = append(s.items[slot.ScheduleID], slot)
	}
	return nil
}

func (s *scheduleSlotRepoStub) ListBySchedule(ctx context.Context, scheduleID string) ([]models.ScheduleSlot, error) {
	return s.items[scheduleID], nil
}

type noopTxProvider struct{}

func (noopTxProvider) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider unavailable")
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}
