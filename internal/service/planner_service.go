package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/confplan-api/internal/dto"
	"github.com/noah-isme/confplan-api/internal/models"
	"github.com/noah-isme/confplan-api/internal/planner"
	appErrors "github.com/noah-isme/confplan-api/pkg/errors"
)

type plannerEventReader interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

type plannerBallotLister interface {
	ListByEvent(ctx context.Context, eventID string) ([]models.Ballot, error)
}

type scheduleRepository interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.Schedule, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ScheduleStatus) error
	Delete(ctx context.Context, id string) error
}

type scheduleSlotRepository interface {
	UpsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.ScheduleSlot) error
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.ScheduleSlot, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type planRunRecorder interface {
	ObservePlanRun(algorithm string, duration time.Duration)
}

// PlannerService runs the allocation engine over an event's ballots and
// persists accepted proposals as versioned schedules.
type PlannerService struct {
	events    plannerEventReader
	ballots   plannerBallotLister
	schedules scheduleRepository
	slots     scheduleSlotRepository
	tx        txProvider
	metrics   planRunRecorder
	validator *validator.Validate
	logger    *zap.Logger
	store     *proposalStore
	limit     int
}

// PlannerServiceConfig governs planner behaviour.
type PlannerServiceConfig struct {
	ExactSearchLimit int
	ProposalTTL      time.Duration
}

// NewPlannerService wires planner dependencies.
func NewPlannerService(
	events plannerEventReader,
	ballots plannerBallotLister,
	schedules scheduleRepository,
	slots scheduleSlotRepository,
	tx txProvider,
	metrics planRunRecorder,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg PlannerServiceConfig,
) *PlannerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ExactSearchLimit <= 0 {
		cfg.ExactSearchLimit = planner.DefaultExactSearchLimit
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	return &PlannerService{
		events:    events,
		ballots:   ballots,
		schedules: schedules,
		slots:     slots,
		tx:        tx,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		store:     newProposalStore(cfg.ProposalTTL),
		limit:     cfg.ExactSearchLimit,
	}
}

// Generate builds a schedule proposal for an event and caches it for a later
// Save. The proposal is a preview only; nothing is persisted here.
func (s *PlannerService) Generate(ctx context.Context, req dto.GeneratePlanRequest) (*dto.GeneratePlanResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid plan generation payload")
	}

	event, err := s.events.FindByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	ballots, err := s.ballots.ListByEvent(ctx, req.EventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ballots")
	}
	if len(ballots) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no ballots submitted for this event")
	}

	input := planner.Input{
		TimeSlots:      event.TimeSlots,
		RoomCapacities: int64sToInts(event.RoomCapacities),
		Presentations:  event.Presentations,
		Ballots:        ballotWeights(ballots),
	}

	started := time.Now()
	schedule, err := planner.Plan(input, planner.Options{Greedy: req.Greedy, ExactSearchLimit: s.limit})
	if err != nil {
		return nil, mapPlannerError(err)
	}
	if s.metrics != nil {
		s.metrics.ObservePlanRun(schedule.Algorithm, time.Since(started))
	}

	proposal := planProposal{
		ProposalID:  uuid.NewString(),
		EventID:     event.ID,
		Algorithm:   schedule.Algorithm,
		BallotCount: len(ballots),
		Popularity:  schedule.Popularity,
		Rooms:       renderRooms(event, schedule.Rooms),
		RequestedAt: time.Now().UTC(),
	}
	s.store.Save(proposal)

	s.logger.Info("generated plan proposal",
		zap.String("eventId", event.ID),
		zap.String("algorithm", schedule.Algorithm),
		zap.Int("ballots", len(ballots)))

	return &dto.GeneratePlanResponse{
		ProposalID:  proposal.ProposalID,
		EventID:     proposal.EventID,
		Algorithm:   proposal.Algorithm,
		BallotCount: proposal.BallotCount,
		Popularity:  popularityEntries(event, schedule.Popularity),
		Rooms:       proposal.Rooms,
	}, nil
}

// Save persists a cached proposal as the event's next schedule version. The
// schedule row and all slot rows are written in one transaction.
func (s *PlannerService) Save(ctx context.Context, req dto.SavePlanRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save plan payload")
	}
	proposal, ok := s.store.Get(req.ProposalID)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	if s.tx == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	metaBytes, marshalErr := json.Marshal(map[string]any{
		"ballotCount": proposal.BallotCount,
		"popularity":  proposal.Popularity,
		"generated":   proposal.RequestedAt,
	})
	if marshalErr != nil {
		err = appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule metadata")
		return "", err
	}

	record := &models.Schedule{
		EventID:   proposal.EventID,
		Status:    models.ScheduleStatusDraft,
		Algorithm: proposal.Algorithm,
		Meta:      types.JSONText(metaBytes),
	}
	if err = s.schedules.CreateVersioned(ctx, tx, record); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
		return "", err
	}

	slotModels := make([]models.ScheduleSlot, 0, len(proposal.Rooms)*maxSlotCount(proposal.Rooms))
	for _, room := range proposal.Rooms {
		for _, slot := range room.Slots {
			slotModels = append(slotModels, models.ScheduleSlot{
				ScheduleID:        record.ID,
				RoomIndex:         room.RoomIndex,
				SlotIndex:         slot.SlotIndex,
				RoomCapacity:      room.Capacity,
				SlotLabel:         slot.SlotLabel,
				PresentationIndex: slot.PresentationIndex,
				PresentationTitle: slot.PresentationTitle,
			})
		}
	}
	if err = s.slots.UpsertBatch(ctx, tx, slotModels); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedule slots")
		return "", err
	}

	if req.Publish {
		if err = s.schedules.UpdateStatus(ctx, tx, record.ID, models.ScheduleStatusPublished); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish schedule")
			return "", err
		}
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule transaction")
		return "", err
	}

	s.store.Delete(req.ProposalID)
	return record.ID, nil
}

// List returns all schedule versions for an event.
func (s *PlannerService) List(ctx context.Context, query dto.ScheduleQuery) ([]models.Schedule, error) {
	if query.EventID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "eventId is required")
	}
	list, err := s.schedules.ListByEvent(ctx, query.EventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	return list, nil
}

// GetSlots returns slot detail for a stored schedule.
func (s *PlannerService) GetSlots(ctx context.Context, scheduleID string) ([]models.ScheduleSlot, error) {
	if scheduleID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schedule id is required")
	}
	if _, err := s.schedules.FindByID(ctx, scheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	slots, err := s.slots.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule slots")
	}
	return slots, nil
}

// Publish moves a draft schedule to PUBLISHED.
func (s *PlannerService) Publish(ctx context.Context, scheduleID string) error {
	record, err := s.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if record.Status != models.ScheduleStatusDraft {
		return appErrors.Clone(appErrors.ErrConflict, "only draft schedules can be published")
	}
	if err := s.schedules.UpdateStatus(ctx, nil, scheduleID, models.ScheduleStatusPublished); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish schedule")
	}
	return nil
}

// Delete removes a draft schedule version.
func (s *PlannerService) Delete(ctx context.Context, scheduleID string) error {
	record, err := s.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if record.Status != models.ScheduleStatusDraft {
		return appErrors.Clone(appErrors.ErrConflict, "only draft schedules can be deleted")
	}
	if err := s.schedules.Delete(ctx, scheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	return nil
}

func mapPlannerError(err error) error {
	var invalid *planner.InvalidBallotError
	switch {
	case errors.Is(err, planner.ErrCardinalityMismatch):
		return appErrors.Clone(appErrors.ErrCardinalityMismatch, err.Error())
	case errors.Is(err, planner.ErrExactSearchLimit):
		return appErrors.Clone(appErrors.ErrExactSearchExceeded, err.Error())
	case errors.As(err, &invalid):
		return appErrors.Clone(appErrors.ErrInvalidBallot, err.Error())
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "planning failed")
	}
}

func renderRooms(event *models.Event, rooms [][]int) []dto.PlanRoom {
	rendered := make([]dto.PlanRoom, 0, len(rooms))
	for roomIdx, assignment := range rooms {
		room := dto.PlanRoom{
			RoomIndex: roomIdx,
			Capacity:  int(event.RoomCapacities[roomIdx]),
			Slots:     make([]dto.PlanSlot, 0, len(assignment)),
		}
		for slotIdx, presentation := range assignment {
			room.Slots = append(room.Slots, dto.PlanSlot{
				SlotIndex:         slotIdx,
				SlotLabel:         event.TimeSlots[slotIdx],
				PresentationIndex: presentation,
				PresentationTitle: event.Presentations[presentation],
			})
		}
		rendered = append(rendered, room)
	}
	return rendered
}

func popularityEntries(event *models.Event, popularity []int) []dto.PopularityEntry {
	entries := make([]dto.PopularityEntry, 0, len(popularity))
	for i, score := range popularity {
		entries = append(entries, dto.PopularityEntry{
			Index: i,
			Title: event.Presentations[i],
			Score: score,
		})
	}
	return entries
}

func ballotWeights(ballots []models.Ballot) [][]int {
	weights := make([][]int, 0, len(ballots))
	for _, ballot := range ballots {
		row := make([]int, len(ballot.Weights))
		for i, w := range ballot.Weights {
			row[i] = int(w)
		}
		weights = append(weights, row)
	}
	return weights
}

func int64sToInts(values []int64) []int {
	result := make([]int, len(values))
	for i, v := range values {
		result[i] = int(v)
	}
	return result
}

func maxSlotCount(rooms []dto.PlanRoom) int {
	max := 0
	for _, room := range rooms {
		if len(room.Slots) > max {
			max = len(room.Slots)
		}
	}
	return max
}

// --- Proposal cache ---

type planProposal struct {
	ProposalID  string
	EventID     string
	Algorithm   string
	BallotCount int
	Popularity  []int
	Rooms       []dto.PlanRoom
	RequestedAt time.Time
}

type proposalStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]planProposal
}

func newProposalStore(ttl time.Duration) *proposalStore {
	return &proposalStore{
		ttl:   ttl,
		items: make(map[string]planProposal),
	}
}

func (s *proposalStore) Save(proposal planProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[proposal.ProposalID] = proposal
}

func (s *proposalStore) Get(id string) (planProposal, bool) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return planProposal{}, false
	}
	if time.Since(proposal.RequestedAt) > s.ttl {
		s.Delete(id)
		return planProposal{}, false
	}
	return proposal, true
}

func (s *proposalStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}
