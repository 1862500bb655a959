package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/confplan-api/internal/models"
)

// ScheduleRepository manages versioned planning results.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository builds the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateVersioned inserts a schedule with the next version number for its
// event. Runs on the provided executor so the caller can keep schedule and
// slot writes in one transaction.
func (r *ScheduleRepository) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	const query = `
INSERT INTO schedules (id, event_id, version, status, algorithm, meta, created_at, updated_at)
VALUES ($1, $2, (SELECT COALESCE(MAX(version), 0) + 1 FROM schedules WHERE event_id = $2), $3, $4, $5, $6, $7)
RETURNING version`

	row := r.exec(exec).QueryRowxContext(ctx, query,
		schedule.ID,
		schedule.EventID,
		schedule.Status,
		schedule.Algorithm,
		schedule.Meta,
		schedule.CreatedAt,
		schedule.UpdatedAt,
	)
	if err := row.Scan(&schedule.Version); err != nil {
		return fmt.Errorf("create schedule for event %s: %w", schedule.EventID, err)
	}
	return nil
}

// FindByID loads one schedule.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	const query = `SELECT id, event_id, version, status, algorithm, meta, created_at, updated_at
FROM schedules WHERE id = $1`
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, fmt.Errorf("find schedule %s: %w", id, err)
	}
	return &schedule, nil
}

// ListByEvent returns all schedule versions for an event, newest first.
func (r *ScheduleRepository) ListByEvent(ctx context.Context, eventID string) ([]models.Schedule, error) {
	const query = `SELECT id, event_id, version, status, algorithm, meta, created_at, updated_at
FROM schedules WHERE event_id = $1 ORDER BY version DESC`
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, eventID); err != nil {
		return nil, fmt.Errorf("list schedules for event %s: %w", eventID, err)
	}
	return schedules, nil
}

// UpdateStatus moves a schedule between lifecycle states.
func (r *ScheduleRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ScheduleStatus) error {
	const query = `UPDATE schedules SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.exec(exec).ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update schedule %s status: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update schedule %s status: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("update schedule %s status: %w", id, errNoRows())
	}
	return nil
}

// Delete removes a schedule and its slots.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete schedule %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("delete schedule %s: %w", id, errNoRows())
	}
	return nil
}
