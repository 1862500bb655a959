package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/confplan-api/internal/models"
)

// EventRepository manages conference events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository builds the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now

	const query = `
INSERT INTO events (id, name, time_slots, room_capacities, presentations, created_at, updated_at)
VALUES (:id, :name, :time_slots, :room_capacities, :presentations, :created_at, :updated_at)`

	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// FindByID loads one event.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	const query = `SELECT id, name, time_slots, room_capacities, presentations, created_at, updated_at
FROM events WHERE id = $1`
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, fmt.Errorf("find event %s: %w", id, err)
	}
	return &event, nil
}

// List returns events ordered by creation time, newest first.
func (r *EventRepository) List(ctx context.Context, limit, offset int) ([]models.Event, error) {
	const query = `SELECT id, name, time_slots, room_capacities, presentations, created_at, updated_at
FROM events ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, limit, offset); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// Count returns the total number of events.
func (r *EventRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM events`); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return total, nil
}

// Delete removes an event and, via cascading constraints, its ballots and
// schedules.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("delete event %s: %w", id, errNoRows())
	}
	return nil
}
