package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/confplan-api/internal/models"
)

func errNoRows() error { return sql.ErrNoRows }

// BallotRepository manages voter ballots per event.
type BallotRepository struct {
	db *sqlx.DB
}

// NewBallotRepository builds the repository.
func NewBallotRepository(db *sqlx.DB) *BallotRepository {
	return &BallotRepository{db: db}
}

// Create stores one ballot.
func (r *BallotRepository) Create(ctx context.Context, ballot *models.Ballot) error {
	if ballot.ID == "" {
		ballot.ID = uuid.NewString()
	}
	if ballot.CreatedAt.IsZero() {
		ballot.CreatedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO ballots (id, event_id, voter_ref, weights, created_at)
VALUES (:id, :event_id, :voter_ref, :weights, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, ballot); err != nil {
		return fmt.Errorf("create ballot: %w", err)
	}
	return nil
}

// ListByEvent returns all ballots for the event in submission order.
func (r *BallotRepository) ListByEvent(ctx context.Context, eventID string) ([]models.Ballot, error) {
	const query = `SELECT id, event_id, voter_ref, weights, created_at
FROM ballots WHERE event_id = $1 ORDER BY created_at ASC, id ASC`
	var ballots []models.Ballot
	if err := r.db.SelectContext(ctx, &ballots, query, eventID); err != nil {
		return nil, fmt.Errorf("list ballots for event %s: %w", eventID, err)
	}
	return ballots, nil
}

// CountByEvent returns the ballot count for an event.
func (r *BallotRepository) CountByEvent(ctx context.Context, eventID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM ballots WHERE event_id = $1`, eventID); err != nil {
		return 0, fmt.Errorf("count ballots for event %s: %w", eventID, err)
	}
	return total, nil
}

// DeleteByEvent removes every ballot of an event.
func (r *BallotRepository) DeleteByEvent(ctx context.Context, eventID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM ballots WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("delete ballots for event %s: %w", eventID, err)
	}
	return nil
}
