package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/confplan-api/internal/models"
)

// ExportJobRepository persists background export job state.
type ExportJobRepository struct {
	db *sqlx.DB
}

// NewExportJobRepository builds the repository.
func NewExportJobRepository(db *sqlx.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

// Create inserts a queued job.
func (r *ExportJobRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ExportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO export_jobs (id, schedule_id, format, status, result_url, error_message, created_by, created_at, finished_at)
VALUES (:id, :schedule_id, :format, :status, :result_url, :error_message, :created_by, :created_at, :finished_at)`

	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// FindByID loads one job.
func (r *ExportJobRepository) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	const query = `SELECT id, schedule_id, format, status, result_url, error_message, created_by, created_at, finished_at
FROM export_jobs WHERE id = $1`
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, fmt.Errorf("find export job %s: %w", id, err)
	}
	return &job, nil
}

// MarkProcessing flips a queued job to PROCESSING.
func (r *ExportJobRepository) MarkProcessing(ctx context.Context, id string) error {
	const query = `UPDATE export_jobs SET status = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, models.ExportStatusProcessing, id); err != nil {
		return fmt.Errorf("mark export job %s processing: %w", id, err)
	}
	return nil
}

// MarkFinished records the signed result URL and completion time.
func (r *ExportJobRepository) MarkFinished(ctx context.Context, id, resultURL string) error {
	const query = `UPDATE export_jobs SET status = $1, result_url = $2, finished_at = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, models.ExportStatusFinished, resultURL, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("mark export job %s finished: %w", id, err)
	}
	return nil
}

// MarkFailed records the terminal failure reason.
func (r *ExportJobRepository) MarkFailed(ctx context.Context, id, message string) error {
	const query = `UPDATE export_jobs SET status = $1, error_message = $2, finished_at = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, models.ExportStatusFailed, message, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("mark export job %s failed: %w", id, err)
	}
	return nil
}
