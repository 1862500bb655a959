package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/confplan-api/internal/dto"
	"github.com/noah-isme/confplan-api/internal/models"
	appErrors "github.com/noah-isme/confplan-api/pkg/errors"
	"github.com/noah-isme/confplan-api/pkg/export"
	"github.com/noah-isme/confplan-api/pkg/jobs"
	"github.com/noah-isme/confplan-api/pkg/storage"
)

// JobTypeExportSchedule renders a saved schedule to CSV or PDF.
const JobTypeExportSchedule = "export_schedule"

type exportJobRepository interface {
	Create(ctx context.Context, job *models.ExportJob) error
	FindByID(ctx context.Context, id string) (*models.ExportJob, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkFinished(ctx context.Context, id, resultURL string) error
	MarkFailed(ctx context.Context, id, message string) error
}

type exportScheduleReader interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
}

type exportSlotLister interface {
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.ScheduleSlot, error)
}

type exportJobRecorder interface {
	RecordExportJob(format, outcome string)
}

// ExportService queues and renders schedule exports. Rendering happens on the
// background queue; the HTTP layer only creates job rows and reads status.
type ExportService struct {
	repo      exportJobRepository
	schedules exportScheduleReader
	slots     exportSlotLister
	storage   *storage.LocalStorage
	signer    *storage.SignedURLSigner
	queue     jobEnqueuer
	metrics   exportJobRecorder
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExportService constructs an ExportService instance.
func NewExportService(
	repo exportJobRepository,
	schedules exportScheduleReader,
	slots exportSlotLister,
	store *storage.LocalStorage,
	signer *storage.SignedURLSigner,
	queue jobEnqueuer,
	metrics exportJobRecorder,
	validate *validator.Validate,
	logger *zap.Logger,
) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		repo:      repo,
		schedules: schedules,
		slots:     slots,
		storage:   store,
		signer:    signer,
		queue:     queue,
		metrics:   metrics,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
	}
}

// Create persists a queued export job for a saved schedule and dispatches it
// to the worker queue.
func (s *ExportService) Create(ctx context.Context, req dto.CreateExportRequest, createdBy string) (*dto.ExportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	if _, err := s.schedules.FindByID(ctx, req.ScheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	job := &models.ExportJob{
		ScheduleID: req.ScheduleID,
		Format:     models.ExportFormat(req.Format),
		Status:     models.ExportStatusQueued,
		CreatedBy:  createdBy,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}

	if s.queue != nil {
		if err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: JobTypeExportSchedule, Payload: job.ID}); err != nil {
			s.logger.Warn("failed to enqueue export job", zap.String("jobId", job.ID), zap.Error(err))
		}
	}

	return &dto.ExportJobResponse{ID: job.ID, Status: string(job.Status)}, nil
}

// Status reports job progress and, once finished, the signed download URL.
func (s *ExportService) Status(ctx context.Context, jobID string) (*dto.ExportStatusResponse, error) {
	if jobID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "export job id is required")
	}
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	return &dto.ExportStatusResponse{
		ID:        job.ID,
		Status:    string(job.Status),
		ResultURL: job.ResultURL,
		Error:     job.ErrorMessage,
	}, nil
}

// Download validates a signed token and opens the stored file.
func (s *ExportService) Download(ctx context.Context, token string) (*os.File, string, error) {
	if s.signer == nil || s.storage == nil {
		return nil, "", appErrors.Clone(appErrors.ErrInternal, "export storage unavailable")
	}
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.Status != models.ExportStatusFinished {
		return nil, "", appErrors.Clone(appErrors.ErrPreconditionFailed, "export is not finished")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export file missing")
	}
	return file, relPath, nil
}

// Process is the queue handler: it renders the schedule, stores the file, and
// records the signed download URL on the job row.
func (s *ExportService) Process(ctx context.Context, queued jobs.Job) error {
	jobID, ok := queued.Payload.(string)
	if !ok || jobID == "" {
		s.logger.Warn("export job missing id payload", zap.String("queueJobId", queued.ID))
		return nil
	}

	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", jobID, err)
	}
	if err := s.repo.MarkProcessing(ctx, job.ID); err != nil {
		s.logger.Warn("failed to mark export processing", zap.String("jobId", job.ID), zap.Error(err))
	}

	if err := s.render(ctx, job); err != nil {
		if markErr := s.repo.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
			s.logger.Error("failed to record export failure", zap.String("jobId", job.ID), zap.Error(markErr))
		}
		if s.metrics != nil {
			s.metrics.RecordExportJob(string(job.Format), "failed")
		}
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordExportJob(string(job.Format), "finished")
	}
	return nil
}

func (s *ExportService) render(ctx context.Context, job *models.ExportJob) error {
	schedule, err := s.schedules.FindByID(ctx, job.ScheduleID)
	if err != nil {
		return fmt.Errorf("load schedule %s: %w", job.ScheduleID, err)
	}
	slots, err := s.slots.ListBySchedule(ctx, job.ScheduleID)
	if err != nil {
		return fmt.Errorf("list slots for schedule %s: %w", job.ScheduleID, err)
	}
	if len(slots) == 0 {
		return fmt.Errorf("schedule %s has no slots", job.ScheduleID)
	}

	dataset := buildScheduleDataset(slots)
	title := fmt.Sprintf("Schedule v%d (%s)", schedule.Version, schedule.Algorithm)

	var payload []byte
	switch job.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		return fmt.Errorf("unsupported export format %q", job.Format)
	}
	if err != nil {
		return fmt.Errorf("render %s export: %w", job.Format, err)
	}

	filename := fmt.Sprintf("%s/%s.%s", schedule.EventID, job.ID, job.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return fmt.Errorf("store export file: %w", err)
	}

	token, _, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return fmt.Errorf("sign download url: %w", err)
	}
	resultURL := fmt.Sprintf("/api/v1/exports/download?token=%s", token)

	if err := s.repo.MarkFinished(ctx, job.ID, resultURL); err != nil {
		return fmt.Errorf("mark export finished: %w", err)
	}
	s.logger.Info("export finished",
		zap.String("jobId", job.ID),
		zap.String("format", string(job.Format)),
		zap.String("file", relPath))
	return nil
}

// buildScheduleDataset lays the schedule out as a room x slot grid, one row
// per room tier ordered by slot label columns.
func buildScheduleDataset(slots []models.ScheduleSlot) export.Dataset {
	sort.SliceStable(slots, func(a, b int) bool {
		if slots[a].RoomIndex == slots[b].RoomIndex {
			return slots[a].SlotIndex < slots[b].SlotIndex
		}
		return slots[a].RoomIndex < slots[b].RoomIndex
	})

	labels := make([]string, 0)
	seen := make(map[int]bool)
	for _, slot := range slots {
		if !seen[slot.SlotIndex] {
			seen[slot.SlotIndex] = true
			labels = append(labels, slot.SlotLabel)
		}
	}

	headers := append([]string{"room", "capacity"}, labels...)
	rowsByRoom := make(map[int]map[string]string)
	order := make([]int, 0)
	for _, slot := range slots {
		row, ok := rowsByRoom[slot.RoomIndex]
		if !ok {
			row = map[string]string{
				"room":     fmt.Sprintf("Room %d", slot.RoomIndex+1),
				"capacity": fmt.Sprintf("%d", slot.RoomCapacity),
			}
			rowsByRoom[slot.RoomIndex] = row
			order = append(order, slot.RoomIndex)
		}
		row[slot.SlotLabel] = slot.PresentationTitle
	}

	rows := make([]map[string]string, 0, len(order))
	for _, roomIdx := range order {
		rows = append(rows, rowsByRoom[roomIdx])
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
