package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/confplan-api/internal/models"
)

// ScheduleSlotRepository manages the (room, time slot) cells of saved
// schedules.
type ScheduleSlotRepository struct {
	db *sqlx.DB
}

// NewScheduleSlotRepository builds the repository.
func NewScheduleSlotRepository(db *sqlx.DB) *ScheduleSlotRepository {
	return &ScheduleSlotRepository{db: db}
}

func (r *ScheduleSlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// UpsertBatch writes all slots of a schedule on the provided executor. Slots
// are keyed by (schedule_id, room_index, slot_index) so re-saving a proposal
// replaces cells in place.
func (r *ScheduleSlotRepository) UpsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.ScheduleSlot) error {
	if len(slots) == 0 {
		return nil
	}
	target := r.exec(exec)

	const query = `
INSERT INTO schedule_slots (id, schedule_id, room_index, slot_index, room_capacity, slot_label, presentation_index, presentation_title, created_at)
VALUES (:id, :schedule_id, :room_index, :slot_index, :room_capacity, :slot_label, :presentation_index, :presentation_title, :created_at)
ON CONFLICT (schedule_id, room_index, slot_index) DO UPDATE SET
    room_capacity = EXCLUDED.room_capacity,
    slot_label = EXCLUDED.slot_label,
    presentation_index = EXCLUDED.presentation_index,
    presentation_title = EXCLUDED.presentation_title`

	now := time.Now().UTC()
	for i := range slots {
		if slots[i].ID == "" {
			slots[i].ID = uuid.NewString()
		}
		if slots[i].CreatedAt.IsZero() {
			slots[i].CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, slots[i]); err != nil {
			return fmt.Errorf("upsert slot (%d,%d) for schedule %s: %w",
				slots[i].RoomIndex, slots[i].SlotIndex, slots[i].ScheduleID, err)
		}
	}
	return nil
}

// ListBySchedule returns a schedule's slots in room, then time slot order.
func (r *ScheduleSlotRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]models.ScheduleSlot, error) {
	const query = `SELECT id, schedule_id, room_index, slot_index, room_capacity, slot_label, presentation_index, presentation_title, created_at
FROM schedule_slots WHERE schedule_id = $1 ORDER BY room_index ASC, slot_index ASC`
	var slots []models.ScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list slots for schedule %s: %w", scheduleID, err)
	}
	return slots, nil
}
