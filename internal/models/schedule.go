package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ScheduleStatus represents lifecycle phases for saved schedules.
type ScheduleStatus string

const (
	ScheduleStatusDraft     ScheduleStatus = "DRAFT"
	ScheduleStatusPublished ScheduleStatus = "PUBLISHED"
	ScheduleStatusArchived  ScheduleStatus = "ARCHIVED"
)

// Schedule is a versioned, persisted planning result for one event.
type Schedule struct {
	ID        string         `db:"id" json:"id"`
	EventID   string         `db:"event_id" json:"event_id"`
	Version   int            `db:"version" json:"version"`
	Status    ScheduleStatus `db:"status" json:"status"`
	Algorithm string         `db:"algorithm" json:"algorithm"`
	Meta      types.JSONText `db:"meta" json:"meta"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// ScheduleSlot is one (room, time slot) cell of a saved schedule. Room index 0
// is the largest-capacity room; capacity and labels are denormalized from the
// event for rendering.
type ScheduleSlot struct {
	ID                string    `db:"id" json:"id"`
	ScheduleID        string    `db:"schedule_id" json:"schedule_id"`
	RoomIndex         int       `db:"room_index" json:"room_index"`
	SlotIndex         int       `db:"slot_index" json:"slot_index"`
	RoomCapacity      int       `db:"room_capacity" json:"room_capacity"`
	SlotLabel         string    `db:"slot_label" json:"slot_label"`
	PresentationIndex int       `db:"presentation_index" json:"presentation_index"`
	PresentationTitle string    `db:"presentation_title" json:"presentation_title"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}
