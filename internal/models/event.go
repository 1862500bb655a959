package models

import (
	"time"

	"github.com/lib/pq"
)

// Event is a conference edition to be planned: an ordered set of time slots,
// rooms sorted by capacity in descending order, and one presentation label per
// (room, slot) pair. The presentation count must equal slots x rooms.
type Event struct {
	ID             string         `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	TimeSlots      pq.StringArray `db:"time_slots" json:"time_slots"`
	RoomCapacities pq.Int64Array  `db:"room_capacities" json:"room_capacities"`
	Presentations  pq.StringArray `db:"presentations" json:"presentations"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}
