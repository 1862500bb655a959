package models

import (
	"time"

	"github.com/lib/pq"
)

// Ballot is one voter's weight vector over an event's presentations, aligned
// to the event's presentation order. A ballot's total weight may not exceed
// the presentation count.
type Ballot struct {
	ID        string        `db:"id" json:"id"`
	EventID   string        `db:"event_id" json:"event_id"`
	VoterRef  string        `db:"voter_ref" json:"voter_ref,omitempty"`
	Weights   pq.Int64Array `db:"weights" json:"weights"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}
