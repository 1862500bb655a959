package planner

import (
	"errors"
	"fmt"
)

// ErrCardinalityMismatch indicates the presentation count does not equal the
// time slot count multiplied by the room count.
var ErrCardinalityMismatch = errors.New("presentation count must equal time slots times rooms")

// ErrExactSearchLimit indicates the caller forced exact matching for a slot
// count beyond the configured exhaustive-search limit.
var ErrExactSearchLimit = errors.New("time slot count exceeds the exact search limit")

// InvalidBallotError marks a single malformed ballot. Validation is
// all-or-nothing: one invalid ballot aborts the whole planning run.
type InvalidBallotError struct {
	Index  int
	Reason string
}

func (e *InvalidBallotError) Error() string {
	return fmt.Sprintf("ballot %d: %s", e.Index, e.Reason)
}
