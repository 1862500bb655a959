// Package planner allocates conference presentations to (room, time slot)
// pairs. Presentations are ranked by aggregate ballot weight; the largest room
// receives the most popular group outright, and every following room tier is
// matched against the immediately preceding tier so that presentations sharing
// voter interest land in different time slots. Interactions with tiers more
// than one step removed are intentionally ignored; the result is locally, not
// globally, optimal.
package planner

import (
	"fmt"
	"sort"
)

// DefaultExactSearchLimit caps the slot count for exhaustive matching when the
// caller does not configure a limit. Exact search is factorial in the number
// of time slots.
const DefaultExactSearchLimit = 10

// Algorithm labels recorded on the resulting schedule.
const (
	AlgorithmExact  = "exact"
	AlgorithmGreedy = "greedy"
)

// Input carries the validated planning problem. RoomCapacities must be sorted
// in descending order by the caller; capacities are informational and are not
// checked against audience sizes.
type Input struct {
	TimeSlots      []string
	RoomCapacities []int
	Presentations  []string
	Ballots        [][]int
}

// Options tunes matcher selection. When Greedy is nil the planner picks the
// exact matcher for slot counts up to ExactSearchLimit and the greedy
// heuristic beyond it.
type Options struct {
	Greedy           *bool
	ExactSearchLimit int
}

// Schedule is the planning result. Rooms[r][t] holds the presentation index
// assigned to room tier r (0 = largest capacity) at time slot t. Flattened
// across all tiers the indices form a permutation of the presentation range.
type Schedule struct {
	Rooms      [][]int
	Popularity []int
	Algorithm  string
}

// Plan produces a complete room/slot assignment for the input, or fails with
// ErrCardinalityMismatch, ErrExactSearchLimit, or an InvalidBallotError. The
// result is deterministic for identical inputs.
func Plan(in Input, opts Options) (*Schedule, error) {
	slots := len(in.TimeSlots)
	tiers := len(in.RoomCapacities)
	if slots < 1 || tiers < 1 {
		return nil, fmt.Errorf("%w: at least one time slot and one room required", ErrCardinalityMismatch)
	}
	if len(in.Presentations) != slots*tiers {
		return nil, fmt.Errorf("%w: %d presentations for %d slots x %d rooms",
			ErrCardinalityMismatch, len(in.Presentations), slots, tiers)
	}

	popularity, err := TallyVotes(in.Ballots, len(in.Presentations))
	if err != nil {
		return nil, err
	}

	limit := opts.ExactSearchLimit
	if limit <= 0 {
		limit = DefaultExactSearchLimit
	}
	greedy := slots > limit
	if opts.Greedy != nil {
		greedy = *opts.Greedy
		if !greedy && slots > limit {
			return nil, fmt.Errorf("%w: %d slots exceed limit %d", ErrExactSearchLimit, slots, limit)
		}
	}

	ranking := rankByPopularity(popularity)

	rooms := make([][]int, 0, tiers)
	first := make([]int, slots)
	copy(first, ranking[:slots])
	rooms = append(rooms, first)

	for offset := slots; offset < len(ranking); offset += slots {
		candidates := ranking[offset : offset+slots]
		cost := buildCostMatrix(in.Ballots, rooms[len(rooms)-1], candidates)

		var perm []int
		if greedy {
			perm, _ = greedyMatch(cost)
		} else {
			perm, _ = exactMatch(cost)
		}

		assigned := make([]int, slots)
		for slot, col := range perm {
			assigned[slot] = candidates[col]
		}
		rooms = append(rooms, assigned)
	}

	algorithm := AlgorithmExact
	if greedy {
		algorithm = AlgorithmGreedy
	}
	return &Schedule{Rooms: rooms, Popularity: popularity, Algorithm: algorithm}, nil
}

// rankByPopularity returns presentation indices ordered by popularity
// descending. Equal scores keep their original index order.
func rankByPopularity(popularity []int) []int {
	ranking := make([]int, len(popularity))
	for i := range ranking {
		ranking[i] = i
	}
	sort.SliceStable(ranking, func(a, b int) bool {
		return popularity[ranking[a]] > popularity[ranking[b]]
	})
	return ranking
}
