package planner

import "fmt"

// TallyVotes sums ballot weights into a per-presentation popularity vector.
// Each ballot must be aligned to the presentation order, carry non-negative
// weights, and distribute at most one weight unit per presentation in total.
// Accumulation is commutative, so ballot order never affects the result.
func TallyVotes(ballots [][]int, presentations int) ([]int, error) {
	scores := make([]int, presentations)
	for i, ballot := range ballots {
		if len(ballot) != presentations {
			return nil, &InvalidBallotError{
				Index:  i,
				Reason: fmt.Sprintf("expected %d weights, got %d", presentations, len(ballot)),
			}
		}
		total := 0
		for p, weight := range ballot {
			if weight < 0 {
				return nil, &InvalidBallotError{
					Index:  i,
					Reason: fmt.Sprintf("negative weight %d for presentation %d", weight, p),
				}
			}
			scores[p] += weight
			total += weight
		}
		if total > presentations {
			return nil, &InvalidBallotError{
				Index:  i,
				Reason: fmt.Sprintf("total weight %d exceeds presentation count %d", total, presentations),
			}
		}
	}
	return scores, nil
}
