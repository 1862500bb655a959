package dto

// SubmitBallotRequest carries one voter's weight vector for an event. Weights
// are aligned to the event's presentation order.
type SubmitBallotRequest struct {
	VoterRef string  `json:"voterRef" validate:"omitempty,max=120"`
	Weights  []int64 `json:"weights" validate:"required,min=1"`
}

// PopularityEntry is one presentation's aggregate ballot weight.
type PopularityEntry struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	Score int    `json:"score"`
}

// PopularitySummary reports the current per-presentation vote totals for an
// event, ordered by score descending.
type PopularitySummary struct {
	EventID     string            `json:"eventId"`
	BallotCount int               `json:"ballotCount"`
	Entries     []PopularityEntry `json:"entries"`
}
