package dto

// GeneratePlanRequest asks the planner to build a schedule proposal for an
// event. Greedy overrides matcher selection when set; when nil the planner
// decides from the configured exact search limit.
type GeneratePlanRequest struct {
	EventID string `json:"eventId" validate:"required"`
	Greedy  *bool  `json:"greedy"`
}

// PlanSlot is one rendered (room, time slot) assignment.
type PlanSlot struct {
	SlotIndex         int    `json:"slotIndex"`
	SlotLabel         string `json:"slotLabel"`
	PresentationIndex int    `json:"presentationIndex"`
	PresentationTitle string `json:"presentationTitle"`
}

// PlanRoom groups a room tier's slot assignments. Room index 0 is the
// largest-capacity room.
type PlanRoom struct {
	RoomIndex int        `json:"roomIndex"`
	Capacity  int        `json:"capacity"`
	Slots     []PlanSlot `json:"slots"`
}

// GeneratePlanResponse returns the built proposal for preview.
type GeneratePlanResponse struct {
	ProposalID  string            `json:"proposalId"`
	EventID     string            `json:"eventId"`
	Algorithm   string            `json:"algorithm"`
	BallotCount int               `json:"ballotCount"`
	Popularity  []PopularityEntry `json:"popularity"`
	Rooms       []PlanRoom        `json:"rooms"`
}

// SavePlanRequest persists a proposal as a versioned schedule. Publish moves
// it straight to PUBLISHED instead of DRAFT.
type SavePlanRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
	Publish    bool   `json:"publish"`
}

// ScheduleQuery filters schedule summaries by event.
type ScheduleQuery struct {
	EventID string `form:"eventId" json:"eventId"`
}
