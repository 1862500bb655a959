package dto

// CreateEventRequest defines a new conference event to plan. Room capacities
// must already be sorted in descending order and the presentation count must
// equal time slots x rooms.
type CreateEventRequest struct {
	Name           string   `json:"name" validate:"required,min=1,max=200"`
	TimeSlots      []string `json:"timeSlots" validate:"required,min=1,dive,required"`
	RoomCapacities []int64  `json:"roomCapacities" validate:"required,min=1,dive,min=1"`
	Presentations  []string `json:"presentations" validate:"required,min=1,dive,required"`
}

// EventQuery filters event listings.
type EventQuery struct {
	Page  int `form:"page" json:"page"`
	Limit int `form:"limit" json:"limit"`
}
