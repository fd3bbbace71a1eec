package trip

import "time"

type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusSaved     Status = "saved"
	StatusCompleted Status = "completed"
)

// SavedTrip is an itinerary kept on the traveller's profile.
type SavedTrip struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Title     string     `json:"title"`
	Location  string     `json:"location"`
	Prompt    string     `json:"prompt"`
	Itinerary string     `json:"itinerary"`
	Status    Status     `json:"status"`
	StartDate *time.Time `json:"start_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type NewTrip struct {
	Title     string     `json:"title" validate:"required,max=120"`
	Location  string     `json:"location" validate:"max=120"`
	Prompt    string     `json:"prompt" validate:"max=4000"`
	Itinerary string     `json:"itinerary" validate:"required"`
	Status    Status     `json:"status" validate:"omitempty,oneof=upcoming saved completed"`
	StartDate *time.Time `json:"start_date"`
}

// PlanRequest asks the planner for an itinerary and saves the result.
type PlanRequest struct {
	Title     string     `json:"title" validate:"required,max=120"`
	Location  string     `json:"location" validate:"max=120"`
	Prompt    string     `json:"prompt" validate:"required,max=4000"`
	StartDate *time.Time `json:"start_date"`
}

type TripPatch struct {
	Title     *string    `json:"title" validate:"omitempty,max=120"`
	Location  *string    `json:"location" validate:"omitempty,max=120"`
	Itinerary *string    `json:"itinerary"`
	Status    *Status    `json:"status" validate:"omitempty,oneof=upcoming saved completed"`
	StartDate *time.Time `json:"start_date"`
}
