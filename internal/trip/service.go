// Package trip keeps the itineraries a traveller saved from the planner.
package trip

import (
	"context"
	"errors"
	"time"

	"backend-nepaltrip/internal/apperr"
	"backend-nepaltrip/internal/db"
	"backend-nepaltrip/internal/shared/validate"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Planner produces an itinerary for a free-text request.
type Planner interface {
	PlanTripText(ctx context.Context, prompt string) (string, error)
}

type Service struct {
	db      db.Querier
	planner Planner
}

func NewService(db db.Querier, planner Planner) *Service {
	return &Service{db: db, planner: planner}
}

const tripColumns = `id, user_id, title, location, prompt, itinerary, status, start_date, created_at`

func scanTrip(row pgx.Row) (SavedTrip, error) {
	var t SavedTrip
	var status string
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Location, &t.Prompt, &t.Itinerary, &status, &t.StartDate, &t.CreatedAt)
	t.Status = Status(status)
	return t, err
}

func storageErr(err error, op, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("trip %s not found", id)
	}
	return apperr.Storage(err, "%s trip", op)
}

func (s *Service) Create(ctx context.Context, userID string, input NewTrip) (SavedTrip, error) {
	if err := validate.Input(input); err != nil {
		return SavedTrip{}, err
	}
	if input.Status == "" {
		input.Status = StatusSaved
	}
	t := SavedTrip{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     input.Title,
		Location:  input.Location,
		Prompt:    input.Prompt,
		Itinerary: input.Itinerary,
		Status:    input.Status,
		StartDate: input.StartDate,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO saved_trips (id, user_id, title, location, prompt, itinerary, status, start_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`, t.ID, t.UserID, t.Title, t.Location, t.Prompt, t.Itinerary, string(t.Status), t.StartDate)
	if err := row.Scan(&t.CreatedAt); err != nil {
		return SavedTrip{}, apperr.Storage(err, "create trip")
	}
	return t, nil
}

// Plan runs the planner and saves its itinerary. A trip with a start date
// in the future is upcoming.
func (s *Service) Plan(ctx context.Context, userID string, req PlanRequest) (SavedTrip, error) {
	if err := validate.Input(req); err != nil {
		return SavedTrip{}, err
	}
	if s.planner == nil {
		return SavedTrip{}, apperr.Configuration("trip planner not configured")
	}
	itinerary, err := s.planner.PlanTripText(ctx, req.Prompt)
	if err != nil {
		return SavedTrip{}, err
	}
	status := StatusSaved
	if req.StartDate != nil && req.StartDate.After(time.Now()) {
		status = StatusUpcoming
	}
	return s.Create(ctx, userID, NewTrip{
		Title:     req.Title,
		Location:  req.Location,
		Prompt:    req.Prompt,
		Itinerary: itinerary,
		Status:    status,
		StartDate: req.StartDate,
	})
}

// List returns the user's trips, newest first, optionally filtered by status.
func (s *Service) List(ctx context.Context, userID string, status Status) ([]SavedTrip, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+tripColumns+`
		FROM saved_trips
		WHERE user_id=$1 AND ($2 = '' OR status=$2)
		ORDER BY created_at DESC
	`, userID, string(status))
	if err != nil {
		return nil, apperr.Storage(err, "list trips")
	}
	defer rows.Close()

	trips := []SavedTrip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, apperr.Storage(err, "scan trip")
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage(err, "list trips")
	}
	return trips, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (SavedTrip, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+tripColumns+`
		FROM saved_trips WHERE id=$1 AND user_id=$2
	`, id, userID)
	t, err := scanTrip(row)
	if err != nil {
		return SavedTrip{}, storageErr(err, "get", id)
	}
	return t, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, patch TripPatch) (SavedTrip, error) {
	if err := validate.Input(patch); err != nil {
		return SavedTrip{}, err
	}
	var status *string
	if patch.Status != nil {
		v := string(*patch.Status)
		status = &v
	}
	row := s.db.QueryRow(ctx, `
		UPDATE saved_trips
		SET title=COALESCE($3, title),
			location=COALESCE($4, location),
			itinerary=COALESCE($5, itinerary),
			status=COALESCE($6, status),
			start_date=COALESCE($7, start_date)
		WHERE id=$1 AND user_id=$2
		RETURNING `+tripColumns,
		id, userID, patch.Title, patch.Location, patch.Itinerary, status, patch.StartDate)
	t, err := scanTrip(row)
	if err != nil {
		return SavedTrip{}, storageErr(err, "update", id)
	}
	return t, nil
}

// Delete is idempotent.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM saved_trips WHERE id=$1 AND user_id=$2`, id, userID); err != nil {
		return apperr.Storage(err, "delete trip")
	}
	return nil
}
