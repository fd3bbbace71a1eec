package trip

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

func newTripApp(svc *Service) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app.Group("/trips"), svc, func(c *fiber.Ctx) error {
		c.Locals("user_id", "user-1")
		return c.Next()
	})
	return app
}

func TestTripHandlersCreateAndGet(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO saved_trips`).
		WithArgs(pgxmock.AnyArg(), "user-1", "Tea houses", "", "", "## Day 1", "saved", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	start := time.Now()
	mock.ExpectQuery(`FROM saved_trips WHERE id=\$1 AND user_id=\$2`).
		WithArgs("trip-1", "user-1").
		WillReturnRows(tripRow("trip-1", "saved", &start))

	app := newTripApp(NewService(mock, nil))

	body, _ := json.Marshal(NewTrip{Title: "Tea houses", Itinerary: "## Day 1"})
	req := httptest.NewRequest(http.MethodPost, "/trips/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status: %v %d", err, resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/trips/trip-1", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("get status: %v", err)
	}
	var trip SavedTrip
	_ = json.NewDecoder(resp.Body).Decode(&trip)
	if trip.ID != "trip-1" || trip.UserID != "user-1" {
		t.Fatalf("unexpected trip %+v", trip)
	}
}

func TestTripHandlersErrors(t *testing.T) {
	mock := newMock(t)
	app := newTripApp(NewService(mock, nil))

	req := httptest.NewRequest(http.MethodPost, "/trips/", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/trips/?status=someday", nil))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad status filter, got %d", resp.StatusCode)
	}

	mock.ExpectQuery(`FROM saved_trips WHERE id=\$1`).WithArgs("nope", "user-1").WillReturnError(pgx.ErrNoRows)
	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/trips/nope", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodPost, "/trips/plan", bytes.NewReader([]byte(`{"title":"x","prompt":"y"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected unavailable planner, got %d", resp.StatusCode)
	}
}

func TestTripHandlersDelete(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`DELETE FROM saved_trips`).WithArgs("trip-1", "user-1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	app := newTripApp(NewService(mock, nil))

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/trips/trip-1", nil))
	if err != nil || resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status: %v", err)
	}
}
