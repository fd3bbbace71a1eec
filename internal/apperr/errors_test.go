package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestKindsMatch(t *testing.T) {
	cause := errors.New("boom")
	err := Storage(cause, "save posts")
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected storage kind")
	}
	if errors.Is(err, ErrService) {
		t.Fatalf("unexpected service kind")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	if err.Error() != "save posts: boom" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestServiceDeadlineBecomesTimeout(t *testing.T) {
	err := Service(fmt.Errorf("call: %w", context.DeadlineExceeded), "chat")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout kind")
	}
	if errors.Is(err, ErrService) {
		t.Fatalf("timeout should not match service kind")
	}
}

func TestWrappedKindSurvivesFmt(t *testing.T) {
	err := fmt.Errorf("handler: %w", NotFound("post %s", "a"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found through wrapping")
	}
}

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Configuration("missing key"), http.StatusServiceUnavailable},
		{Service(errors.New("x"), "call"), http.StatusBadGateway},
		{Parse(errors.New("x"), "decode"), http.StatusBadGateway},
		{NotFound("post"), http.StatusNotFound},
		{PayloadTooLarge(10, 5), http.StatusRequestEntityTooLarge},
		{Invalid(errors.New("x"), "post"), http.StatusBadRequest},
		{Unauthorized("invalid credentials"), http.StatusUnauthorized},
		{Forbidden("post %s belongs to another author", "a"), http.StatusForbidden},
		{Storage(errors.New("x"), "save"), http.StatusInternalServerError},
		{Service(context.DeadlineExceeded, "chat"), http.StatusGatewayTimeout},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := Status(tc.err); got != tc.want {
			t.Fatalf("status for %v: got %d want %d", tc.err, got, tc.want)
		}
	}
}

func TestFiberError(t *testing.T) {
	var fe *fiber.Error
	if !errors.As(Fiber(NotFound("post %s", "x")), &fe) {
		t.Fatalf("expected fiber error")
	}
	if fe.Code != fiber.StatusNotFound || fe.Message != "post x" {
		t.Fatalf("unexpected fiber error: %d %s", fe.Code, fe.Message)
	}
}
