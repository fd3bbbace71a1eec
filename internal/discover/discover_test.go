package discover

import (
	"context"
	"errors"
	"io"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"backend-nepaltrip/internal/ai"
	"backend-nepaltrip/internal/shared/geo"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type stubGenerator struct {
	mu    sync.Mutex
	reply func(prompt string) (string, error)
	calls atomic.Int32
}

func reply(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
	}}}
}

func (s *stubGenerator) Generate(_ context.Context, _ string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.calls.Add(1)
	s.mu.Lock()
	fn := s.reply
	s.mu.Unlock()
	text, err := fn(contents[0].Parts[len(contents[0].Parts)-1].Text)
	if err != nil {
		return nil, err
	}
	return reply(text), nil
}

func (s *stubGenerator) Stream(_ context.Context, _ string, contents []*genai.Content, _ *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	s.calls.Add(1)
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		text, err := s.reply(contents[0].Parts[0].Text)
		if err != nil {
			yield(nil, err)
			return
		}
		yield(reply(text), nil)
	}
}

func (s *stubGenerator) GenerateImages(context.Context, string, string, *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	return nil, errors.New("images disabled")
}

func newService(gen ai.Generator) *Service {
	g := ai.NewWithGenerator(gen, ai.Config{Timeout: time.Second}, zap.NewNop())
	return NewService(g, time.Minute, zap.NewNop())
}

func TestDestinationsNearestFirst(t *testing.T) {
	all := Destinations(nil)
	if len(all) != 3 || all[0].Name != "Mount Everest Base Camp" {
		t.Fatalf("unexpected catalogue order %+v", all)
	}
	pokhara := geo.Point{Lat: 28.21, Lng: 83.98}
	near := Destinations(&pokhara)
	if near[0].Name != "Pokhara Valley" || near[2].Name != "Mount Everest Base Camp" {
		t.Fatalf("expected Pokhara first and Everest last, got %s..%s", near[0].Name, near[2].Name)
	}
	near[0].Tags[0] = "mutated"
	if Destinations(nil)[1].Tags[0] != "Trending" {
		t.Fatalf("catalogue must not be shared with callers")
	}
}

func TestFeaturedMergesAndCaches(t *testing.T) {
	gen := &stubGenerator{reply: func(string) (string, error) {
		return `[{"name":"Pokhara Valley","location":"Kaski","description":"dup"},
			{"name":"Rara Lake","location":"Mugu","description":"Blue water.","tags":["Nature"]}]`, nil
	}}
	svc := newService(gen)

	got := svc.Featured(context.Background())
	if len(got) != 4 || got[3].Name != "Rara Lake" {
		t.Fatalf("expected catalogue plus one pick, got %+v", got)
	}
	if got[3].Image != ai.PlaceholderImage("Rara Lake") {
		t.Fatalf("unexpected image %q", got[3].Image)
	}

	_ = svc.Featured(context.Background())
	if gen.calls.Load() != 1 {
		t.Fatalf("expected cached result, got %d calls", gen.calls.Load())
	}
}

func TestFeaturedFallsBackToCatalogue(t *testing.T) {
	gen := &stubGenerator{reply: func(string) (string, error) { return "not json", nil }}
	svc := newService(gen)

	got := svc.Featured(context.Background())
	if len(got) != 3 {
		t.Fatalf("expected static catalogue, got %d", len(got))
	}
	_ = svc.Featured(context.Background())
	if gen.calls.Load() != 2 {
		t.Fatalf("failures must not be cached")
	}
}

func TestTripIdeasAndHeroFallbacks(t *testing.T) {
	svc := newService(nil)
	if ideas := svc.TripIdeas(context.Background()); len(ideas) != len(exampleTrips) {
		t.Fatalf("expected example trips, got %+v", ideas)
	}
	if hero := svc.Hero(context.Background()); hero != defaultHero {
		t.Fatalf("expected default hero, got %+v", hero)
	}
}

func TestHeroKeepsTextWhenImageFails(t *testing.T) {
	gen := &stubGenerator{reply: func(string) (string, error) {
		return `{"title":"Monsoon Magic","description":"Green valleys await."}`, nil
	}}
	hero := newService(gen).Hero(context.Background())
	if hero.Title != "Monsoon Magic" || hero.Image != defaultHero.Image {
		t.Fatalf("unexpected hero %+v", hero)
	}
}

func TestStaleRefreshDoesNotOverwrite(t *testing.T) {
	release := make(chan struct{})
	var n atomic.Int32
	gen := &stubGenerator{reply: func(string) (string, error) {
		if n.Add(1) == 1 {
			<-release
			return `[{"title":"Old idea","prompt":"old"}]`, nil
		}
		return `[{"title":"New idea","prompt":"new"}]`, nil
	}}
	svc := newService(gen)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = svc.TripIdeas(context.Background())
	}()
	for n.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	fresh := svc.TripIdeas(context.Background())
	close(release)
	<-done

	if fresh[0].Title != "New idea" {
		t.Fatalf("unexpected fresh result %+v", fresh)
	}
	cached := svc.TripIdeas(context.Background())
	if cached[0].Title != "New idea" {
		t.Fatalf("stale refresh overwrote cache: %+v", cached)
	}
}

func TestGuideRoute(t *testing.T) {
	gen := &stubGenerator{reply: func(prompt string) (string, error) {
		if !strings.Contains(prompt, `"Bandipur"`) {
			return "", errors.New("unexpected prompt")
		}
		return "**Overview:** hilltop town", nil
	}}
	app := fiber.New()
	RegisterRoutes(app.Group("/discover"), newService(gen))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/discover/guide/Bandipur", nil), 5000)
	if err != nil {
		t.Fatalf("guide: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "hilltop town") || !strings.Contains(string(body), "event: done") {
		t.Fatalf("unexpected guide body %q", body)
	}
}

func TestGuideRouteErrorStatus(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/discover"), newService(nil))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/discover/guide/Bandipur", nil))
	if err != nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unconfigured gateway: expected 503, got %d %v", resp.StatusCode, err)
	}

	gen := &stubGenerator{reply: func(string) (string, error) { return "guide", nil }}
	app = fiber.New()
	RegisterRoutes(app.Group("/discover"), newService(gen))
	long := strings.Repeat("a", maxGuideName+1)
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/discover/guide/"+long, nil))
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("overlong name: expected 400, got %d %v", resp.StatusCode, err)
	}
	if gen.calls.Load() != 0 {
		t.Fatalf("rejected name must not reach the model")
	}
}
