package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"backend-nepaltrip/internal/apperr"
	"backend-nepaltrip/internal/content"
	"backend-nepaltrip/internal/shared/geo"

	"go.uber.org/zap"
)

func TestChatStreamMatchesCollectedReply(t *testing.T) {
	gen := newFake()
	gen.chunks = []string{"Namaste", " from", " Nepal"}
	g := newTestGateway(t, gen, time.Second)
	history := []content.ChatMessage{
		{Role: content.RoleModel, Text: Greeting},
		{Role: content.RoleUser, Text: "I like mountains"},
	}

	stream, err := g.ChatReply(context.Background(), "Where should I go?", history)
	if err != nil {
		t.Fatalf("chat reply: %v", err)
	}
	var chunks []string
	for {
		chunk, ok := stream.Next()
		if !ok {
			break
		}
		chunks = append(chunks, chunk)
	}
	if stream.Err() != nil {
		t.Fatalf("stream error: %v", stream.Err())
	}

	msg, err := g.Chat(context.Background(), "Where should I go?", history)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if strings.Join(chunks, "") != msg.Text || msg.Text != "Namaste from Nepal" || msg.Role != content.RoleModel {
		t.Fatalf("stream %q and collected %q differ", chunks, msg.Text)
	}

	if len(gen.contents) != 3 || gen.contents[0].Role != "model" || gen.contents[2].Parts[0].Text != "Where should I go?" {
		t.Fatalf("unexpected request contents: %+v", gen.contents)
	}
	if gen.cfg == nil || gen.cfg.SystemInstruction == nil {
		t.Fatalf("expected system instruction")
	}
}

func TestMissingKeyIsConfigurationError(t *testing.T) {
	g := newTestGateway(t, nil, time.Second)
	if g.Configured() {
		t.Fatalf("expected unconfigured gateway")
	}
	if _, err := g.ChatReply(context.Background(), "hi", nil); !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := g.GroundedSearch(context.Background(), "Lumbini"); !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := g.GenerateImage(context.Background(), "Rara lake"); !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestStreamIdleTimeout(t *testing.T) {
	gen := newFake()
	gen.chunks = []string{"Day 1:"}
	gen.block = true
	g := newTestGateway(t, gen, 50*time.Millisecond)

	stream, err := g.ChatReply(context.Background(), "10 days in Mustang", nil)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	_, err = stream.Collect()
	if !errors.Is(err, apperr.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if errors.Is(err, apperr.ErrService) {
		t.Fatalf("timeout must be distinct from service failure")
	}
}

func TestStreamCloseCancelsCall(t *testing.T) {
	gen := newFake()
	gen.chunks = []string{"first"}
	gen.block = true
	g := newTestGateway(t, gen, 5*time.Second)

	stream, err := g.ChatReply(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if chunk, ok := stream.Next(); !ok || chunk != "first" {
		t.Fatalf("expected first chunk, got %q", chunk)
	}
	stream.Close()

	select {
	case <-gen.canceled:
	case <-time.After(time.Second):
		t.Fatalf("underlying call was not cancelled")
	}
	for {
		if _, ok := stream.Next(); !ok {
			break
		}
	}
	if stream.Err() != nil {
		t.Fatalf("close must not be an error, got %v", stream.Err())
	}
}

func TestStreamFailureAndEmptyReply(t *testing.T) {
	gen := newFake()
	gen.chunks = []string{"partial"}
	gen.streamErr = errors.New("connection reset")
	g := newTestGateway(t, gen, time.Second)

	if _, err := g.Chat(context.Background(), "hi", nil); !errors.Is(err, apperr.ErrService) {
		t.Fatalf("expected service error, got %v", err)
	}

	empty := newFake()
	g = newTestGateway(t, empty, time.Second)
	if _, err := g.Chat(context.Background(), "hi", nil); !errors.Is(err, apperr.ErrService) {
		t.Fatalf("expected service error for empty reply, got %v", err)
	}
}

func TestGenerateTimeout(t *testing.T) {
	gen := newFake()
	gen.block = true
	g := NewWithGenerator(gen, Config{Timeout: 30 * time.Millisecond, PlanTimeout: 60 * time.Millisecond}, zap.NewNop())

	if _, err := g.Hero(context.Background()); !errors.Is(err, apperr.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if _, err := g.PlanTripText(context.Background(), "Annapurna circuit"); !errors.Is(err, apperr.ErrTimeout) {
		t.Fatalf("expected planner timeout, got %v", err)
	}
}

func TestPlannerOutlastsDefaultTimeout(t *testing.T) {
	gen := newFake()
	gen.text = "## Day 1: Kathmandu"
	gen.chunks = []string{"## Day 1", ": Kathmandu"}
	gen.delay = 80 * time.Millisecond
	g := NewWithGenerator(gen, Config{Timeout: 20 * time.Millisecond, PlanTimeout: 2 * time.Second}, zap.NewNop())

	text, err := g.PlanTripText(context.Background(), "Upper Mustang")
	if err != nil || text != "## Day 1: Kathmandu" {
		t.Fatalf("slow planner reply should complete: %q %v", text, err)
	}

	stream, err := g.PlanTrip(context.Background(), "Upper Mustang")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	text, err = stream.Collect()
	if err != nil || text != "## Day 1: Kathmandu" {
		t.Fatalf("slow planner stream should complete: %q %v", text, err)
	}

	if _, err := g.Hero(context.Background()); !errors.Is(err, apperr.ErrTimeout) {
		t.Fatalf("other calls keep the short timeout, got %v", err)
	}
}

func TestPlannerUsesThinkingBudget(t *testing.T) {
	gen := newFake()
	gen.text = "## Day 1"
	g := newTestGateway(t, gen, time.Second)

	text, err := g.PlanTripText(context.Background(), "Langtang trek")
	if err != nil || text != "## Day 1" {
		t.Fatalf("plan text: %q %v", text, err)
	}
	if gen.cfg.ThinkingConfig == nil || *gen.cfg.ThinkingConfig.ThinkingBudget != plannerThinkingBudget {
		t.Fatalf("expected thinking budget on planner call")
	}
}

func TestGroundedSearchWithoutSources(t *testing.T) {
	gen := newFake()
	gen.text = "Lumbini is the birthplace of the Buddha."
	g := newTestGateway(t, gen, time.Second)

	res, err := g.GroundedSearch(context.Background(), "Lumbini")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Sources == nil || len(res.Sources) != 0 {
		t.Fatalf("expected empty sources, got %v", res.Sources)
	}
	data, _ := json.Marshal(res)
	if !strings.Contains(string(data), `"sources":[]`) {
		t.Fatalf("expected empty sources array in %s", data)
	}
	if len(gen.cfg.Tools) != 1 || gen.cfg.Tools[0].GoogleSearch == nil {
		t.Fatalf("expected google search tool")
	}
}

func TestNearbyPlacesBiasesToPoint(t *testing.T) {
	gen := newFake()
	gen.text = "Pashupatinath Temple"
	g := newTestGateway(t, gen, time.Second)

	if _, err := g.NearbyPlaces(context.Background(), "temples", geo.Kathmandu); err != nil {
		t.Fatalf("nearby: %v", err)
	}
	ll := gen.cfg.ToolConfig.RetrievalConfig.LatLng
	if *ll.Latitude != geo.Kathmandu.Lat || *ll.Longitude != geo.Kathmandu.Lng {
		t.Fatalf("unexpected bias %v,%v", *ll.Latitude, *ll.Longitude)
	}
	if gen.cfg.Tools[0].GoogleMaps == nil {
		t.Fatalf("expected google maps tool")
	}
}

func TestRateLimitHonoursContext(t *testing.T) {
	gen := newFake()
	gen.text = "ok"
	g := NewWithGenerator(gen, Config{Timeout: time.Second, RatePerSec: 0.001}, zap.NewNop())

	if _, err := g.PlanTripText(context.Background(), "first"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.PlanTripText(ctx, "second"); !errors.Is(err, apperr.ErrService) && !errors.Is(err, apperr.ErrTimeout) {
		t.Fatalf("expected limiter rejection, got %v", err)
	}
}
