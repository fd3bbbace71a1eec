// Package ai is the gateway to the Gemini API. Every call is stateless:
// chat history travels with each request and nothing is kept between calls.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend-nepaltrip/internal/apperr"
	"backend-nepaltrip/internal/content"
	"backend-nepaltrip/internal/shared/geo"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultPlanTimeout = 5 * time.Minute
)

type Config struct {
	APIKey string
	// Timeout bounds a single-shot call, and the gap between two chunks of
	// a stream.
	Timeout time.Duration
	// PlanTimeout replaces Timeout for the trip planner, which thinks
	// before it answers.
	PlanTimeout time.Duration
	RatePerSec  float64
}

type Gateway struct {
	gen         Generator
	timeout     time.Duration
	planTimeout time.Duration
	limiter     *rate.Limiter
	log         *zap.Logger
}

// New builds the gateway. A missing API key is not an error here: the
// service boots and every call fails with a configuration error instead.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Gateway, error) {
	if cfg.APIKey == "" {
		log.Warn("GEMINI_API_KEY not set; AI features will not work")
		return NewWithGenerator(nil, cfg, log), nil
	}
	gen, err := NewGenerator(ctx, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return NewWithGenerator(gen, cfg, log), nil
}

func NewWithGenerator(gen Generator, cfg Config, log *zap.Logger) *Gateway {
	g := &Gateway{gen: gen, timeout: cfg.Timeout, planTimeout: cfg.PlanTimeout, log: log}
	if g.timeout <= 0 {
		g.timeout = DefaultTimeout
	}
	if g.planTimeout <= 0 {
		g.planTimeout = DefaultPlanTimeout
	}
	if cfg.RatePerSec > 0 {
		burst := int(cfg.RatePerSec)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}
	return g
}

// Configured reports whether calls can reach the API.
func (g *Gateway) Configured() bool {
	return g.gen != nil
}

func (g *Gateway) admit(ctx context.Context, op string) error {
	if g.gen == nil {
		return apperr.Configuration("%s: AI service is currently unavailable, API key not configured", op)
	}
	if g.limiter == nil {
		return nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return apperr.Service(err, "%s: rate limit", op)
	}
	return nil
}

// generate runs one bounded single-shot call and returns its text.
func (g *Gateway) generate(ctx context.Context, op, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, string, error) {
	return g.generateWithin(ctx, g.timeout, op, model, contents, cfg)
}

func (g *Gateway) generateWithin(ctx context.Context, timeout time.Duration, op, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, string, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := g.admit(ctx, op); err != nil {
		observe(op, start, err)
		return nil, "", err
	}
	resp, err := g.gen.Generate(ctx, model, contents, cfg)
	if err != nil {
		err = apperr.Service(err, "%s", op)
		g.log.Warn("ai call failed", zap.String("operation", op), zap.String("model", model), zap.Error(err))
		observe(op, start, err)
		return nil, "", err
	}
	text := responseText(resp)
	if text == "" {
		err = apperr.Service(errNoText, "%s", op)
		observe(op, start, err)
		return nil, "", err
	}
	observe(op, start, nil)
	return resp, text, nil
}

// stream opens a streaming call detached from ctx's deadline; the stream is
// bounded by the idle timeout and by Close.
func (g *Gateway) stream(ctx context.Context, op, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*TextStream, error) {
	return g.streamWithin(ctx, g.timeout, op, model, contents, cfg)
}

func (g *Gateway) streamWithin(ctx context.Context, idle time.Duration, op, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*TextStream, error) {
	start := time.Now()
	if err := g.admit(ctx, op); err != nil {
		observe(op, start, err)
		return nil, err
	}
	sctx, cancel := context.WithCancelCause(ctx)
	seq := g.gen.Stream(sctx, model, contents, cfg)
	return startStream(sctx, cancel, idle, op, seq, func(err error) {
		observe(op, start, err)
		if err != nil && !errors.Is(err, context.Canceled) {
			g.log.Warn("ai stream failed", zap.String("operation", op), zap.String("model", model), zap.Error(err))
		}
	}), nil
}

// ChatReply streams the assistant's answer to prompt. history holds the
// earlier turns only; the caller appends both turns once the stream ends.
func (g *Gateway) ChatReply(ctx context.Context, prompt string, history []content.ChatMessage) (*TextStream, error) {
	return g.stream(ctx, "chat", ChatModel, chatContents(prompt, history), chatConfig())
}

// Chat is the collected form of ChatReply.
func (g *Gateway) Chat(ctx context.Context, prompt string, history []content.ChatMessage) (content.ChatMessage, error) {
	s, err := g.ChatReply(ctx, prompt, history)
	if err != nil {
		return content.ChatMessage{}, err
	}
	text, err := s.Collect()
	if err != nil {
		return content.ChatMessage{}, err
	}
	return content.ChatMessage{Role: content.RoleModel, Text: text}, nil
}

func chatConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{SystemInstruction: instruction(chatInstruction)}
}

func chatContents(prompt string, history []content.ChatMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		if m.Text == "" {
			continue
		}
		contents = append(contents, &genai.Content{Role: string(m.Role), Parts: []*genai.Part{{Text: m.Text}}})
	}
	return append(contents, userText(prompt))
}

func plannerConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: instruction(plannerInstruction),
		ThinkingConfig:    &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](plannerThinkingBudget)},
	}
}

// PlanTrip streams a markdown itinerary.
func (g *Gateway) PlanTrip(ctx context.Context, prompt string) (*TextStream, error) {
	return g.streamWithin(ctx, g.planTimeout, "plan_trip", PlannerModel, []*genai.Content{userText(prompt)}, plannerConfig())
}

// PlanTripText is the single-shot planner.
func (g *Gateway) PlanTripText(ctx context.Context, prompt string) (string, error) {
	_, text, err := g.generateWithin(ctx, g.planTimeout, "plan_trip_text", PlannerModel, []*genai.Content{userText(prompt)}, plannerConfig())
	return text, err
}

// DestinationGuide streams a sectioned markdown guide for one destination.
func (g *Gateway) DestinationGuide(ctx context.Context, name string) (*TextStream, error) {
	return g.stream(ctx, "destination_guide", SearchModel, []*genai.Content{userText(fmt.Sprintf(guidePrompt, name))}, nil)
}

// GroundedSearch answers a travel question with Google Search grounding.
// Zero citations is a valid result.
func (g *Gateway) GroundedSearch(ctx context.Context, query string) (content.SearchResult, error) {
	cfg := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}
	resp, text, err := g.generate(ctx, "grounded_search", SearchModel, []*genai.Content{userText(fmt.Sprintf(searchPrompt, query))}, cfg)
	if err != nil {
		return content.SearchResult{}, err
	}
	return content.SearchResult{Text: text, Sources: sources(resp, g.log)}, nil
}

// NearbyPlaces is the maps-grounded search biased to p.
func (g *Gateway) NearbyPlaces(ctx context.Context, query string, p geo.Point) (content.SearchResult, error) {
	cfg := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleMaps: &genai.GoogleMaps{}}},
		ToolConfig: &genai.ToolConfig{
			RetrievalConfig: &genai.RetrievalConfig{
				LatLng: &genai.LatLng{Latitude: genai.Ptr(p.Lat), Longitude: genai.Ptr(p.Lng)},
			},
		},
	}
	resp, text, err := g.generate(ctx, "nearby_places", SearchModel, []*genai.Content{userText(fmt.Sprintf(nearbyPrompt, query))}, cfg)
	if err != nil {
		return content.SearchResult{}, err
	}
	return content.SearchResult{Text: text, Sources: sources(resp, g.log)}, nil
}
