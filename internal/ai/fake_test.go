package ai

import (
	"context"
	"iter"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// fakeGenerator scripts replies for the gateway. A nil chunk list with
// block set makes calls wait for cancellation.
type fakeGenerator struct {
	mu sync.Mutex

	text      string
	resp      *genai.GenerateContentResponse
	err       error
	chunks    []string
	streamErr error
	block     bool
	delay     time.Duration
	images    *genai.GenerateImagesResponse
	imageErr  error

	contents []*genai.Content
	cfg      *genai.GenerateContentConfig
	canceled chan struct{}
}

func newFake() *fakeGenerator {
	return &fakeGenerator{canceled: make(chan struct{}, 1)}
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func (f *fakeGenerator) record(contents []*genai.Content, cfg *genai.GenerateContentConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contents = contents
	f.cfg = cfg
}

func (f *fakeGenerator) Generate(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.record(contents, cfg)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return textResponse(f.text), nil
}

func (f *fakeGenerator) Stream(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	f.record(contents, cfg)
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		if err := f.wait(ctx); err != nil {
			yield(nil, err)
			return
		}
		for _, chunk := range f.chunks {
			if !yield(textResponse(chunk), nil) {
				return
			}
		}
		if f.streamErr != nil {
			yield(nil, f.streamErr)
			return
		}
		if f.block {
			<-ctx.Done()
			f.canceled <- struct{}{}
			yield(nil, ctx.Err())
		}
	}
}

// wait simulates a model that takes delay before its first token.
func (f *fakeGenerator) wait(ctx context.Context) error {
	if f.delay <= 0 {
		return nil
	}
	select {
	case <-time.After(f.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeGenerator) GenerateImages(ctx context.Context, model, prompt string, cfg *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return f.images, nil
}

func newTestGateway(t *testing.T, gen Generator, timeout time.Duration) *Gateway {
	t.Helper()
	return NewWithGenerator(gen, Config{Timeout: timeout}, zap.NewNop())
}
