package ai

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"time"

	"backend-nepaltrip/internal/apperr"

	"google.golang.org/genai"
)

var errNoText = errors.New("model returned no text")

// TextStream is a cancellable sequence of text chunks. Chunks arrive in the
// order the model produced them; their concatenation is the full reply.
// Close may be called at any time and is not an error.
type TextStream struct {
	chunks chan string
	done   chan struct{}
	cancel context.CancelCauseFunc
	once   sync.Once
	err    error
}

// startStream consumes seq on its own goroutine. A chunk gap longer than
// idle cancels the call with a timeout. finish runs once with the final
// classified error.
func startStream(ctx context.Context, cancel context.CancelCauseFunc, idle time.Duration, op string,
	seq iter.Seq2[*genai.GenerateContentResponse, error], finish func(error)) *TextStream {
	s := &TextStream{
		chunks: make(chan string),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go s.produce(ctx, idle, op, seq, finish)
	return s
}

func (s *TextStream) produce(ctx context.Context, idle time.Duration, op string,
	seq iter.Seq2[*genai.GenerateContentResponse, error], finish func(error)) {
	defer close(s.chunks)

	watchdog := time.AfterFunc(idle, func() {
		s.cancel(apperr.Service(context.DeadlineExceeded, "%s: no chunk within %s", op, idle))
	})
	defer watchdog.Stop()

	var err error
	emitted := false
loop:
	for resp, rerr := range seq {
		if rerr != nil {
			err = rerr
			break
		}
		text := responseText(resp)
		if text == "" {
			continue
		}
		select {
		case s.chunks <- text:
			emitted = true
			streamChunks.WithLabelValues(op).Inc()
			watchdog.Reset(idle)
		case <-s.done:
			break loop
		case <-ctx.Done():
			err = ctx.Err()
			break loop
		}
	}

	select {
	case <-s.done:
		// consumer went away; whatever the transport reported is moot
		s.cancel(nil)
		finish(context.Canceled)
		return
	default:
	}

	if err == nil && !emitted {
		err = errNoText
	}
	if err != nil {
		s.err = classify(ctx, err, op)
	}
	s.cancel(nil)
	finish(s.err)
}

// classify turns a raw transport error into a gateway error kind, using the
// context cause when the call was cut short by a timeout.
func classify(ctx context.Context, err error, op string) error {
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		if errors.Is(cause, apperr.ErrTimeout) {
			return cause
		}
		return apperr.Service(cause, "%s", op)
	}
	return apperr.Service(err, "%s", op)
}

// Next blocks for the next chunk. ok is false once the stream has ended,
// after which Err reports how it ended.
func (s *TextStream) Next() (chunk string, ok bool) {
	chunk, ok = <-s.chunks
	return chunk, ok
}

// Err is nil for a completed or closed stream. Only valid after Next has
// returned false.
func (s *TextStream) Err() error {
	return s.err
}

// Close stops forwarding chunks and cancels the underlying call.
func (s *TextStream) Close() {
	s.once.Do(func() {
		close(s.done)
		s.cancel(context.Canceled)
	})
}

// Collect drains the stream into one string.
func (s *TextStream) Collect() (string, error) {
	defer s.Close()
	var text strings.Builder
	for {
		chunk, ok := s.Next()
		if !ok {
			break
		}
		text.WriteString(chunk)
	}
	if err := s.Err(); err != nil {
		return "", err
	}
	return text.String(), nil
}
