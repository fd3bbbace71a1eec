package ai

import (
	"context"
	"errors"
	"time"

	"backend-nepaltrip/internal/apperr"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Generative AI calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "Time from request to final response or end of stream",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"operation"},
	)

	streamChunks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_stream_chunks_total",
			Help: "Text chunks forwarded to stream consumers",
		},
		[]string{"operation"},
	)
)

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrConfiguration):
		return "configuration"
	case errors.Is(err, apperr.ErrTimeout):
		return "timeout"
	case errors.Is(err, apperr.ErrParse):
		return "parse"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "service"
	}
}

func observe(op string, start time.Time, err error) {
	requestsTotal.WithLabelValues(op, outcome(err)).Inc()
	requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
