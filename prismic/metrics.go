package prismic

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/eringen/spacetraveling/feed"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spacetraveling_prismic_requests_total",
		Help: "Requests sent to the Prismic API, by operation and outcome",
	}, []string{"op", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spacetraveling_prismic_request_duration_seconds",
		Help:    "Latency of Prismic API requests",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms .. ~5s
	}, []string{"op"})
)

func observe(op string, start time.Time, err error) {
	requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	requestsTotal.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, feed.ErrSourceUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
