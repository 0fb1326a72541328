package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks update dispatch counters. A nil *Metrics is valid and
// records nothing, matching the nil-safe pattern used across the codebase.
type Metrics struct {
	updates  *prometheus.CounterVec
	dropped  prometheus.Counter
	errors   prometheus.Counter
	voiceLen prometheus.Histogram
}

// NewMetrics registers bot metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		updates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bilagon_bot_updates_total",
			Help: "Updates handled, by kind.",
		}, []string{"kind"}),
		dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "bilagon_bot_updates_dropped_total",
			Help: "Updates dropped because the inbox was full.",
		}),
		errors: f.NewCounter(prometheus.CounterOpts{
			Name: "bilagon_bot_handler_errors_total",
			Help: "Updates whose handler returned an error.",
		}),
		voiceLen: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bilagon_bot_transcript_chars",
			Help:    "Length of voice transcripts in characters.",
			Buckets: prometheus.ExponentialBuckets(16, 4, 6),
		}),
	}
}

func (m *Metrics) updateHandled(kind string) {
	if m != nil {
		m.updates.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) updateDropped() {
	if m != nil {
		m.dropped.Inc()
	}
}

func (m *Metrics) handlerError() {
	if m != nil {
		m.errors.Inc()
	}
}

func (m *Metrics) transcriptChars(n int) {
	if m != nil {
		m.voiceLen.Observe(float64(n))
	}
}
