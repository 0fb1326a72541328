package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks streaming render activity. A nil *Metrics is valid and
// records nothing, so tests and minimal wiring can skip registration.
type Metrics struct {
	sessions     prometheus.Counter
	aborts       prometheus.Counter
	flushes      *prometheus.CounterVec
	pages        prometheus.Counter
	editFailures prometheus.Counter
}

// NewMetrics creates streaming metrics registered on reg. A nil registerer
// creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		sessions: factory.NewCounter(prometheus.CounterOpts{
			Name: "bilagon_stream_sessions_total",
			Help: "Streaming render sessions started.",
		}),
		aborts: factory.NewCounter(prometheus.CounterOpts{
			Name: "bilagon_stream_aborts_total",
			Help: "Sessions aborted by a provider failure.",
		}),
		flushes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bilagon_stream_flushes_total",
			Help: "Applied message flushes by trigger kind.",
		}, []string{"kind"}),
		pages: factory.NewCounter(prometheus.CounterOpts{
			Name: "bilagon_stream_pages_total",
			Help: "Followup messages opened by pagination.",
		}),
		editFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "bilagon_stream_edit_failures_total",
			Help: "Message edits that failed after flood-control handling.",
		}),
	}
}

func (m *Metrics) sessionStarted() {
	if m != nil {
		m.sessions.Inc()
	}
}

func (m *Metrics) sessionAborted() {
	if m != nil {
		m.aborts.Inc()
	}
}

func (m *Metrics) flushed(kind FlushDecision) {
	if m != nil {
		m.flushes.WithLabelValues(kind.String()).Inc()
	}
}

func (m *Metrics) pageOpened() {
	if m != nil {
		m.pages.Inc()
	}
}

func (m *Metrics) editFailed() {
	if m != nil {
		m.editFailures.Inc()
	}
}
