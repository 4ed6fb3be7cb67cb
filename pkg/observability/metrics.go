package observability

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/anchorsync/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "anchorsync"

// Metrics holds the Prometheus collectors fed by lifecycle events.
type Metrics struct {
	Transitions *prometheus.CounterVec
	Artifacts   *prometheus.CounterVec
	Failures    *prometheus.CounterVec
	Operations  *prometheus.HistogramVec

	mu      sync.Mutex
	started map[string]time.Time
}

// NewMetrics creates unregistered collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "transitions_total",
				Help:      "Total number of session mode changes",
			},
			[]string{"from", "to"},
		),
		Artifacts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "artifacts_total",
				Help:      "Total number of artifacts attached to completed anchors",
			},
			[]string{"kind"},
		),
		Failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "failures_total",
				Help:      "Total number of recovered provider failures",
			},
			[]string{"mode"},
		),
		Operations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "operation_duration_seconds",
				Help:      "Time spent in HostingInProgress and ResolvingInProgress",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"mode"},
		),
		started: make(map[string]time.Time),
	}
}

// Register adds the collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Transitions, m.Artifacts, m.Failures, m.Operations} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.Transitions.WithLabelValues(e.From.String(), e.To.String()).Inc()
			m.observe(e)
		},
		OnArtifact: func(_ context.Context, e *domain.ArtifactEvent) {
			m.Artifacts.WithLabelValues(string(e.Kind)).Inc()
		},
		OnFailure: func(_ context.Context, e *domain.FailureEvent) {
			m.Failures.WithLabelValues(e.Mode.String()).Inc()
		},
	}
}

// observe times operations from entering an in-progress mode to leaving it.
func (m *Metrics) observe(e *domain.TransitionEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if from := e.From; from.InProgress() {
		if start, ok := m.started[e.SessionID]; ok {
			m.Operations.WithLabelValues(from.String()).Observe(e.Timestamp.Sub(start).Seconds())
		}
		delete(m.started, e.SessionID)
	}
	if e.To.InProgress() {
		m.started[e.SessionID] = e.Timestamp
	}
}
