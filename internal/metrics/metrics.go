package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch failure kinds.
const (
	KindHistory = "history"
	KindQuote   = "quote"
)

// Run outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeRejected  = "rejected"
)

// Recorder holds the analyzer's Prometheus collectors. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	fetchFailures     *prometheus.CounterVec
	runs              *prometheus.CounterVec
	duration          prometheus.Histogram
	narrativeDeltas   prometheus.Counter
	narrativeFailures prometheus.Counter
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		fetchFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundpulse_fetch_failures_total",
				Help: "Total number of failed history or quote fetches",
			},
			[]string{"kind"},
		),
		runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundpulse_analysis_runs_total",
				Help: "Total number of analysis runs by outcome",
			},
			[]string{"outcome"},
		),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fundpulse_analysis_duration_seconds",
			Help:    "Duration of completed analysis runs in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		}),
		narrativeDeltas: f.NewCounter(prometheus.CounterOpts{
			Name: "fundpulse_narrative_deltas_total",
			Help: "Total number of narrative text deltas received",
		}),
		narrativeFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "fundpulse_narrative_failures_total",
			Help: "Total number of failed narrative requests",
		}),
	}
}

// FetchFailed counts a failed fetch of the given kind.
func (r *Recorder) FetchFailed(kind string) {
	if r == nil {
		return
	}
	r.fetchFailures.WithLabelValues(kind).Inc()
}

// RunFinished counts a run by outcome.
func (r *Recorder) RunFinished(outcome string) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(outcome).Inc()
}

// ObserveDuration records the wall time of a completed run.
func (r *Recorder) ObserveDuration(d time.Duration) {
	if r == nil {
		return
	}
	r.duration.Observe(d.Seconds())
}

// NarrativeDelta counts one streamed delta.
func (r *Recorder) NarrativeDelta() {
	if r == nil {
		return
	}
	r.narrativeDeltas.Inc()
}

// NarrativeFailed counts a failed narrative request.
func (r *Recorder) NarrativeFailed() {
	if r == nil {
		return
	}
	r.narrativeFailures.Inc()
}

// Handler exposes the gatherer in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
