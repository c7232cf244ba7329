package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mailtriage/internal/domain/email"
)

// Recorder exports triage counters to Prometheus.
type Recorder struct {
	Registry *prometheus.Registry

	classified       *prometheus.CounterVec
	replies          *prometheus.CounterVec
	analysisFailures prometheus.Counter
	cycleDuration    prometheus.Histogram
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		Registry: reg,
		classified: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailtriage_messages_classified_total",
				Help: "Messages classified, by intent",
			},
			[]string{"intent", "degraded"},
		),
		replies: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailtriage_replies_total",
				Help: "Auto-replies attempted, by outcome",
			},
			[]string{"status"}, // status: sent, failed
		),
		analysisFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mailtriage_analysis_failures_total",
				Help: "Sentiment/entity analysis calls that failed",
			},
		),
		cycleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mailtriage_cycle_duration_seconds",
				Help:    "Duration of a full triage cycle in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
			},
		),
	}
}

func (r *Recorder) Classified(intent email.Intent, degraded bool) {
	r.classified.WithLabelValues(intent.String(), strconv.FormatBool(degraded)).Inc()
}

func (r *Recorder) ReplySent(ok bool) {
	status := "sent"
	if !ok {
		status = "failed"
	}
	r.replies.WithLabelValues(status).Inc()
}

func (r *Recorder) AnalysisFailed() {
	r.analysisFailures.Inc()
}

func (r *Recorder) CycleFinished(d time.Duration) {
	r.cycleDuration.Observe(d.Seconds())
}
