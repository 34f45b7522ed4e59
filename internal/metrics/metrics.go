package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels completed analysis passes.
	OutcomeSuccess = "success"
	// OutcomeError labels failed analysis passes.
	OutcomeError = "error"
)

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "waste_engine",
			Name:      "analyses_total",
			Help:      "Total number of analysis passes handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "waste_engine",
			Name:      "analysis_seconds",
			Help:      "Analysis pass latency in seconds.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	alertsEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "waste_engine",
			Name:      "alerts_emitted_total",
			Help:      "Alerts emitted, partitioned by severity.",
		},
		[]string{"severity"},
	)

	alertsSuppressedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "waste_engine",
			Name:      "alerts_suppressed_total",
			Help:      "Alert emissions suppressed by dampening or the reliability gate.",
		},
	)

	readingsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "waste_engine",
			Name:      "readings_rejected_total",
			Help:      "Readings dropped or clipped during sanitisation, partitioned by reason.",
		},
		[]string{"reason"},
	)

	feedbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "waste_engine",
			Name:      "feedback_total",
			Help:      "Operator feedback events, partitioned by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register attaches waste-engine collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		analysesTotal,
		analysisDurationSeconds,
		alertsEmittedTotal,
		alertsSuppressedTotal,
		readingsRejectedTotal,
		feedbackTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnalysis records an analysis pass duration and outcome label.
func ObserveAnalysis(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	analysesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
}

// RecordAlertEmitted counts one emitted alert.
func RecordAlertEmitted(severity string) {
	alertsEmittedTotal.WithLabelValues(severity).Inc()
}

// RecordAlertSuppressed counts one suppressed emission.
func RecordAlertSuppressed() {
	alertsSuppressedTotal.Inc()
}

// RecordReadingsRejected counts sanitisation drops or clips.
func RecordReadingsRejected(reason string, n int) {
	if n <= 0 {
		return
	}
	readingsRejectedTotal.WithLabelValues(reason).Add(float64(n))
}

// RecordFeedback counts one operator feedback event.
func RecordFeedback(outcome string) {
	feedbackTotal.WithLabelValues(outcome).Inc()
}
