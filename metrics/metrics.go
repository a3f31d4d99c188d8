package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesReadTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weaponwatch_frames_read_total",
		Help: "Frames successfully read from the video source",
	})

	FramesUnavailableTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weaponwatch_frames_unavailable_total",
		Help: "Ticks on which the video source produced no frame",
	})

	DispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weaponwatch_dispatch_total",
		Help: "Per-tick dispatch decisions, by outcome",
	}, []string{"outcome"})

	AnalysisTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weaponwatch_analysis_total",
		Help: "Completed analysis tasks, by result",
	}, []string{"result"})

	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "weaponwatch_analysis_duration_seconds",
		Help:    "Classifier round-trip duration",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	AnalysisInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "weaponwatch_analysis_in_flight",
		Help: "Analysis tasks currently outstanding (0 or 1 per session)",
	})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weaponwatch_notifications_total",
		Help: "Alert deliveries, by channel and status",
	}, []string{"channel", "status"})

	SessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weaponwatch_sessions_total",
		Help: "Sessions ended, by whether a weapon was detected",
	}, []string{"detected"})
)

// Dispatch outcomes.
const (
	OutcomeDispatched = "dispatched"
	OutcomeBusy       = "busy"
	OutcomeDetected   = "detected"
	OutcomeClosed     = "closed"
)

// Analysis results.
const (
	ResultBelow    = "below_threshold"
	ResultDetected = "detected"
	ResultFailure  = "failure"
	ResultSkipped  = "skipped"
)
