package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	sweepRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sweep_runs_total",
			Help: "Completed sweep passes.",
		},
	)

	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sweep_duration_ms",
			Help:    "Sweep pass duration distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
	)

	sweepChannelErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_channel_errors_total",
			Help: "Per-channel sweep failures, per flow kind.",
		},
		[]string{"flow"},
	)

	sweepReplays = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_replays_total",
			Help: "Driver replays triggered by the recovery path, per flow kind.",
		},
		[]string{"flow"},
	)

	channelsDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channels_deleted_total",
			Help: "Conversation channels deleted, per flow kind and reason.",
		},
		[]string{"flow", "reason"},
	)
)

func init() {
	register(sweepRuns, sweepDuration, sweepChannelErrors, sweepReplays, channelsDeleted)
}

func IncSweepRun() { sweepRuns.Inc() }

func ObserveSweepDuration(ms float64)  { sweepDuration.Observe(ms) }
func IncSweepChannelError(flow string) { sweepChannelErrors.WithLabelValues(flow).Inc() }
func IncSweepReplay(flow string)       { sweepReplays.WithLabelValues(flow).Inc() }
func IncChannelDeleted(flow, reason string) {
	channelsDeleted.WithLabelValues(flow, reason).Inc()
}
