package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	IterationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dcollector_iterations_total",
			Help: "Polling iterations whose samples were committed",
		},
	)

	IterationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dcollector_iteration_failures_total",
			Help: "Polling iterations that failed, by reason",
		},
		[]string{"reason"},
	)

	RowsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dcollector_rows_written_total",
			Help: "Rows committed to the store, by table",
		},
		[]string{"table"},
	)

	SamplesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dcollector_empty_samples_dropped_total",
			Help: "Samples discarded because they carried no data, by kind",
		},
		[]string{"kind"},
	)

	PersistDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dcollector_persist_duration_seconds",
			Help:    "Time spent writing one iteration's samples",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	LastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dcollector_last_success_timestamp_seconds",
			Help: "Unix time of the last committed iteration",
		},
	)

	LoopState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dcollector_loop_state",
			Help: "1 for the state the polling loop is currently in",
		},
		[]string{"state"},
	)

	UPSReachable = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dcollector_ups_reachable",
			Help: "Whether the last UPS session could be opened",
		},
	)
)

// Register adds every agent instrument to reg.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		IterationsTotal,
		IterationFailures,
		RowsWritten,
		SamplesDropped,
		PersistDuration,
		LastSuccess,
		LoopState,
		UPSReachable,
	}
	collectors = append(collectors, sampleGauges()...)
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
