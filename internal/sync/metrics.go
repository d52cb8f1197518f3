package sync

import "github.com/prometheus/client_golang/prometheus"

var (
	rowsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketing_tracker",
		Subsystem: "sync",
		Name:      "rows_total",
		Help:      "Rows written to the sheet (sync) or records written to the store (restore).",
	}, []string{"op", "table"})

	anomalyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketing_tracker",
		Subsystem: "sync",
		Name:      "anomalies_total",
		Help:      "Values that could not be converted and were kept verbatim.",
	}, []string{"op", "table"})

	skippedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketing_tracker",
		Subsystem: "sync",
		Name:      "records_skipped_total",
		Help:      "Records skipped because they failed validation.",
	}, []string{"op", "table"})

	failureCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketing_tracker",
		Subsystem: "sync",
		Name:      "table_failures_total",
		Help:      "Table syncs or restores that failed.",
	}, []string{"op", "table"})

	tableDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "marketing_tracker",
		Subsystem: "sync",
		Name:      "table_duration_seconds",
		Help:      "Time spent syncing or restoring one table.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"op", "table"})
)

func init() {
	prometheus.MustRegister(rowsCounter, anomalyCounter, skippedCounter, failureCounter, tableDuration)
}

func record(r *Report) {
	op, table := string(r.Op), r.Table.String()
	rowsCounter.WithLabelValues(op, table).Add(float64(r.Rows))
	anomalyCounter.WithLabelValues(op, table).Add(float64(len(r.Anomalies)))
	skippedCounter.WithLabelValues(op, table).Add(float64(len(r.Skipped)))
	if r.Err != nil {
		failureCounter.WithLabelValues(op, table).Inc()
	}
	tableDuration.WithLabelValues(op, table).Observe(r.Duration.Seconds())
}
