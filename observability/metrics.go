package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	crawlCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thriftdb_crawl_cycles_total",
			Help: "Completed crawler runs by final status.",
		},
		[]string{"status"},
	)
	crawlWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "thriftdb_crawl_wait_seconds",
			Help:    "Wall-clock time spent waiting for crawler runs.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)
	ingestRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "thriftdb_ingest_records_total",
			Help: "Records handed to the delivery pipeline.",
		},
	)
	ingestBatchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "thriftdb_ingest_batches_total",
			Help: "Batched puts issued against the delivery pipeline.",
		},
	)
	ingestFailedRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "thriftdb_ingest_failed_records_total",
			Help: "Records the delivery pipeline reported as rejected.",
		},
	)
	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "thriftdb_query_duration_seconds",
			Help:    "End-to-end query latency including the status poll.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)
)

func init() {
	prometheus.MustRegister(
		crawlCyclesTotal,
		crawlWaitSeconds,
		ingestRecordsTotal,
		ingestBatchesTotal,
		ingestFailedRecordsTotal,
		queryDurationSeconds,
	)
}

func ObserveCrawlCycle(status string, waited time.Duration) {
	crawlCyclesTotal.WithLabelValues(status).Inc()
	crawlWaitSeconds.Observe(waited.Seconds())
}

func ObserveIngestBatch(records, failed int) {
	ingestBatchesTotal.Inc()
	ingestRecordsTotal.Add(float64(records))
	if failed > 0 {
		ingestFailedRecordsTotal.Add(float64(failed))
	}
}

func ObserveQuery(duration time.Duration) {
	queryDurationSeconds.Observe(duration.Seconds())
}
