package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const jobName = "feedsync"

// Metrics holds the collectors of a single run. A cron job exits before any
// scrape, so they are pushed to a Pushgateway at the end instead of served.
type Metrics struct {
	Registry      *prometheus.Registry
	RowsRead      prometheus.Counter
	RowsKept      prometheus.Counter
	RowsDropped   *prometheus.CounterVec
	FilesUploaded prometheus.Counter
	StageDuration *prometheus.GaugeVec
	LastSuccess   prometheus.Gauge
	RunFailed     prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedsync_rows_read_total",
			Help: "Feed rows read from the downloaded file",
		}),
		RowsKept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedsync_rows_kept_total",
			Help: "Feed rows that passed the stock and EAN filter",
		}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedsync_rows_dropped_total",
			Help: "Feed rows dropped, by reason",
		}, []string{"reason"}),
		FilesUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedsync_files_uploaded_total",
			Help: "Files uploaded to Dropbox",
		}),
		StageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "feedsync_stage_duration_seconds",
			Help: "Wall time of each pipeline stage in the last run",
		}, []string{"stage"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "feedsync_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
		RunFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "feedsync_run_failed",
			Help: "1 when the last run aborted with an error",
		}),
	}
	m.Registry.MustRegister(m.RowsRead, m.RowsKept, m.RowsDropped, m.FilesUploaded, m.StageDuration, m.LastSuccess, m.RunFailed)
	return m
}

// ObserveStage records how long a stage took, measured from start.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.StageDuration.WithLabelValues(stage).Set(time.Since(start).Seconds())
}

// Push sends the run's metrics to the Pushgateway. An empty url is a no-op.
func (m *Metrics) Push(ctx context.Context, url, supplier string) error {
	if url == "" {
		return nil
	}
	return push.New(url, jobName).
		Gatherer(m.Registry).
		Grouping("supplier", supplier).
		PushContext(ctx)
}
