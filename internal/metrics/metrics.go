// Package metrics exposes publish-pass metrics in Prometheus format.
package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/suntyn/sitegen/internal/history"
)

var (
	runsDesc = prometheus.NewDesc(
		"sitegen_publish_runs_total",
		"Total publish passes by trigger and outcome, read from the run history",
		[]string{"trigger", "outcome"},
		nil,
	)

	rejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sitegen_publish_rejected_total",
		Help: "Publish requests dropped because a pass was already running",
	}, []string{"trigger"})

	duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sitegen_publish_duration_seconds",
		Help:    "Wall time of publish passes",
		Buckets: prometheus.DefBuckets,
	}, []string{"trigger", "outcome"})
)

// CountSource supplies run totals on each scrape.
type CountSource interface {
	Counts(ctx context.Context) ([]history.Count, error)
}

// RunCollector is a custom Prometheus collector that reads run totals from
// the history database on each scrape.
type RunCollector struct {
	src CountSource
}

// NewRunCollector creates a collector over src.
func NewRunCollector(src CountSource) *RunCollector {
	return &RunCollector{src: src}
}

// Describe sends the metric descriptor to the channel.
func (c *RunCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- runsDesc
}

// Collect queries the history for run totals and emits them as counters.
func (c *RunCollector) Collect(ch chan<- prometheus.Metric) {
	counts, err := c.src.Counts(context.Background())
	if err != nil {
		slog.Error("failed to collect publish run metrics", "error", err)
		return
	}
	for _, cnt := range counts {
		ch <- prometheus.MustNewConstMetric(
			runsDesc,
			prometheus.CounterValue,
			float64(cnt.N),
			cnt.Trigger,
			cnt.Outcome,
		)
	}
}

var initOnce sync.Once

// Init registers the collectors with the default registry. src may be nil
// when run history is disabled. Must be called once at startup.
func Init(src CountSource) {
	initOnce.Do(func() {
		prometheus.MustRegister(rejected, duration)
		if src != nil {
			prometheus.MustRegister(NewRunCollector(src))
		}
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRejected counts a publish request dropped as busy.
func RecordRejected(trigger string) {
	rejected.WithLabelValues(trigger).Inc()
}

// ObservePublish records the duration of a finished pass.
func ObservePublish(trigger, outcome string, d time.Duration) {
	duration.WithLabelValues(trigger, outcome).Observe(d.Seconds())
}
