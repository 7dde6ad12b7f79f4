// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// This package adapts the generic metrics.Backend interface to Prometheus by:
//
//   - Using client_golang CounterVec and SummaryVec collectors.
//   - Mapping the pipeline labels (stage, status, kind) onto Prometheus
//     labels. The job is NOT a metric label: the Pushgateway push group
//     already carries it, and the gateway rejects metrics that duplicate a
//     grouping label.
//   - Pushing collected metrics to a Prometheus Pushgateway instance instead
//     of exposing an HTTP scrape endpoint, which fits a batch process that
//     exits when the run completes.
//
// The package intentionally contains all Prometheus-specific dependencies so
// that the rest of the project remains decoupled from Prometheus.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"scrub/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stageCounter  *prometheus.CounterVec // "scrub_stage_total"
	stageDuration *prometheus.SummaryVec // "scrub_stage_duration_seconds"
	rowCounter    *prometheus.CounterVec // "scrub_rows_total"
}

// NewBackend constructs a Backend pushing to gatewayURL under jobName.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if jobName == "" {
		return nil, fmt.Errorf("prompush: jobName must not be empty")
	}
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gatewayURL must not be empty")
	}

	reg := prometheus.NewRegistry()

	stageCounter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scrub_stage_total",
		Help: "Number of pipeline stage executions by stage and status.",
	}, []string{"stage", "status"})

	stageDuration := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: "scrub_stage_duration_seconds",
		Help: "Duration of pipeline stages in seconds.",
	}, []string{"stage", "status"})

	rowCounter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scrub_rows_total",
		Help: "Row-level counters by kind.",
	}, []string{"kind"})

	for _, c := range []prometheus.Collector{stageCounter, stageDuration, rowCounter} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}

	return &Backend{
		gatewayURL:    gatewayURL,
		jobName:       jobName,
		reg:           reg,
		stageCounter:  stageCounter,
		stageDuration: stageDuration,
		rowCounter:    rowCounter,
	}, nil
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "scrub_stage_total":
		b.stageCounter.With(prometheus.Labels{
			"stage":  labels["stage"],
			"status": labels["status"],
		}).Add(delta)
	case "scrub_rows_total":
		b.rowCounter.With(prometheus.Labels{
			"kind": labels["kind"],
		}).Add(delta)
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "scrub_stage_duration_seconds" {
		return
	}
	b.stageDuration.With(prometheus.Labels{
		"stage":  labels["stage"],
		"status": labels["status"],
	}).Observe(value)
}

// Flush pushes all collected metrics to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push()
}
