// Package telemetry records deploy and drift metrics for one CLI run and
// pushes them to a Prometheus Pushgateway.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Job is the Pushgateway job name.
const Job = "mskstack"

// Recorder holds the metrics of one run. A nil Recorder records nothing,
// so callers need no enabled checks.
type Recorder struct {
	stack    string
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	awsCallsTotal     *prometheus.CounterVec
	awsCallLatency    *prometheus.HistogramVec
	resources         *prometheus.GaugeVec
	driftProblems     prometheus.Gauge
	lastSuccess       *prometheus.GaugeVec
}

// New creates a recorder for stack on its own registry.
func New(stack string) *Recorder {
	r := &Recorder{
		stack:    stack,
		registry: prometheus.NewRegistry(),

		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mskstack",
				Name:      "operations_total",
				Help:      "Total number of stack operations by command and result",
			},
			[]string{"command", "result"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mskstack",
				Name:      "operation_duration_seconds",
				Help:      "Duration of stack operations in seconds",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 13), // 1s to ~68min
			},
			[]string{"command"},
		),
		awsCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mskstack",
				Subsystem: "aws",
				Name:      "api_calls_total",
				Help:      "Total number of AWS API calls by operation and result",
			},
			[]string{"operation", "result"},
		),
		awsCallLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mskstack",
				Subsystem: "aws",
				Name:      "api_latency_seconds",
				Help:      "Latency of AWS API calls in seconds, retries included",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			},
			[]string{"operation"},
		),
		resources: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "mskstack",
				Subsystem: "template",
				Name:      "resources",
				Help:      "Number of resources in the synthesized template by type",
			},
			[]string{"type"},
		),
		driftProblems: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "mskstack",
				Subsystem: "kafka",
				Name:      "drift_problems",
				Help:      "Number of declared topics and ACLs that are missing or differ",
			},
		),
		lastSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "mskstack",
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful operation by command",
			},
			[]string{"command"},
		),
	}
	r.registry.MustRegister(
		r.operationsTotal,
		r.operationDuration,
		r.awsCallsTotal,
		r.awsCallLatency,
		r.resources,
		r.driftProblems,
		r.lastSuccess,
	)
	return r
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordOperation records a finished command such as deploy or destroy.
func (r *Recorder) RecordOperation(command string, err error, duration time.Duration) {
	if r == nil {
		return
	}
	r.operationsTotal.WithLabelValues(command, result(err)).Inc()
	r.operationDuration.WithLabelValues(command).Observe(duration.Seconds())
	if err == nil {
		r.lastSuccess.WithLabelValues(command).SetToCurrentTime()
	}
}

// RecordAPICall records an AWS API call. Its signature matches the
// OnCall hook of the AWS clients.
func (r *Recorder) RecordAPICall(operation string, err error, latency time.Duration) {
	if r == nil {
		return
	}
	r.awsCallsTotal.WithLabelValues(operation, result(err)).Inc()
	r.awsCallLatency.WithLabelValues(operation).Observe(latency.Seconds())
}

// RecordResources sets the resource count per type of a template.
func (r *Recorder) RecordResources(counts map[string]int) {
	if r == nil {
		return
	}
	for resourceType, n := range counts {
		r.resources.WithLabelValues(resourceType).Set(float64(n))
	}
}

// RecordDrift sets the number of drift problems found by doctor.
func (r *Recorder) RecordDrift(problems int) {
	if r == nil {
		return
	}
	r.driftProblems.Set(float64(problems))
}

// Gatherer exposes the registry, for tests and custom exporters.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Push replaces the metrics of this stack's group on the Pushgateway.
func (r *Recorder) Push(ctx context.Context, url string) error {
	if r == nil || url == "" {
		return nil
	}
	err := push.New(url, Job).
		Gatherer(r.registry).
		Grouping("stack", r.stack).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
