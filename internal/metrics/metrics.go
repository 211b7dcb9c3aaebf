// Package metrics exposes Prometheus instrumentation for signer operations.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "rsasign"

	LabelOperation = "operation"
	LabelCode      = "code"
)

var (
	// OperationsTotal counts facade operations by operation name and result code.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of signer operations by operation and result code",
		},
		[]string{LabelOperation, LabelCode},
	)

	// OperationDuration tracks operation latency in seconds. Key generation
	// dominates the upper buckets.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of signer operations in seconds",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{LabelOperation},
	)

	// KeyPairPresent is 1 while a signer holds a key pair.
	KeyPairPresent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "key_pair_present",
			Help:      "Whether the signer currently holds a key pair",
		},
	)

	enabled atomic.Bool
)

func init() {
	enabled.Store(true)
}

// RecordOperation records one completed operation.
func RecordOperation(operation, code string, duration float64) {
	if !enabled.Load() {
		return
	}
	OperationsTotal.WithLabelValues(operation, code).Inc()
	OperationDuration.WithLabelValues(operation).Observe(duration)
}

// SetKeyPairPresent updates the key pair gauge.
func SetKeyPairPresent(present bool) {
	if !enabled.Load() {
		return
	}
	value := 0.0
	if present {
		value = 1.0
	}
	KeyPairPresent.Set(value)
}

func Enable() {
	enabled.Store(true)
}

// Disable stops collection. Useful for tests and embedded use.
func Disable() {
	enabled.Store(false)
}

func IsEnabled() bool {
	return enabled.Load()
}
