package interceptor

import (
	"time"

	"github.com/glinharesb/rsasign/internal/metrics"
)

// Metrics records operation counts and latency in Prometheus.
func Metrics[T any](outcome Outcome[T]) Interceptor[T] {
	return func(op string, next Handler[T]) T {
		start := time.Now()
		res := next()
		metrics.RecordOperation(op, outcome(res).Code, time.Since(start).Seconds())
		return res
	}
}
