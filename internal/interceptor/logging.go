package interceptor

import (
	"context"
	"log/slog"
	"time"
)

// Logging logs each operation with its result code and duration. Failures
// are logged at Warn.
func Logging[T any](logger *slog.Logger, outcome Outcome[T]) Interceptor[T] {
	return func(op string, next Handler[T]) T {
		start := time.Now()
		res := next()
		st := outcome(res)

		level := slog.LevelInfo
		if !st.OK {
			level = slog.LevelWarn
		}
		logger.Log(context.Background(), level, "operation",
			"operation", op,
			"code", st.Code,
			"duration", time.Since(start),
		)
		return res
	}
}
