package interceptor

import (
	"log/slog"
	"runtime/debug"
)

// Recovery catches panics in the wrapped operation and converts them into a
// result via onPanic.
func Recovery[T any](logger *slog.Logger, onPanic func(op string, r any) T) Interceptor[T] {
	return func(op string, next Handler[T]) (res T) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					"operation", op,
					"panic", r,
					"stack", string(debug.Stack()),
				)
				res = onPanic(op, r)
			}
		}()
		return next()
	}
}
