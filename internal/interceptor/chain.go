// Package interceptor wraps named operations with cross-cutting behavior in
// the manner of gRPC unary interceptors.
package interceptor

// Handler runs one operation to completion.
type Handler[T any] func() T

// Interceptor wraps a Handler for the operation named op.
type Interceptor[T any] func(op string, next Handler[T]) T

// Status describes a finished operation.
type Status struct {
	Code  string
	OK    bool
	KeyID string
}

// Outcome extracts the Status of a result.
type Outcome[T any] func(T) Status

// Chain composes interceptors so the first one is outermost.
func Chain[T any](interceptors ...Interceptor[T]) Interceptor[T] {
	return func(op string, next Handler[T]) T {
		h := next
		for i := len(interceptors) - 1; i >= 0; i-- {
			ic, inner := interceptors[i], h
			h = func() T { return ic(op, inner) }
		}
		return h()
	}
}
