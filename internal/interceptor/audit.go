package interceptor

import "github.com/glinharesb/rsasign/internal/audit"

// Audit appends one audit entry per operation.
func Audit[T any](logger *audit.Logger, outcome Outcome[T]) Interceptor[T] {
	return func(op string, next Handler[T]) T {
		res := next()
		st := outcome(res)
		logger.Log(op, st.Code, st.KeyID, nil)
		return res
	}
}
