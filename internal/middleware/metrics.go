package middleware

import (
	"context"
	"time"

	"connectrpc.com/connect"
)

// RPCObserver receives one observation per finished call.
type RPCObserver interface {
	ObserveRPC(procedure, code string, seconds float64)
}

// MetricsInterceptor returns a Connect interceptor that reports the
// procedure, result code and latency of every call to observer.
func MetricsInterceptor(observer RPCObserver) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
			}
			observer.ObserveRPC(req.Spec().Procedure, code, time.Since(start).Seconds())
			return resp, err
		}
	}
}
