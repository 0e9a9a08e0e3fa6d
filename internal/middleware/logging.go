package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// LoggingInterceptor returns a Connect interceptor that logs every RPC call.
// Domain failures are logged at warn with their error code; anything that
// is not a connect error is logged at error. It runs outside the auth
// interceptors, so rejected calls are logged too and the caller identity is
// picked up once auth has resolved it.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure
			ctx, caller := withCallerSlot(ctx)

			resp, err := next(ctx, req)
			userID := *caller // empty if auth rejected the call

			duration := time.Since(start).Milliseconds()
			if err == nil {
				slog.Info("RPC ok",
					"procedure", procedure,
					"user_id", userID,
					"duration_ms", duration,
				)
				return resp, nil
			}

			var connectErr *connect.Error
			if errors.As(err, &connectErr) {
				slog.Warn("RPC error",
					"procedure", procedure,
					"code", connectErr.Code(),
					"error_code", connectErr.Meta().Get("X-Error-Code"),
					"error", connectErr.Message(),
					"user_id", userID,
					"duration_ms", duration,
				)
			} else {
				slog.Error("RPC error",
					"procedure", procedure,
					"error", err,
					"user_id", userID,
					"duration_ms", duration,
				)
			}
			return resp, err
		}
	}
}
