package middleware

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/formyfuture/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// UserIDKey is the context key for the authenticated caller identity.
const UserIDKey contextKey = "user_id"

// GetUserID extracts the caller identity from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// callerSlotKey marks a slot that outer interceptors read after the call.
type callerSlotKey struct{}

// withCallerSlot returns a context whose caller identity, once set further
// down the chain, is also written to the returned slot.
func withCallerSlot(ctx context.Context) (context.Context, *string) {
	slot := new(string)
	return context.WithValue(ctx, callerSlotKey{}, slot), slot
}

// WithUserID returns a context carrying the caller identity.
func WithUserID(ctx context.Context, userID string) context.Context {
	if slot, ok := ctx.Value(callerSlotKey{}).(*string); ok {
		*slot = userID
	}
	return context.WithValue(ctx, UserIDKey, userID)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// RequireAuth returns an interceptor that rejects calls without a valid JWT
// and puts the caller identity in the context.
func RequireAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			authHeader := req.Header().Get("Authorization")
			if authHeader == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
			}

			token, ok := bearerToken(authHeader)
			if !ok {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
			}

			claims, err := jwtManager.Validate(token)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			return next(WithUserID(ctx, claims.UserID), req)
		}
	}
}

// OptionalAuth returns an interceptor that resolves the caller when a valid
// token is present and lets anonymous calls through otherwise.
func OptionalAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if token, ok := bearerToken(req.Header().Get("Authorization")); ok {
				if claims, err := jwtManager.Validate(token); err == nil {
					ctx = WithUserID(ctx, claims.UserID)
				}
			}
			return next(ctx, req)
		}
	}
}
