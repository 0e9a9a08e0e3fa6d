package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/formyfuture/internal/auth"
	apperrors "github.com/mmynk/formyfuture/internal/errors"
	"github.com/mmynk/formyfuture/internal/funding"
	"github.com/mmynk/formyfuture/internal/middleware"
)

// AuthService implements login and caller lookup.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	users         *funding.Users
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, users *funding.Users, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		users:         users,
		logger:        logger,
	}
}

// Login resolves the caller identity, registering it on first use, and
// returns a session token.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	s.logger.Info("Login request", "account_id", req.Msg.AccountID)

	user, err := s.authenticator.Login(ctx, req.Msg.AccountID, req.Msg.Password)
	if err != nil {
		s.logger.Warn("Login failed", "account_id", req.Msg.AccountID, "error", err)
		return nil, apperrors.ToConnect(err)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	// History comes from the ledger, not the stored record.
	full, err := s.users.Get(ctx, user.ID)
	if err != nil {
		return nil, apperrors.ToConnect(err)
	}

	s.logger.Info("User logged in", "user_id", user.ID)
	return connect.NewResponse(&LoginResponse{
		User:  userToWire(full),
		Token: token,
	}), nil
}

// GetCurrentUser returns the authenticated caller.
func (s *AuthService) GetCurrentUser(ctx context.Context, req *connect.Request[GetCurrentUserRequest]) (*connect.Response[GetCurrentUserResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, apperrors.ToConnect(err)
	}
	return connect.NewResponse(&GetCurrentUserResponse{User: userToWire(user)}), nil
}
