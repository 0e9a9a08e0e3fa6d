package service

import (
	"context"

	"connectrpc.com/connect"

	apperrors "github.com/mmynk/formyfuture/internal/errors"
	"github.com/mmynk/formyfuture/internal/funding"
)

// UserService exposes user profiles.
type UserService struct {
	users *funding.Users
}

// NewUserService creates a UserService.
func NewUserService(users *funding.Users) *UserService {
	return &UserService{users: users}
}

// GetUser returns a user with contribution history.
func (s *UserService) GetUser(ctx context.Context, req *connect.Request[GetUserRequest]) (*connect.Response[GetUserResponse], error) {
	user, err := s.users.Get(ctx, req.Msg.UserID)
	if err != nil {
		return nil, apperrors.ToConnect(err)
	}
	return connect.NewResponse(&GetUserResponse{User: userToWire(user)}), nil
}

// ListUsers returns every user.
func (s *UserService) ListUsers(ctx context.Context, req *connect.Request[ListUsersRequest]) (*connect.Response[ListUsersResponse], error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.ToConnect(err)
	}
	out := make([]*User, len(users))
	for i, u := range users {
		out[i] = userToWire(u)
	}
	return connect.NewResponse(&ListUsersResponse{Users: out}), nil
}
