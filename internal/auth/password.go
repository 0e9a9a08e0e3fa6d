package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/mmynk/formyfuture/internal/errors"
	"github.com/mmynk/formyfuture/internal/funding"
	"github.com/mmynk/formyfuture/internal/models"
	"github.com/mmynk/formyfuture/internal/storage"
)

var (
	ErrInvalidCredentials = apperrors.New(apperrors.CodeInvalidCredentials, "invalid account or password")
	ErrWeakPassword       = apperrors.New(apperrors.CodeInvalidCredentials, "password must be at least 8 characters")
	ErrInvalidAccountID   = apperrors.New(apperrors.CodeUnknownCaller, "account id is required")
)

// PasswordAuthenticator implements password-based login using bcrypt.
type PasswordAuthenticator struct {
	store       storage.Store
	admins      funding.Authorizer
	adminHashes map[string]string
	clock       func() time.Time
}

// PasswordOption configures a PasswordAuthenticator.
type PasswordOption func(*PasswordAuthenticator)

// WithAdminPasswordHashes provisions bcrypt hashes for administrator ids.
// The first login of an administrator must match its provisioned hash.
func WithAdminPasswordHashes(hashes map[string]string) PasswordOption {
	return func(a *PasswordAuthenticator) {
		a.adminHashes = hashes
	}
}

// NewPasswordAuthenticator creates a new password-based authenticator.
// Identities that admins names never self-register: they log in with a
// provisioned hash or a password already stored for them.
func NewPasswordAuthenticator(store storage.Store, admins funding.Authorizer, opts ...PasswordOption) *PasswordAuthenticator {
	a := &PasswordAuthenticator{
		store:  store,
		admins: admins,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ValidateCredential checks if the password meets minimum requirements.
func (a *PasswordAuthenticator) ValidateCredential(credential string) error {
	if len(credential) < 8 {
		return ErrWeakPassword
	}
	return nil
}

// Login registers the account on first use and verifies the password afterwards.
// An account created implicitly by a contribution has no password yet; its
// first password login claims it. Administrator accounts are the exception:
// without a stored password they only accept the provisioned one.
func (a *PasswordAuthenticator) Login(ctx context.Context, id, credential string) (*models.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidAccountID
	}

	var user *models.User
	err := a.store.Update(ctx, func(tx storage.Tx) error {
		existing, err := tx.GetUser(ctx, id)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		if existing != nil && existing.PasswordHash != "" {
			if err := bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(credential)); err != nil {
				return ErrInvalidCredentials
			}
			user = existing
			return nil
		}

		var hashed []byte
		if a.admins != nil && a.admins.IsAdmin(id) {
			provisioned, ok := a.adminHashes[id]
			if !ok {
				return ErrInvalidCredentials
			}
			if err := bcrypt.CompareHashAndPassword([]byte(provisioned), []byte(credential)); err != nil {
				return ErrInvalidCredentials
			}
			hashed = []byte(provisioned)
		} else {
			// Validate password strength
			if err := a.ValidateCredential(credential); err != nil {
				return err
			}

			// Hash the password
			hashed, err = bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}
		}

		user, _, err = funding.EnsureRegistered(ctx, tx, id, a.clock())
		if err != nil {
			return err
		}
		user.PasswordHash = string(hashed)
		return tx.PutUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
