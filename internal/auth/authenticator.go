package auth

import (
	"context"

	"github.com/mmynk/formyfuture/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// This abstraction allows swapping between different auth methods (password,
// wallet signatures, OAuth, etc.) without changing the service layer code.
type Authenticator interface {
	// Login resolves the identity behind the credential. The first login of an
	// identity registers it; later logins verify the credential.
	// Returns the user or an error if authentication fails.
	Login(ctx context.Context, id, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}
