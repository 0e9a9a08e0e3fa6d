package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/mmynk/formyfuture/internal/errors"
	"github.com/mmynk/formyfuture/internal/models"
	"github.com/mmynk/formyfuture/internal/storage"
	"github.com/mmynk/formyfuture/internal/storage/sqlite"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "formyfuture-auth-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "auth.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("test-secret-key-with-32-bytes!!", time.Hour)
	user := &models.User{ID: "alice.near"}

	token, err := m.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.UserID != "alice.near" || claims.Subject != "alice.near" {
		t.Errorf("unexpected claims: %+v", claims)
	}

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTManager("another-secret", time.Hour)
		if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		expired := NewJWTManager("test-secret-key-with-32-bytes!!", -time.Minute)
		token, err := expired.Generate(user)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if _, err := expired.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := m.Validate("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}

func TestPasswordAuthenticator(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	a := NewPasswordAuthenticator(store, NewAdminPolicy(nil))

	t.Run("first login registers the identity", func(t *testing.T) {
		user, err := a.Login(ctx, "alice.near", "correct horse")
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if user.ID != "alice.near" || user.PasswordHash == "" || user.HasActiveProposal || user.Rank != 0 {
			t.Errorf("unexpected user: %+v", user)
		}
	})

	t.Run("second login verifies the password", func(t *testing.T) {
		if _, err := a.Login(ctx, "alice.near", "correct horse"); err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		_, err := a.Login(ctx, "alice.near", "wrong password")
		if !apperrors.HasCode(err, apperrors.CodeInvalidCredentials) {
			t.Errorf("expected INVALID_CREDENTIALS, got %v", err)
		}
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := a.Login(ctx, "bob.near", "short")
		if !errors.Is(err, ErrWeakPassword) {
			t.Errorf("expected ErrWeakPassword, got %v", err)
		}
	})

	t.Run("blank account", func(t *testing.T) {
		_, err := a.Login(ctx, "  ", "long enough password")
		if !apperrors.HasCode(err, apperrors.CodeUnknownCaller) {
			t.Errorf("expected UNKNOWN_CALLER, got %v", err)
		}
	})

	t.Run("contributor registered implicitly can claim the account", func(t *testing.T) {
		err := store.Update(ctx, func(tx storage.Tx) error {
			return tx.PutUser(ctx, models.NewUser("carol.near", "", 1))
		})
		if err != nil {
			t.Fatalf("PutUser failed: %v", err)
		}
		user, err := a.Login(ctx, "carol.near", "carol's password")
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if user.PasswordHash == "" || user.CreatedAt != 1 {
			t.Errorf("unexpected claimed user: %+v", user)
		}
	})
}

func TestPasswordAuthenticatorAdmins(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("root's password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword failed: %v", err)
	}
	admins := NewAdminPolicy([]string{"root.near", "ops.near"})
	a := NewPasswordAuthenticator(store, admins, WithAdminPasswordHashes(map[string]string{
		"root.near": string(hash),
	}))

	assertNotRegistered := func(t *testing.T, id string) {
		t.Helper()
		err := store.View(ctx, func(tx storage.Tx) error {
			_, err := tx.GetUser(ctx, id)
			return err
		})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected %s to stay unregistered, got %v", id, err)
		}
	}

	t.Run("first login with any password is refused", func(t *testing.T) {
		_, err := a.Login(ctx, "root.near", "attacker's password")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		assertNotRegistered(t, "root.near")
	})

	t.Run("admin without a provisioned hash cannot log in", func(t *testing.T) {
		_, err := a.Login(ctx, "ops.near", "attacker's password")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		assertNotRegistered(t, "ops.near")
	})

	t.Run("implicitly registered admin is not claimable", func(t *testing.T) {
		err := store.Update(ctx, func(tx storage.Tx) error {
			return tx.PutUser(ctx, models.NewUser("ops.near", "", 1))
		})
		if err != nil {
			t.Fatalf("PutUser failed: %v", err)
		}
		_, err = a.Login(ctx, "ops.near", "attacker's password")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("provisioned password logs in", func(t *testing.T) {
		user, err := a.Login(ctx, "root.near", "root's password")
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if user.PasswordHash != string(hash) {
			t.Errorf("expected the provisioned hash to be stored, got %q", user.PasswordHash)
		}
		if _, err := a.Login(ctx, "root.near", "root's password"); err != nil {
			t.Fatalf("second Login failed: %v", err)
		}
		if _, err := a.Login(ctx, "root.near", "attacker's password"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestAdminPolicy(t *testing.T) {
	p := NewAdminPolicy([]string{"root.near", " ", " ops.near "})

	tests := []struct {
		id   string
		want bool
	}{
		{"root.near", true},
		{"ops.near", true},
		{"alice.near", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := p.IsAdmin(tt.id); got != tt.want {
			t.Errorf("IsAdmin(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}

	var nilPolicy *AdminPolicy
	if nilPolicy.IsAdmin("root.near") {
		t.Error("nil policy must not grant admin")
	}
}
