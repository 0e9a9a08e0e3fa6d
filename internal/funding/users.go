package funding

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	apperrors "github.com/mmynk/formyfuture/internal/errors"
	"github.com/mmynk/formyfuture/internal/models"
	"github.com/mmynk/formyfuture/internal/storage"
)

// Users reads user profiles with their contribution history.
type Users struct {
	store storage.Store
}

// NewUsers creates a Users reader.
func NewUsers(store storage.Store) *Users {
	return &Users{store: store}
}

// Get returns a user with the contribution history rebuilt from the ledger.
func (u *Users) Get(ctx context.Context, id string) (*models.User, error) {
	var user *models.User
	err := u.store.View(ctx, func(tx storage.Tx) error {
		var err error
		user, err = tx.GetUser(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.WithMetadata(apperrors.CodeNotFound,
				fmt.Sprintf("user %s not found", id),
				map[string]string{"UserID": id},
			)
		}
		if err != nil {
			return err
		}
		return withHistory(ctx, tx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// List returns every user with their contribution history.
func (u *Users) List(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := u.store.View(ctx, func(tx storage.Tx) error {
		var err error
		users, err = tx.ListUsers(ctx)
		if err != nil {
			return err
		}
		for _, user := range users {
			if err := withHistory(ctx, tx, user); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// withHistory fills the read-only contribution projection of user.
func withHistory(ctx context.Context, tx storage.Tx, user *models.User) error {
	contributions, err := tx.ListContributionsByContributor(ctx, user.ID)
	if err != nil {
		return err
	}
	user.Contributions = make([]models.Contribution, len(contributions))
	for i, c := range contributions {
		user.Contributions[i] = *c
	}
	return nil
}

func formatAmount(amount uint64) string {
	return strconv.FormatUint(amount, 10)
}
