package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/formyfuture/internal/models"
	"github.com/mmynk/formyfuture/internal/storage"
)

const userColumns = "id, password_hash, has_active_proposal, rank, picture, created_at"

// GetUser retrieves a user by identity.
func (t *tx) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := scanUser(t.tx.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// PutUser inserts or replaces a user record.
func (t *tx) PutUser(ctx context.Context, user *models.User) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			password_hash = excluded.password_hash,
			has_active_proposal = excluded.has_active_proposal,
			rank = excluded.rank,
			picture = excluded.picture,
			created_at = excluded.created_at
	`,
		user.ID,
		user.PasswordHash,
		boolToInt(user.HasActiveProposal),
		user.Rank,
		user.Picture,
		user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to put user: %w", err)
	}
	return nil
}

// ListUsers returns every user ordered by registration time.
func (t *tx) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := t.tx.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at, id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// CountUsers returns the number of registered users.
func (t *tx) CountUsers(ctx context.Context) (int64, error) {
	return t.count(ctx, "users")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var active int
	if err := row.Scan(
		&user.ID,
		&user.PasswordHash,
		&active,
		&user.Rank,
		&user.Picture,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	user.HasActiveProposal = active != 0
	return user, nil
}
