package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/formyfuture/internal/models"
	"github.com/mmynk/formyfuture/internal/storage"
)

const contributionColumns = "id, proposal_id, amount, contributor, recipient, created_at, comment"

// GetContribution retrieves a contribution by id.
func (t *tx) GetContribution(ctx context.Context, id int64) (*models.Contribution, error) {
	c, err := scanContribution(t.tx.QueryRowContext(ctx,
		"SELECT "+contributionColumns+" FROM contributions WHERE id = ?", id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("contribution %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contribution: %w", err)
	}
	return c, nil
}

// PutContribution inserts a contribution. Contributions are immutable, so an
// existing id is an error.
func (t *tx) PutContribution(ctx context.Context, c *models.Contribution) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO contributions ("+contributionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		c.ID, c.ProposalID, toDB(c.Amount), c.Contributor, c.Recipient, c.CreatedAt, c.Comment,
	)
	if err != nil {
		return fmt.Errorf("failed to insert contribution: %w", err)
	}
	return nil
}

// ListContributionsByProposal returns a proposal's contributions in id order.
func (t *tx) ListContributionsByProposal(ctx context.Context, proposalID int64) ([]*models.Contribution, error) {
	return t.listContributions(ctx, "proposal_id = ?", proposalID)
}

// ListContributionsByContributor returns a contributor's contributions in id order.
func (t *tx) ListContributionsByContributor(ctx context.Context, contributor string) ([]*models.Contribution, error) {
	return t.listContributions(ctx, "contributor = ?", contributor)
}

// CountContributions returns the number of contributions ever recorded.
func (t *tx) CountContributions(ctx context.Context) (int64, error) {
	return t.count(ctx, "contributions")
}

func (t *tx) listContributions(ctx context.Context, where string, arg any) ([]*models.Contribution, error) {
	rows, err := t.tx.QueryContext(ctx,
		"SELECT "+contributionColumns+" FROM contributions WHERE "+where+" ORDER BY id",
		arg,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	defer rows.Close()

	var contributions []*models.Contribution
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		contributions = append(contributions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contributions: %w", err)
	}
	return contributions, nil
}

func scanContribution(row rowScanner) (*models.Contribution, error) {
	c := &models.Contribution{}
	var amount int64
	if err := row.Scan(&c.ID, &c.ProposalID, &amount, &c.Contributor, &c.Recipient, &c.CreatedAt, &c.Comment); err != nil {
		return nil, err
	}
	c.Amount = fromDB(amount)
	return c, nil
}
