package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mmynk/formyfuture/internal/models"
	"github.com/mmynk/formyfuture/internal/storage"
)

const proposalColumns = `idx, owner, amount_needed, funds_raised, status, is_reclaimable,
	settlement_pending, settlement_amount, created_at, deadline, title, description, goal, link_institution, link_pensum, photos`

// GetProposal retrieves a proposal by index.
func (t *tx) GetProposal(ctx context.Context, index int64) (*models.Proposal, error) {
	proposal, err := scanProposal(t.tx.QueryRowContext(ctx,
		"SELECT "+proposalColumns+" FROM proposals WHERE idx = ?", index,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("proposal %d: %w", index, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}
	return proposal, nil
}

// PutProposal inserts or replaces a proposal record.
func (t *tx) PutProposal(ctx context.Context, p *models.Proposal) error {
	photos := p.Metadata.Photos
	if photos == nil {
		photos = []string{}
	}
	photosJSON, err := json.Marshal(photos)
	if err != nil {
		return fmt.Errorf("failed to encode photos: %w", err)
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO proposals (`+proposalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(idx) DO UPDATE SET
			owner = excluded.owner,
			amount_needed = excluded.amount_needed,
			funds_raised = excluded.funds_raised,
			status = excluded.status,
			is_reclaimable = excluded.is_reclaimable,
			settlement_pending = excluded.settlement_pending,
			settlement_amount = excluded.settlement_amount,
			created_at = excluded.created_at,
			deadline = excluded.deadline,
			title = excluded.title,
			description = excluded.description,
			goal = excluded.goal,
			link_institution = excluded.link_institution,
			link_pensum = excluded.link_pensum,
			photos = excluded.photos
	`,
		p.Index, p.Owner, toDB(p.AmountNeeded), toDB(p.FundsRaised), int(p.Status),
		boolToInt(p.IsReclaimable), boolToInt(p.SettlementPending), toDB(p.SettlementAmount),
		p.CreatedAt, p.Deadline,
		p.Metadata.Title, p.Metadata.Description, p.Metadata.Goal,
		p.Metadata.LinkInstitution, p.Metadata.LinkPensum, string(photosJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to put proposal: %w", err)
	}
	return nil
}

// ListProposals returns every proposal ordered by index.
func (t *tx) ListProposals(ctx context.Context) ([]*models.Proposal, error) {
	rows, err := t.tx.QueryContext(ctx,
		"SELECT "+proposalColumns+" FROM proposals ORDER BY idx",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	defer rows.Close()

	var proposals []*models.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		proposals = append(proposals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate proposals: %w", err)
	}
	return proposals, nil
}

// CountProposals returns the number of proposals ever created.
func (t *tx) CountProposals(ctx context.Context) (int64, error) {
	return t.count(ctx, "proposals")
}

func scanProposal(row rowScanner) (*models.Proposal, error) {
	p := &models.Proposal{}
	var (
		needed, raised int64
		status         int
		reclaimable    int
		pending        int
		settlement     int64
		photos         string
	)
	if err := row.Scan(
		&p.Index, &p.Owner, &needed, &raised, &status, &reclaimable,
		&pending, &settlement, &p.CreatedAt, &p.Deadline,
		&p.Metadata.Title, &p.Metadata.Description, &p.Metadata.Goal,
		&p.Metadata.LinkInstitution, &p.Metadata.LinkPensum, &photos,
	); err != nil {
		return nil, err
	}
	p.AmountNeeded = fromDB(needed)
	p.FundsRaised = fromDB(raised)
	p.Status = models.ProposalStatus(status)
	p.IsReclaimable = reclaimable != 0
	p.SettlementPending = pending != 0
	p.SettlementAmount = fromDB(settlement)
	if err := json.Unmarshal([]byte(photos), &p.Metadata.Photos); err != nil {
		return nil, fmt.Errorf("failed to decode photos: %w", err)
	}
	return p, nil
}
