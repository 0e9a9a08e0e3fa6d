package funding

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mmynk/formyfuture/internal/calculator"
	"github.com/mmynk/formyfuture/internal/models"
	"github.com/mmynk/formyfuture/internal/storage"
)

// Ledger records contributions against proposals.
type Ledger struct {
	store storage.Store
	clock func() time.Time
}

// NewLedger creates a Ledger.
func NewLedger(store storage.Store, opts ...Option) *Ledger {
	o := buildOptions(opts)
	return &Ledger{store: store, clock: o.clock}
}

// Contribute records amount from caller toward a proposal.
//
// Checks run in this order: proposal exists, proposal is open with no
// settlement in flight, amount is positive, deadline not reached, amount fits
// in the remaining goal. An unknown caller is registered first. The
// contribution, the updated proposal and any new user record commit together.
func (l *Ledger) Contribute(ctx context.Context, proposalID int64, caller string, amount uint64, comment string) (_ *models.Contribution, err error) {
	ctx, span := startSpan(ctx, "funding.Contribute",
		attribute.Int64("proposal.id", proposalID),
		attribute.String("caller", caller),
		attribute.String("amount", formatAmount(amount)),
	)
	defer func() { endSpan(span, err) }()

	var recorded *models.Contribution
	err = l.store.Update(ctx, func(tx storage.Tx) error {
		p, err := getProposal(ctx, tx, proposalID)
		if err != nil {
			return err
		}
		if p.Status != models.ProposalStatusOpen {
			return ErrProposalNotOpen
		}
		if p.SettlementPending {
			return ErrSettlementInProgress
		}
		if amount == 0 {
			return ErrInvalidAmount
		}
		now := l.clock()
		if now.Unix() >= p.Deadline {
			return ErrProposalExpired
		}
		if amount > calculator.RemainingCapacity(p) {
			return ErrOverContribution
		}

		if _, _, err := EnsureRegistered(ctx, tx, caller, now); err != nil {
			return err
		}

		id, err := nextID(tx.CountContributions(ctx))
		if err != nil {
			return err
		}
		c := &models.Contribution{
			ID:          id,
			ProposalID:  p.Index,
			Amount:      amount,
			Contributor: caller,
			Recipient:   p.Owner,
			CreatedAt:   now.Unix(),
			Comment:     strings.TrimSpace(comment),
		}
		if err := tx.PutContribution(ctx, c); err != nil {
			return err
		}

		calculator.ApplyContribution(p, amount)
		if err := tx.PutProposal(ctx, p); err != nil {
			return err
		}
		recorded = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int64("contribution.id", recorded.ID))
	return recorded, nil
}

// FundedPercentage returns fundsRaised*100/amountNeeded for a proposal.
func (l *Ledger) FundedPercentage(ctx context.Context, proposalID int64) (uint64, error) {
	var pct uint64
	err := l.store.View(ctx, func(tx storage.Tx) error {
		p, err := getProposal(ctx, tx, proposalID)
		if err != nil {
			return err
		}
		pct = calculator.FundedPercentage(p.FundsRaised, p.AmountNeeded)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return pct, nil
}

// ListByProposal returns the contributions made to a proposal in id order.
func (l *Ledger) ListByProposal(ctx context.Context, proposalID int64) ([]*models.Contribution, error) {
	var contributions []*models.Contribution
	err := l.store.View(ctx, func(tx storage.Tx) error {
		if _, err := getProposal(ctx, tx, proposalID); err != nil {
			return err
		}
		var err error
		contributions, err = tx.ListContributionsByProposal(ctx, proposalID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return contributions, nil
}
