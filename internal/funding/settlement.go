package funding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mmynk/formyfuture/internal/calculator"
	apperrors "github.com/mmynk/formyfuture/internal/errors"
	"github.com/mmynk/formyfuture/internal/models"
	"github.com/mmynk/formyfuture/internal/storage"
	"github.com/mmynk/formyfuture/internal/transfer"
)

// CustodyAccount is the sender recorded on settlement payments.
const CustodyAccount = "custody"

// Settler performs the one-time payout of a proposal to its owner.
type Settler struct {
	store       storage.Store
	transferrer transfer.Transferrer
	clock       func() time.Time
}

// NewSettler creates a Settler that pays out through transferrer.
func NewSettler(store storage.Store, transferrer transfer.Transferrer, opts ...Option) *Settler {
	o := buildOptions(opts)
	return &Settler{store: store, transferrer: transferrer, clock: o.clock}
}

// settlementReference is the idempotency key of a proposal's payout.
func settlementReference(index int64) string {
	return "settlement-" + strconv.FormatInt(index, 10)
}

// Reclaim transfers the raised funds to the owner and settles the proposal.
//
// Settlement runs in three steps. The first commit fixes the payout amount and
// marks the settlement pending, which stops contributions and pauses. The
// transfer then moves exactly that amount. The second commit sets the
// proposal Settled, clears the owner's active flag and records the Payment.
//
// If the transfer is rejected the pending mark is released and the proposal
// is left as it was. If the outcome is unknown, or the final commit fails, the
// proposal stays pending and calling Reclaim again resends the identical
// request, which the transferrer deduplicates by reference.
func (s *Settler) Reclaim(ctx context.Context, proposalID int64, caller string) (_ *models.Proposal, err error) {
	ctx, span := startSpan(ctx, "funding.Reclaim",
		attribute.Int64("proposal.id", proposalID),
		attribute.String("caller", caller),
	)
	defer func() { endSpan(span, err) }()

	req, err := s.begin(ctx, proposalID, caller)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("amount", formatAmount(req.Amount)))

	receipt, err := s.transferrer.Transfer(ctx, req)
	if err != nil {
		if errors.Is(err, transfer.ErrNotConfirmed) {
			if rerr := s.release(ctx, proposalID, req); rerr != nil {
				slog.Error("Failed to release pending settlement",
					"proposal_id", proposalID,
					"reference", req.Reference,
					"error", rerr,
				)
			}
		} else {
			slog.Warn("Settlement payout outcome unknown, proposal stays pending",
				"proposal_id", proposalID,
				"reference", req.Reference,
				"amount", req.Amount,
				"error", err,
			)
		}
		return nil, apperrors.Wrap(apperrors.CodeTransferFailed,
			fmt.Sprintf("payout of proposal %d failed", proposalID), err)
	}

	settled, err := s.commit(ctx, proposalID, req, receipt)
	if err != nil {
		slog.Error("Settlement commit failed after confirmed payout",
			"proposal_id", proposalID,
			"reference", receipt.Reference,
			"confirmation_id", receipt.ConfirmationID,
			"amount", req.Amount,
			"error", err,
		)
		return nil, err
	}
	return settled, nil
}

// begin validates the reclaim and fixes the payout amount. A settlement that
// is already pending returns its original request unchanged.
func (s *Settler) begin(ctx context.Context, proposalID int64, caller string) (transfer.Request, error) {
	var req transfer.Request
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		p, err := getProposal(ctx, tx, proposalID)
		if err != nil {
			return err
		}
		if caller == "" || caller != p.Owner {
			return ErrUnauthorized
		}
		req = transfer.Request{To: p.Owner, Reference: settlementReference(p.Index)}

		if p.SettlementPending {
			req.Amount = p.SettlementAmount
			return nil
		}
		if p.Status != models.ProposalStatusOpen {
			return ErrNotReclaimable
		}
		if !calculator.IsReclaimable(p) {
			return ErrThresholdNotMet
		}

		p.SettlementPending = true
		p.SettlementAmount = p.FundsRaised
		req.Amount = p.SettlementAmount
		return tx.PutProposal(ctx, p)
	})
	if err != nil {
		return transfer.Request{}, err
	}
	return req, nil
}

// release clears a pending settlement whose transfer was rejected.
func (s *Settler) release(ctx context.Context, proposalID int64, req transfer.Request) error {
	return s.store.Update(ctx, func(tx storage.Tx) error {
		p, err := getProposal(ctx, tx, proposalID)
		if err != nil {
			return err
		}
		if !p.SettlementPending || p.SettlementAmount != req.Amount {
			return nil
		}
		p.SettlementPending = false
		p.SettlementAmount = 0
		return tx.PutProposal(ctx, p)
	})
}

// commit records a confirmed payout. Committing an already settled proposal
// returns it without writing again.
func (s *Settler) commit(ctx context.Context, proposalID int64, req transfer.Request, receipt transfer.Receipt) (*models.Proposal, error) {
	var settled *models.Proposal
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		p, err := getProposal(ctx, tx, proposalID)
		if err != nil {
			return err
		}
		if p.Status == models.ProposalStatusSettled {
			settled = p
			return nil
		}
		if !p.SettlementPending || p.SettlementAmount != req.Amount {
			return fmt.Errorf("proposal %d: pending settlement does not match confirmed payout of %d", p.Index, req.Amount)
		}

		owner, err := tx.GetUser(ctx, p.Owner)
		if err != nil {
			return err
		}
		paymentID, err := nextID(tx.CountPayments(ctx))
		if err != nil {
			return err
		}

		p.Status = models.ProposalStatusSettled
		p.SettlementPending = false
		if err := tx.PutProposal(ctx, p); err != nil {
			return err
		}
		owner.HasActiveProposal = false
		if err := tx.PutUser(ctx, owner); err != nil {
			return err
		}
		if err := tx.PutPayment(ctx, &models.Payment{
			ID:         paymentID,
			To:         p.Owner,
			By:         CustodyAccount,
			Amount:     p.SettlementAmount,
			CreatedAt:  s.clock().Unix(),
			Kind:       models.PaymentKindSettlement,
			ProposalID: p.Index,
			Reference:  receipt.Reference,
		}); err != nil {
			return err
		}
		settled = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}
