package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Custody is an in-process custody account. It confirms every valid payout
// once per reference and keeps a running total of value paid out.
type Custody struct {
	mu      sync.Mutex
	payouts map[string]payout
	paidOut uint64
}

// payout is a confirmed request and its receipt.
type payout struct {
	req     Request
	receipt Receipt
}

var _ Transferrer = (*Custody)(nil)

// NewCustody creates an empty custody account.
func NewCustody() *Custody {
	return &Custody{payouts: make(map[string]payout)}
}

// Transfer confirms the payout. Repeating a request returns the original
// receipt without paying again; reusing its reference for a different
// recipient or amount fails with ErrReferenceConflict.
func (c *Custody) Transfer(ctx context.Context, req Request) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	if req.To == "" || req.Amount == 0 || req.Reference == "" {
		return Receipt{}, fmt.Errorf("%w: invalid request", ErrNotConfirmed)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.payouts[req.Reference]; ok {
		if prev.req != req {
			slog.Warn("Custody payout reference conflict",
				"reference", req.Reference,
				"to", req.To,
				"amount", req.Amount,
				"paid_to", prev.req.To,
				"paid_amount", prev.req.Amount,
			)
			return Receipt{}, fmt.Errorf("%w: %s", ErrReferenceConflict, req.Reference)
		}
		slog.Info("Custody payout already confirmed", "reference", req.Reference)
		return prev.receipt, nil
	}

	receipt := Receipt{
		Reference:      req.Reference,
		ConfirmationID: uuid.NewString(),
	}
	c.payouts[req.Reference] = payout{req: req, receipt: receipt}
	c.paidOut += req.Amount

	slog.Info("Custody payout confirmed",
		"to", req.To,
		"amount", req.Amount,
		"reference", req.Reference,
		"confirmation_id", receipt.ConfirmationID,
	)
	return receipt, nil
}

// PaidOut returns the total value confirmed so far.
func (c *Custody) PaidOut() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paidOut
}
