// Package transfer provides the value-transfer primitive used to pay out
// settled proposals.
package transfer

import (
	"context"
	"errors"
)

var (
	// ErrNotConfirmed means the payout was definitely rejected and no funds
	// moved for this request.
	ErrNotConfirmed = errors.New("transfer not confirmed")

	// ErrReferenceConflict means the reference was already used for a payout
	// with a different recipient or amount. The earlier payout stands.
	ErrReferenceConflict = errors.New("transfer reference reused with different parameters")
)

// Request describes one payout.
type Request struct {
	// To is the identity receiving the funds.
	To string
	// Amount is the value to move, in the smallest currency unit.
	Amount uint64
	// Reference is an idempotency key. Repeating a request with the same
	// reference must not move funds twice, and a reference is bound to the
	// recipient and amount of its first use.
	Reference string
}

// Receipt confirms a completed payout.
type Receipt struct {
	// Reference echoes Request.Reference.
	Reference string
	// ConfirmationID is the transfer id assigned by the payout side.
	ConfirmationID string
}

// Transferrer moves funds out of contract custody.
//
// A nil error means the transfer is confirmed. ErrNotConfirmed means no funds
// moved. Any other error leaves the outcome unknown; the caller must retry
// with the identical request to learn it.
type Transferrer interface {
	Transfer(ctx context.Context, req Request) (Receipt, error)
}
