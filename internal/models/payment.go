package models

// PaymentKindSettlement marks the payout of a reclaimed proposal.
const PaymentKindSettlement = "settlement"

// Payment is a generic transfer record.
type Payment struct {
	// ID is the unique, monotonically assigned payment id (starts at 1).
	ID int64

	// To is the identity that received the value.
	To string

	// By is the identity (or custody account) that sent the value.
	By string

	// Amount is the transferred value.
	Amount uint64

	// CreatedAt is the Unix timestamp of the transfer.
	CreatedAt int64

	// Kind describes why the transfer happened (e.g. "settlement").
	Kind string

	// ProposalID is the settled proposal, zero when not applicable.
	ProposalID int64

	// Reference is the idempotency reference confirmed by the transfer primitive.
	Reference string
}
