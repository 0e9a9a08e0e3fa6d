package models

// Contribution is an immutable record of value sent toward a proposal.
type Contribution struct {
	// ID is the unique, monotonically assigned contribution id (starts at 1).
	ID int64

	// ProposalID references Proposal.Index.
	ProposalID int64

	// Amount is the contributed value. Always greater than zero.
	Amount uint64

	// Contributor is the identity that sent the value.
	Contributor string

	// Recipient is the proposal owner at contribution time.
	Recipient string

	// CreatedAt is the Unix timestamp of the contribution.
	CreatedAt int64

	// Comment is an optional free-text message.
	Comment string
}
