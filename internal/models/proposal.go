package models

// ProposalStatus describes where a proposal is in its lifecycle.
type ProposalStatus int

const (
	// ProposalStatusOpen accepts contributions and may be reclaimed.
	ProposalStatusOpen ProposalStatus = iota
	// ProposalStatusPaused was stopped by an administrator. Terminal.
	ProposalStatusPaused
	// ProposalStatusSettled had its funds transferred to the owner. Terminal.
	ProposalStatusSettled
)

// String returns a stable label for the status.
func (s ProposalStatus) String() string {
	switch s {
	case ProposalStatusOpen:
		return "OPEN"
	case ProposalStatusPaused:
		return "PAUSED"
	case ProposalStatusSettled:
		return "SETTLED"
	default:
		return "UNKNOWN"
	}
}

// Proposal represents a crowdfunding request.
type Proposal struct {
	// Index is the unique, monotonically assigned proposal id (starts at 1).
	Index int64

	// Owner is the identity that created the proposal and receives the funds.
	Owner string

	// AmountNeeded is the funding goal. Always greater than zero.
	AmountNeeded uint64

	// FundsRaised is the sum of all contributions. Never exceeds AmountNeeded.
	FundsRaised uint64

	// Status is the lifecycle state.
	Status ProposalStatus

	// IsReclaimable becomes true once the funded percentage exceeds the
	// reclaim threshold and never reverts.
	IsReclaimable bool

	// SettlementPending is set while a payout is in flight. The proposal takes
	// no contributions and cannot be paused until the settlement commits or is
	// released.
	SettlementPending bool

	// SettlementAmount is the payout fixed when settlement started. Every
	// transfer attempt for this proposal sends exactly this amount.
	SettlementAmount uint64

	// CreatedAt is the Unix timestamp when the proposal was created.
	CreatedAt int64

	// Deadline is the Unix timestamp after which contributions are rejected.
	Deadline int64

	// Metadata holds the descriptive fields. None of them affect behavior.
	Metadata ProposalMetadata
}

// ProposalMetadata holds free-text and media fields of a proposal.
type ProposalMetadata struct {
	Title           string
	Description     string
	Goal            string
	LinkInstitution string
	LinkPensum      string
	Photos          []string
}
