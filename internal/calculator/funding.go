package calculator

import (
	"math"
	"math/bits"

	"github.com/mmynk/formyfuture/internal/models"
)

// ReclaimThreshold is the funded percentage a proposal must exceed (strictly)
// before its owner may reclaim the funds.
const ReclaimThreshold = 75

// FundedPercentage computes raised*100/needed with floor division.
//
// The product is computed in 128 bits so large goals cannot overflow.
// Returns 0 when needed is zero; the registry never stores such a proposal.
func FundedPercentage(raised, needed uint64) uint64 {
	if needed == 0 {
		return 0
	}
	hi, lo := bits.Mul64(raised, 100)
	if hi >= needed {
		// Quotient does not fit in 64 bits; only possible if raised far exceeds needed.
		return math.MaxUint64
	}
	quo, _ := bits.Div64(hi, lo, needed)
	return quo
}

// ExceedsThreshold reports whether the funded percentage is strictly greater
// than ReclaimThreshold.
func ExceedsThreshold(raised, needed uint64) bool {
	return FundedPercentage(raised, needed) > ReclaimThreshold
}

// IsReclaimable evaluates the reclaim predicate for a proposal from its funds.
// While the proposal is open it always agrees with the stored IsReclaimable flag.
func IsReclaimable(p *models.Proposal) bool {
	return ExceedsThreshold(p.FundsRaised, p.AmountNeeded)
}

// RemainingCapacity returns how much more the proposal can accept.
func RemainingCapacity(p *models.Proposal) uint64 {
	if p.FundsRaised >= p.AmountNeeded {
		return 0
	}
	return p.AmountNeeded - p.FundsRaised
}

// ApplyContribution adds amount to the proposal's funds and latches the
// reclaimable flag once the threshold is crossed. The caller must have checked
// amount against RemainingCapacity.
func ApplyContribution(p *models.Proposal, amount uint64) {
	p.FundsRaised += amount
	if IsReclaimable(p) {
		p.IsReclaimable = true
	}
}
