package calculator

import (
	"math"
	"testing"

	"github.com/mmynk/formyfuture/internal/models"
)

func TestFundedPercentage(t *testing.T) {
	tests := []struct {
		name   string
		raised uint64
		needed uint64
		want   uint64
	}{
		{"nothing raised", 0, 100, 0},
		{"sixty of a hundred", 60, 100, 60},
		{"eighty of a hundred", 80, 100, 80},
		{"floor division", 2, 3, 66},
		{"fully funded", 100, 100, 100},
		{"zero goal", 10, 0, 0},
		{"large goal does not overflow", math.MaxUint64 / 2, math.MaxUint64, 49},
		{"max goal fully funded", math.MaxUint64, math.MaxUint64, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FundedPercentage(tt.raised, tt.needed); got != tt.want {
				t.Errorf("FundedPercentage(%d, %d) = %d, want %d", tt.raised, tt.needed, got, tt.want)
			}
		})
	}
}

func TestExceedsThresholdIsStrict(t *testing.T) {
	tests := []struct {
		raised uint64
		needed uint64
		want   bool
	}{
		{75, 100, false},
		{76, 100, true},
		// 151*100/200 = 75 after floor, still not above the threshold
		{151, 200, false},
		{152, 200, true},
		{3, 4, false},
		{4, 5, true},
	}

	for _, tt := range tests {
		if got := ExceedsThreshold(tt.raised, tt.needed); got != tt.want {
			t.Errorf("ExceedsThreshold(%d, %d) = %v, want %v", tt.raised, tt.needed, got, tt.want)
		}
	}
}

func TestApplyContributionLatchesReclaimable(t *testing.T) {
	p := &models.Proposal{AmountNeeded: 100}

	ApplyContribution(p, 60)
	if p.FundsRaised != 60 || p.IsReclaimable {
		t.Fatalf("after 60: funds=%d reclaimable=%v, want 60/false", p.FundsRaised, p.IsReclaimable)
	}

	ApplyContribution(p, 20)
	if p.FundsRaised != 80 || !p.IsReclaimable {
		t.Fatalf("after 80: funds=%d reclaimable=%v, want 80/true", p.FundsRaised, p.IsReclaimable)
	}

	ApplyContribution(p, 20)
	if !p.IsReclaimable {
		t.Error("reclaimable flag must never revert")
	}
	if IsReclaimable(p) != p.IsReclaimable {
		t.Error("stored flag and recomputed predicate disagree")
	}
}

func TestRemainingCapacity(t *testing.T) {
	p := &models.Proposal{AmountNeeded: 100, FundsRaised: 80}
	if got := RemainingCapacity(p); got != 20 {
		t.Errorf("RemainingCapacity = %d, want 20", got)
	}
	p.FundsRaised = 100
	if got := RemainingCapacity(p); got != 0 {
		t.Errorf("RemainingCapacity = %d, want 0", got)
	}
}
