package service

// Recorder receives domain events for metrics.
type Recorder interface {
	ObserveProposalCreated()
	ObserveProposalPaused()
	ObserveContribution(amount uint64)
	ObserveSettlement(outcome string, amount uint64)
}

type nopRecorder struct{}

func (nopRecorder) ObserveProposalCreated()          {}
func (nopRecorder) ObserveProposalPaused()           {}
func (nopRecorder) ObserveContribution(uint64)       {}
func (nopRecorder) ObserveSettlement(string, uint64) {}

func recorderOrNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}
