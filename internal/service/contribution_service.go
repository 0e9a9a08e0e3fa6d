package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	apperrors "github.com/mmynk/formyfuture/internal/errors"
	"github.com/mmynk/formyfuture/internal/funding"
	"github.com/mmynk/formyfuture/internal/middleware"
)

// ContributionService records contributions.
type ContributionService struct {
	ledger   *funding.Ledger
	recorder Recorder
}

// NewContributionService creates a ContributionService. recorder may be nil.
func NewContributionService(ledger *funding.Ledger, recorder Recorder) *ContributionService {
	return &ContributionService{ledger: ledger, recorder: recorderOrNop(recorder)}
}

// Contribute adds the attached amount to a proposal on behalf of the caller.
func (s *ContributionService) Contribute(ctx context.Context, req *connect.Request[ContributeRequest]) (*connect.Response[ContributeResponse], error) {
	caller := middleware.GetUserID(ctx)
	slog.Info("Contribute request",
		"proposal_id", req.Msg.ProposalID,
		"caller", caller,
		"amount", req.Msg.Amount,
	)

	c, err := s.ledger.Contribute(ctx, req.Msg.ProposalID, caller, req.Msg.Amount, req.Msg.Comment)
	if err != nil {
		slog.Warn("Contribute failed",
			"proposal_id", req.Msg.ProposalID,
			"caller", caller,
			"amount", req.Msg.Amount,
			"error", err,
		)
		return nil, apperrors.ToConnect(err)
	}

	s.recorder.ObserveContribution(c.Amount)
	slog.Info("Contribution recorded",
		"contribution_id", c.ID,
		"proposal_id", c.ProposalID,
		"amount", c.Amount,
	)
	return connect.NewResponse(&ContributeResponse{Contribution: contributionToWire(c)}), nil
}
