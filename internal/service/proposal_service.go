package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	apperrors "github.com/mmynk/formyfuture/internal/errors"
	"github.com/mmynk/formyfuture/internal/funding"
	"github.com/mmynk/formyfuture/internal/middleware"
	"github.com/mmynk/formyfuture/internal/models"
)

// ProposalService exposes the proposal registry.
type ProposalService struct {
	registry *funding.Registry
	ledger   *funding.Ledger
	recorder Recorder
}

// NewProposalService creates a ProposalService. recorder may be nil.
func NewProposalService(registry *funding.Registry, ledger *funding.Ledger, recorder Recorder) *ProposalService {
	return &ProposalService{
		registry: registry,
		ledger:   ledger,
		recorder: recorderOrNop(recorder),
	}
}

// CreateProposal opens a proposal owned by the caller.
func (s *ProposalService) CreateProposal(ctx context.Context, req *connect.Request[CreateProposalRequest]) (*connect.Response[CreateProposalResponse], error) {
	caller := middleware.GetUserID(ctx)
	slog.Info("CreateProposal request",
		"caller", caller,
		"amount_needed", req.Msg.AmountNeeded,
		"deadline", req.Msg.Deadline,
	)

	p, err := s.registry.Create(ctx, caller, funding.CreateProposalInput{
		AmountNeeded: req.Msg.AmountNeeded,
		Deadline:     req.Msg.Deadline,
		Metadata: models.ProposalMetadata{
			Title:           req.Msg.Title,
			Description:     req.Msg.Description,
			Goal:            req.Msg.Goal,
			LinkInstitution: req.Msg.LinkInstitution,
			LinkPensum:      req.Msg.LinkPensum,
			Photos:          req.Msg.Photos,
		},
	})
	if err != nil {
		slog.Warn("CreateProposal failed", "caller", caller, "error", err)
		return nil, apperrors.ToConnect(err)
	}

	s.recorder.ObserveProposalCreated()
	slog.Info("Proposal created", "proposal_id", p.Index, "owner", p.Owner)
	return connect.NewResponse(&CreateProposalResponse{Proposal: proposalToWire(p)}), nil
}

// GetProposal returns one proposal.
func (s *ProposalService) GetProposal(ctx context.Context, req *connect.Request[GetProposalRequest]) (*connect.Response[GetProposalResponse], error) {
	p, err := s.registry.Get(ctx, req.Msg.ProposalID)
	if err != nil {
		return nil, apperrors.ToConnect(err)
	}
	return connect.NewResponse(&GetProposalResponse{Proposal: proposalToWire(p)}), nil
}

// ListProposals returns every proposal.
func (s *ProposalService) ListProposals(ctx context.Context, req *connect.Request[ListProposalsRequest]) (*connect.Response[ListProposalsResponse], error) {
	proposals, err := s.registry.List(ctx)
	if err != nil {
		slog.Error("ListProposals failed", "error", err)
		return nil, apperrors.ToConnect(err)
	}

	out := make([]*Proposal, len(proposals))
	for i, p := range proposals {
		out[i] = proposalToWire(p)
	}
	return connect.NewResponse(&ListProposalsResponse{Proposals: out}), nil
}

// PauseProposal stops a proposal. Administrators only.
func (s *ProposalService) PauseProposal(ctx context.Context, req *connect.Request[PauseProposalRequest]) (*connect.Response[PauseProposalResponse], error) {
	caller := middleware.GetUserID(ctx)
	slog.Info("PauseProposal request", "proposal_id", req.Msg.ProposalID, "caller", caller)

	p, err := s.registry.Pause(ctx, req.Msg.ProposalID, caller)
	if err != nil {
		slog.Warn("PauseProposal failed", "proposal_id", req.Msg.ProposalID, "caller", caller, "error", err)
		return nil, apperrors.ToConnect(err)
	}

	s.recorder.ObserveProposalPaused()
	slog.Info("Proposal paused", "proposal_id", p.Index)
	return connect.NewResponse(&PauseProposalResponse{Proposal: proposalToWire(p)}), nil
}

// GetFundedPercentage returns fundsRaised*100/amountNeeded, floored.
func (s *ProposalService) GetFundedPercentage(ctx context.Context, req *connect.Request[GetFundedPercentageRequest]) (*connect.Response[GetFundedPercentageResponse], error) {
	pct, err := s.ledger.FundedPercentage(ctx, req.Msg.ProposalID)
	if err != nil {
		return nil, apperrors.ToConnect(err)
	}
	return connect.NewResponse(&GetFundedPercentageResponse{Percentage: pct}), nil
}

// ListContributions returns the ledger entries of one proposal.
func (s *ProposalService) ListContributions(ctx context.Context, req *connect.Request[ListContributionsRequest]) (*connect.Response[ListContributionsResponse], error) {
	contributions, err := s.ledger.ListByProposal(ctx, req.Msg.ProposalID)
	if err != nil {
		return nil, apperrors.ToConnect(err)
	}

	out := make([]Contribution, len(contributions))
	for i, c := range contributions {
		out[i] = *contributionToWire(c)
	}
	return connect.NewResponse(&ListContributionsResponse{Contributions: out}), nil
}
