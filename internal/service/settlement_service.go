package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	apperrors "github.com/mmynk/formyfuture/internal/errors"
	"github.com/mmynk/formyfuture/internal/funding"
	"github.com/mmynk/formyfuture/internal/middleware"
	"github.com/mmynk/formyfuture/internal/telemetry"
)

// SettlementService pays out proposals to their owners.
type SettlementService struct {
	settler  *funding.Settler
	recorder Recorder
}

// NewSettlementService creates a SettlementService. recorder may be nil.
func NewSettlementService(settler *funding.Settler, recorder Recorder) *SettlementService {
	return &SettlementService{settler: settler, recorder: recorderOrNop(recorder)}
}

// ReclaimFunds transfers the raised funds to the calling owner.
func (s *SettlementService) ReclaimFunds(ctx context.Context, req *connect.Request[ReclaimFundsRequest]) (*connect.Response[ReclaimFundsResponse], error) {
	caller := middleware.GetUserID(ctx)
	slog.Info("ReclaimFunds request", "proposal_id", req.Msg.ProposalID, "caller", caller)

	p, err := s.settler.Reclaim(ctx, req.Msg.ProposalID, caller)
	if err != nil {
		s.recorder.ObserveSettlement(string(apperrors.CodeOf(err)), 0)
		slog.Warn("ReclaimFunds failed", "proposal_id", req.Msg.ProposalID, "caller", caller, "error", err)
		return nil, apperrors.ToConnect(err)
	}

	s.recorder.ObserveSettlement(telemetry.OutcomeSettled, p.SettlementAmount)
	slog.Info("Proposal settled", "proposal_id", p.Index, "owner", p.Owner, "amount", p.SettlementAmount)
	return connect.NewResponse(&ReclaimFundsResponse{Proposal: proposalToWire(p)}), nil
}
