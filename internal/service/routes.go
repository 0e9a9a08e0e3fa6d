package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/formyfuture/internal/auth"
	"github.com/mmynk/formyfuture/internal/middleware"
	"github.com/mmynk/formyfuture/internal/rpc"
)

// Procedure paths.
const (
	LoginProcedure          = "/formyfuture.v1.AuthService/Login"
	GetCurrentUserProcedure = "/formyfuture.v1.AuthService/GetCurrentUser"

	CreateProposalProcedure      = "/formyfuture.v1.ProposalService/CreateProposal"
	GetProposalProcedure         = "/formyfuture.v1.ProposalService/GetProposal"
	ListProposalsProcedure       = "/formyfuture.v1.ProposalService/ListProposals"
	PauseProposalProcedure       = "/formyfuture.v1.ProposalService/PauseProposal"
	GetFundedPercentageProcedure = "/formyfuture.v1.ProposalService/GetFundedPercentage"
	ListContributionsProcedure   = "/formyfuture.v1.ProposalService/ListContributions"

	ContributeProcedure = "/formyfuture.v1.ContributionService/Contribute"

	ReclaimFundsProcedure = "/formyfuture.v1.SettlementService/ReclaimFunds"

	GetUserProcedure   = "/formyfuture.v1.UserService/GetUser"
	ListUsersProcedure = "/formyfuture.v1.UserService/ListUsers"
)

// APIPrefix is shared by every procedure path.
const APIPrefix = "/formyfuture.v1."

// Services groups the handlers served by the API.
type Services struct {
	Auth          *AuthService
	Proposals     *ProposalService
	Contributions *ContributionService
	Settlements   *SettlementService
	Users         *UserService
}

// HandlerOptions configures the interceptors around every procedure.
type HandlerOptions struct {
	JWT *auth.JWTManager
	// Observer receives per-call metrics. May be nil.
	Observer middleware.RPCObserver
	// Extra interceptors run innermost, after logging, metrics and auth.
	Extra []connect.Interceptor
}

func handle[Req, Res any](mux *http.ServeMux, procedure string, fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error), opts ...connect.HandlerOption) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, opts...))
}

// Register mounts every procedure on mux. Mutations and GetCurrentUser require
// a bearer token; reads accept anonymous callers.
func Register(mux *http.ServeMux, s Services, opts HandlerOptions) {
	chain := func(authn connect.Interceptor) connect.HandlerOption {
		interceptors := []connect.Interceptor{middleware.LoggingInterceptor()}
		if opts.Observer != nil {
			interceptors = append(interceptors, middleware.MetricsInterceptor(opts.Observer))
		}
		interceptors = append(interceptors, authn)
		interceptors = append(interceptors, opts.Extra...)
		return connect.WithInterceptors(interceptors...)
	}
	public := []connect.HandlerOption{rpc.WithJSON(), chain(middleware.OptionalAuth(opts.JWT))}
	private := []connect.HandlerOption{rpc.WithJSON(), chain(middleware.RequireAuth(opts.JWT))}

	handle(mux, LoginProcedure, s.Auth.Login, public...)
	handle(mux, GetCurrentUserProcedure, s.Auth.GetCurrentUser, private...)

	handle(mux, CreateProposalProcedure, s.Proposals.CreateProposal, private...)
	handle(mux, GetProposalProcedure, s.Proposals.GetProposal, public...)
	handle(mux, ListProposalsProcedure, s.Proposals.ListProposals, public...)
	handle(mux, PauseProposalProcedure, s.Proposals.PauseProposal, private...)
	handle(mux, GetFundedPercentageProcedure, s.Proposals.GetFundedPercentage, public...)
	handle(mux, ListContributionsProcedure, s.Proposals.ListContributions, public...)

	handle(mux, ContributeProcedure, s.Contributions.Contribute, private...)

	handle(mux, ReclaimFundsProcedure, s.Settlements.ReclaimFunds, private...)

	handle(mux, GetUserProcedure, s.Users.GetUser, public...)
	handle(mux, ListUsersProcedure, s.Users.ListUsers, public...)
}
