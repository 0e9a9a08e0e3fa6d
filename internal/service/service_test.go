package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/formyfuture/internal/auth"
	"github.com/mmynk/formyfuture/internal/funding"
	"github.com/mmynk/formyfuture/internal/rpc"
	"github.com/mmynk/formyfuture/internal/storage/sqlite"
	"github.com/mmynk/formyfuture/internal/telemetry"
	"github.com/mmynk/formyfuture/internal/transfer"
)

const testAdmin = "root.near"

type testServer struct {
	url     string
	custody *transfer.Custody
	metrics *telemetry.Metrics
}

// setupTestServer serves every procedure over a temp SQLite database.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "formyfuture-service-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtManager := auth.NewJWTManager("service-test-secret", time.Hour)
	custody := transfer.NewCustody()
	metrics := telemetry.NewMetrics()
	users := funding.NewUsers(store)
	ledger := funding.NewLedger(store)

	admins := auth.NewAdminPolicy([]string{testAdmin})
	adminHash, err := bcrypt.GenerateFromPassword([]byte("password-"+testAdmin), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash admin password: %v", err)
	}
	authenticator := auth.NewPasswordAuthenticator(store, admins, auth.WithAdminPasswordHashes(map[string]string{
		testAdmin: string(adminHash),
	}))

	mux := http.NewServeMux()
	Register(mux, Services{
		Auth:          NewAuthService(authenticator, jwtManager, users, logger),
		Proposals:     NewProposalService(funding.NewRegistry(store, admins), ledger, metrics),
		Contributions: NewContributionService(ledger, metrics),
		Settlements:   NewSettlementService(funding.NewSettler(store, custody), metrics),
		Users:         NewUserService(users),
	}, HandlerOptions{JWT: jwtManager, Observer: metrics})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return &testServer{url: server.URL, custody: custody, metrics: metrics}
}

func call[Req, Res any](t *testing.T, s *testServer, procedure, token string, msg *Req) (*Res, error) {
	t.Helper()
	client := connect.NewClient[Req, Res](http.DefaultClient, s.url+procedure, rpc.WithJSON())
	req := connect.NewRequest(msg)
	if token != "" {
		req.Header().Set("Authorization", "Bearer "+token)
	}
	resp, err := client.CallUnary(context.Background(), req)
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (s *testServer) login(t *testing.T, id string) string {
	t.Helper()
	resp, err := call[LoginRequest, LoginResponse](t, s, LoginProcedure, "", &LoginRequest{AccountID: id, Password: "password-" + id})
	if err != nil {
		t.Fatalf("Login(%s) failed: %v", id, err)
	}
	if resp.Token == "" || resp.User.ID != id {
		t.Fatalf("unexpected login response: %+v", resp)
	}
	return resp.Token
}

func assertConnectCode(t *testing.T, err error, want connect.Code, wantDomain string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Fatalf("connect code = %s, want %s (%v)", got, want, err)
	}
	if wantDomain == "" {
		return
	}
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		t.Fatalf("not a connect error: %v", err)
	}
	if got := connectErr.Meta().Get("X-Error-Code"); got != wantDomain {
		t.Errorf("X-Error-Code = %q, want %q", got, wantDomain)
	}
}

func TestFundingFlow(t *testing.T) {
	s := setupTestServer(t)
	alice := s.login(t, "alice.near")
	bob := s.login(t, "bob.near")
	carol := s.login(t, "carol.near")

	created, err := call[CreateProposalRequest, CreateProposalResponse](t, s, CreateProposalProcedure, alice, &CreateProposalRequest{
		Title:        "Semester tuition",
		Goal:         "Finish the degree",
		Photos:       []string{"cover.png"},
		AmountNeeded: 100,
		Deadline:     time.Now().Add(48 * time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("CreateProposal failed: %v", err)
	}
	p := created.Proposal
	if p.Index != 1 || p.Status != "OPEN" || p.FundsRaised != 0 || p.Owner != "alice.near" || p.Title != "Semester tuition" {
		t.Fatalf("unexpected proposal: %+v", p)
	}

	_, err = call[CreateProposalRequest, CreateProposalResponse](t, s, CreateProposalProcedure, alice, &CreateProposalRequest{
		AmountNeeded: 10,
		Deadline:     time.Now().Add(time.Hour).Unix(),
	})
	assertConnectCode(t, err, connect.CodeFailedPrecondition, "ALREADY_HAS_ACTIVE_PROPOSAL")

	if _, err := call[ContributeRequest, ContributeResponse](t, s, ContributeProcedure, bob, &ContributeRequest{ProposalID: p.Index, Amount: 60, Comment: "go for it"}); err != nil {
		t.Fatalf("Contribute(bob) failed: %v", err)
	}

	pct, err := call[GetFundedPercentageRequest, GetFundedPercentageResponse](t, s, GetFundedPercentageProcedure, "", &GetFundedPercentageRequest{ProposalID: p.Index})
	if err != nil || pct.Percentage != 60 {
		t.Fatalf("GetFundedPercentage = %+v, %v", pct, err)
	}

	_, err = call[ReclaimFundsRequest, ReclaimFundsResponse](t, s, ReclaimFundsProcedure, alice, &ReclaimFundsRequest{ProposalID: p.Index})
	assertConnectCode(t, err, connect.CodeFailedPrecondition, "THRESHOLD_NOT_MET")

	if _, err := call[ContributeRequest, ContributeResponse](t, s, ContributeProcedure, carol, &ContributeRequest{ProposalID: p.Index, Amount: 20}); err != nil {
		t.Fatalf("Contribute(carol) failed: %v", err)
	}

	got, err := call[GetProposalRequest, GetProposalResponse](t, s, GetProposalProcedure, "", &GetProposalRequest{ProposalID: p.Index})
	if err != nil {
		t.Fatalf("GetProposal failed: %v", err)
	}
	if got.Proposal.FundsRaised != 80 || !got.Proposal.IsReclaimable || got.Proposal.FundedPercentage != 80 {
		t.Errorf("unexpected proposal after 80: %+v", got.Proposal)
	}

	_, err = call[ReclaimFundsRequest, ReclaimFundsResponse](t, s, ReclaimFundsProcedure, bob, &ReclaimFundsRequest{ProposalID: p.Index})
	assertConnectCode(t, err, connect.CodePermissionDenied, "UNAUTHORIZED")

	settled, err := call[ReclaimFundsRequest, ReclaimFundsResponse](t, s, ReclaimFundsProcedure, alice, &ReclaimFundsRequest{ProposalID: p.Index})
	if err != nil {
		t.Fatalf("ReclaimFunds failed: %v", err)
	}
	if settled.Proposal.Status != "SETTLED" {
		t.Errorf("status = %s, want SETTLED", settled.Proposal.Status)
	}
	if s.custody.PaidOut() != 80 {
		t.Errorf("paid out %d, want 80", s.custody.PaidOut())
	}
	if got := testutil.ToFloat64(s.metrics.Settlements.WithLabelValues(telemetry.OutcomeSettled)); got != 1 {
		t.Errorf("settled count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(s.metrics.SettledAmount); got != 80 {
		t.Errorf("settled amount = %v, want 80", got)
	}
	if got := testutil.ToFloat64(s.metrics.Settlements.WithLabelValues("THRESHOLD_NOT_MET")); got != 1 {
		t.Errorf("threshold failures = %v, want 1", got)
	}

	_, err = call[ReclaimFundsRequest, ReclaimFundsResponse](t, s, ReclaimFundsProcedure, alice, &ReclaimFundsRequest{ProposalID: p.Index})
	assertConnectCode(t, err, connect.CodeFailedPrecondition, "NOT_RECLAIMABLE")

	me, err := call[GetCurrentUserRequest, GetCurrentUserResponse](t, s, GetCurrentUserProcedure, alice, &GetCurrentUserRequest{})
	if err != nil {
		t.Fatalf("GetCurrentUser failed: %v", err)
	}
	if me.User.HasActiveProposal {
		t.Error("owner flag should be cleared after settlement")
	}

	bobProfile, err := call[GetUserRequest, GetUserResponse](t, s, GetUserProcedure, "", &GetUserRequest{UserID: "bob.near"})
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if len(bobProfile.User.Contributions) != 1 || bobProfile.User.Contributions[0].Comment != "go for it" {
		t.Errorf("unexpected history: %+v", bobProfile.User.Contributions)
	}

	list, err := call[ListContributionsRequest, ListContributionsResponse](t, s, ListContributionsProcedure, "", &ListContributionsRequest{ProposalID: p.Index})
	if err != nil || len(list.Contributions) != 2 {
		t.Fatalf("ListContributions = %+v, %v", list, err)
	}

	users, err := call[ListUsersRequest, ListUsersResponse](t, s, ListUsersProcedure, "", &ListUsersRequest{})
	if err != nil || len(users.Users) != 3 {
		t.Fatalf("ListUsers = %+v, %v", users, err)
	}
}

func TestPauseProposal(t *testing.T) {
	s := setupTestServer(t)
	alice := s.login(t, "alice.near")
	admin := s.login(t, testAdmin)

	created, err := call[CreateProposalRequest, CreateProposalResponse](t, s, CreateProposalProcedure, alice, &CreateProposalRequest{
		AmountNeeded: 100,
		Deadline:     time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("CreateProposal failed: %v", err)
	}
	id := created.Proposal.Index

	_, err = call[PauseProposalRequest, PauseProposalResponse](t, s, PauseProposalProcedure, alice, &PauseProposalRequest{ProposalID: id})
	assertConnectCode(t, err, connect.CodePermissionDenied, "UNAUTHORIZED")

	paused, err := call[PauseProposalRequest, PauseProposalResponse](t, s, PauseProposalProcedure, admin, &PauseProposalRequest{ProposalID: id})
	if err != nil {
		t.Fatalf("PauseProposal failed: %v", err)
	}
	if paused.Proposal.Status != "PAUSED" {
		t.Errorf("status = %s, want PAUSED", paused.Proposal.Status)
	}

	_, err = call[ContributeRequest, ContributeResponse](t, s, ContributeProcedure, alice, &ContributeRequest{ProposalID: id, Amount: 10})
	assertConnectCode(t, err, connect.CodeFailedPrecondition, "PROPOSAL_NOT_OPEN")

	_, err = call[PauseProposalRequest, PauseProposalResponse](t, s, PauseProposalProcedure, admin, &PauseProposalRequest{ProposalID: 99})
	assertConnectCode(t, err, connect.CodeNotFound, "NOT_FOUND")
}

func TestAuthRequired(t *testing.T) {
	s := setupTestServer(t)

	_, err := call[ContributeRequest, ContributeResponse](t, s, ContributeProcedure, "", &ContributeRequest{ProposalID: 1, Amount: 1})
	assertConnectCode(t, err, connect.CodeUnauthenticated, "")

	_, err = call[CreateProposalRequest, CreateProposalResponse](t, s, CreateProposalProcedure, "garbage", &CreateProposalRequest{AmountNeeded: 1})
	assertConnectCode(t, err, connect.CodeUnauthenticated, "")

	s.login(t, "alice.near")
	_, err = call[LoginRequest, LoginResponse](t, s, LoginProcedure, "", &LoginRequest{AccountID: "alice.near", Password: "wrong-password"})
	assertConnectCode(t, err, connect.CodeUnauthenticated, "INVALID_CREDENTIALS")

	_, err = call[GetUserRequest, GetUserResponse](t, s, GetUserProcedure, "", &GetUserRequest{UserID: "nobody.near"})
	assertConnectCode(t, err, connect.CodeNotFound, "NOT_FOUND")
}

func TestRejectedCallsAreObserved(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	s := setupTestServer(t)

	_, err := call[ContributeRequest, ContributeResponse](t, s, ContributeProcedure, "", &ContributeRequest{ProposalID: 1, Amount: 1})
	assertConnectCode(t, err, connect.CodeUnauthenticated, "")
	_, err = call[ContributeRequest, ContributeResponse](t, s, ContributeProcedure, "garbage", &ContributeRequest{ProposalID: 1, Amount: 1})
	assertConnectCode(t, err, connect.CodeUnauthenticated, "")

	if got := testutil.ToFloat64(s.metrics.RPCRequests.WithLabelValues(ContributeProcedure, "unauthenticated")); got != 2 {
		t.Errorf("unauthenticated count = %v, want 2", got)
	}

	alice := s.login(t, "alice.near")
	_, err = call[ContributeRequest, ContributeResponse](t, s, ContributeProcedure, alice, &ContributeRequest{ProposalID: 1, Amount: 1})
	assertConnectCode(t, err, connect.CodeNotFound, "NOT_FOUND")

	var rejected, attributed int
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var entry map[string]any
		if err := dec.Decode(&entry); err != nil {
			t.Fatalf("decode log entry: %v", err)
		}
		if entry["msg"] != "RPC error" || entry["procedure"] != ContributeProcedure {
			continue
		}
		switch entry["user_id"] {
		case "":
			rejected++
		case "alice.near":
			attributed++
		}
	}
	if rejected != 2 {
		t.Errorf("logged %d unauthenticated calls, want 2", rejected)
	}
	if attributed != 1 {
		t.Errorf("logged %d calls for alice.near, want 1", attributed)
	}
}

func TestAdminIdentityCannotBeClaimed(t *testing.T) {
	s := setupTestServer(t)

	_, err := call[LoginRequest, LoginResponse](t, s, LoginProcedure, "", &LoginRequest{AccountID: testAdmin, Password: "chosen-by-someone-else"})
	assertConnectCode(t, err, connect.CodeUnauthenticated, "INVALID_CREDENTIALS")

	_, err = call[GetUserRequest, GetUserResponse](t, s, GetUserProcedure, "", &GetUserRequest{UserID: testAdmin})
	assertConnectCode(t, err, connect.CodeNotFound, "NOT_FOUND")

	admin := s.login(t, testAdmin)
	alice := s.login(t, "alice.near")
	created, err := call[CreateProposalRequest, CreateProposalResponse](t, s, CreateProposalProcedure, alice, &CreateProposalRequest{
		AmountNeeded: 100,
		Deadline:     time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("CreateProposal failed: %v", err)
	}
	if _, err := call[PauseProposalRequest, PauseProposalResponse](t, s, PauseProposalProcedure, admin, &PauseProposalRequest{ProposalID: created.Proposal.Index}); err != nil {
		t.Fatalf("PauseProposal with provisioned admin failed: %v", err)
	}
}

func TestContributeValidation(t *testing.T) {
	s := setupTestServer(t)
	alice := s.login(t, "alice.near")
	bob := s.login(t, "bob.near")

	created, err := call[CreateProposalRequest, CreateProposalResponse](t, s, CreateProposalProcedure, alice, &CreateProposalRequest{
		AmountNeeded: 50,
		Deadline:     time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("CreateProposal failed: %v", err)
	}
	id := created.Proposal.Index

	tests := []struct {
		name   string
		req    *ContributeRequest
		code   connect.Code
		domain string
	}{
		{"zero amount", &ContributeRequest{ProposalID: id, Amount: 0}, connect.CodeInvalidArgument, "INVALID_AMOUNT"},
		{"over goal", &ContributeRequest{ProposalID: id, Amount: 51}, connect.CodeFailedPrecondition, "OVER_CONTRIBUTION"},
		{"unknown proposal", &ContributeRequest{ProposalID: 404, Amount: 1}, connect.CodeNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := call[ContributeRequest, ContributeResponse](t, s, ContributeProcedure, bob, tt.req)
			assertConnectCode(t, err, tt.code, tt.domain)
		})
	}

	_, err = call[CreateProposalRequest, CreateProposalResponse](t, s, CreateProposalProcedure, bob, &CreateProposalRequest{
		AmountNeeded: 10,
		Deadline:     time.Now().Add(-time.Minute).Unix(),
	})
	assertConnectCode(t, err, connect.CodeInvalidArgument, "INVALID_DEADLINE")
}
