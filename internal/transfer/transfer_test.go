package transfer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/formyfuture/internal/rpc"
)

func TestCustody(t *testing.T) {
	ctx := context.Background()
	c := NewCustody()

	first, err := c.Transfer(ctx, Request{To: "alice.near", Amount: 80, Reference: "settlement-1"})
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	if first.ConfirmationID == "" {
		t.Error("expected confirmation id")
	}

	again, err := c.Transfer(ctx, Request{To: "alice.near", Amount: 80, Reference: "settlement-1"})
	if err != nil {
		t.Fatalf("repeated Transfer failed: %v", err)
	}
	if again.ConfirmationID != first.ConfirmationID {
		t.Error("repeated reference should return the original receipt")
	}
	if c.PaidOut() != 80 {
		t.Errorf("PaidOut = %d, want 80", c.PaidOut())
	}

	if _, err := c.Transfer(ctx, Request{To: "alice.near", Amount: 0, Reference: "x"}); !errors.Is(err, ErrNotConfirmed) {
		t.Errorf("expected ErrNotConfirmed for zero amount, got %v", err)
	}
}

func TestCustodyReferenceIsBoundToRequest(t *testing.T) {
	ctx := context.Background()
	c := NewCustody()

	if _, err := c.Transfer(ctx, Request{To: "alice.near", Amount: 80, Reference: "settlement-1"}); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	tests := []struct {
		name string
		req  Request
	}{
		{"larger amount", Request{To: "alice.near", Amount: 90, Reference: "settlement-1"}},
		{"other recipient", Request{To: "mallory.near", Amount: 80, Reference: "settlement-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Transfer(ctx, tt.req)
			if !errors.Is(err, ErrReferenceConflict) {
				t.Errorf("expected ErrReferenceConflict, got %v", err)
			}
		})
	}
	if c.PaidOut() != 80 {
		t.Errorf("PaidOut = %d, want 80", c.PaidOut())
	}
}

// newPayoutServer serves the payout procedure with the given status.
func newPayoutServer(t *testing.T, status string, seen *[]*connect.Request[PayoutRequest]) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle(PayoutTransferProcedure, connect.NewUnaryHandler(
		PayoutTransferProcedure,
		func(ctx context.Context, req *connect.Request[PayoutRequest]) (*connect.Response[PayoutResponse], error) {
			*seen = append(*seen, req)
			return connect.NewResponse(&PayoutResponse{ConfirmationID: "conf-1", Status: status}), nil
		},
		rpc.WithJSON(),
	))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRemote(t *testing.T) {
	t.Run("confirmed payout", func(t *testing.T) {
		var seen []*connect.Request[PayoutRequest]
		server := newPayoutServer(t, StatusConfirmed, &seen)

		r := NewRemote(server.Client(), server.URL)
		receipt, err := r.Transfer(context.Background(), Request{To: "alice.near", Amount: 80, Reference: "settlement-1"})
		if err != nil {
			t.Fatalf("Transfer failed: %v", err)
		}
		if receipt.ConfirmationID != "conf-1" || receipt.Reference != "settlement-1" {
			t.Errorf("unexpected receipt: %+v", receipt)
		}
		if len(seen) != 1 {
			t.Fatalf("expected 1 call, got %d", len(seen))
		}
		if got := seen[0].Header().Get("Idempotency-Key"); got != "settlement-1" {
			t.Errorf("Idempotency-Key = %q", got)
		}
		if seen[0].Msg.Amount != 80 || seen[0].Msg.To != "alice.near" {
			t.Errorf("unexpected payload: %+v", seen[0].Msg)
		}
	})

	t.Run("rejected payout", func(t *testing.T) {
		var seen []*connect.Request[PayoutRequest]
		server := newPayoutServer(t, "REJECTED", &seen)

		r := NewRemote(server.Client(), server.URL)
		_, err := r.Transfer(context.Background(), Request{To: "alice.near", Amount: 80, Reference: "settlement-1"})
		if !errors.Is(err, ErrNotConfirmed) {
			t.Errorf("expected ErrNotConfirmed, got %v", err)
		}
	})

	t.Run("reused key with a different payload", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.Handle(PayoutTransferProcedure, connect.NewUnaryHandler(
			PayoutTransferProcedure,
			func(ctx context.Context, req *connect.Request[PayoutRequest]) (*connect.Response[PayoutResponse], error) {
				return nil, connect.NewError(connect.CodeAlreadyExists, errors.New("idempotency key reused"))
			},
			rpc.WithJSON(),
		))
		server := httptest.NewServer(mux)
		t.Cleanup(server.Close)

		r := NewRemote(server.Client(), server.URL)
		_, err := r.Transfer(context.Background(), Request{To: "alice.near", Amount: 90, Reference: "settlement-1"})
		if !errors.Is(err, ErrReferenceConflict) {
			t.Errorf("expected ErrReferenceConflict, got %v", err)
		}
	})

	t.Run("unreachable payout service", func(t *testing.T) {
		var seen []*connect.Request[PayoutRequest]
		server := newPayoutServer(t, StatusConfirmed, &seen)
		url := server.URL
		server.Close()

		r := NewRemote(nil, url)
		_, err := r.Transfer(context.Background(), Request{To: "alice.near", Amount: 80, Reference: "r"})
		if err == nil {
			t.Fatal("expected error for unreachable service")
		}
		if errors.Is(err, ErrNotConfirmed) {
			t.Error("a transport failure must not be reported as a definite rejection")
		}
	})
}
