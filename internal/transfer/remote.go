package transfer

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/mmynk/formyfuture/internal/rpc"
)

// PayoutTransferProcedure is the connect procedure served by the payout service.
const PayoutTransferProcedure = "/payout.v1.PayoutService/Transfer"

// StatusConfirmed is the payout status that completes a transfer.
const StatusConfirmed = "CONFIRMED"

// PayoutRequest is the wire message sent to the payout service.
type PayoutRequest struct {
	To        string `json:"to"`
	Amount    uint64 `json:"amount,string"`
	Reference string `json:"reference"`
}

// PayoutResponse is the wire message returned by the payout service.
type PayoutResponse struct {
	ConfirmationID string `json:"confirmationId"`
	Status         string `json:"status"`
}

// Remote sends payouts to an external payout service over connect.
type Remote struct {
	client *connect.Client[PayoutRequest, PayoutResponse]
}

var _ Transferrer = (*Remote)(nil)

// NewRemote creates a client for the payout service at baseURL.
func NewRemote(httpClient connect.HTTPClient, baseURL string) *Remote {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Remote{
		client: connect.NewClient[PayoutRequest, PayoutResponse](
			httpClient,
			strings.TrimRight(baseURL, "/")+PayoutTransferProcedure,
			rpc.WithJSON(),
		),
	}
}

// Transfer asks the payout service to move the funds. The reference is sent as
// the Idempotency-Key header so retries are deduplicated remotely.
//
// The payout service must bind a key to the recipient and amount of its first
// use and answer AlreadyExists when the key is reused with a different
// payload; that answer is reported as ErrReferenceConflict. A status other
// than CONFIRMED is ErrNotConfirmed. Transport failures are returned as they
// are, since the payout may or may not have happened.
func (r *Remote) Transfer(ctx context.Context, req Request) (Receipt, error) {
	creq := connect.NewRequest(&PayoutRequest{
		To:        req.To,
		Amount:    req.Amount,
		Reference: req.Reference,
	})
	creq.Header().Set("Idempotency-Key", req.Reference)
	creq.Header().Set("X-Request-Id", uuid.NewString())

	resp, err := r.client.CallUnary(ctx, creq)
	if connect.CodeOf(err) == connect.CodeAlreadyExists {
		return Receipt{}, fmt.Errorf("%w: %v", ErrReferenceConflict, err)
	}
	if err != nil {
		return Receipt{}, fmt.Errorf("payout call failed: %w", err)
	}
	if resp.Msg.Status != StatusConfirmed {
		return Receipt{}, fmt.Errorf("%w: payout status %q", ErrNotConfirmed, resp.Msg.Status)
	}

	return Receipt{
		Reference:      req.Reference,
		ConfirmationID: resp.Msg.ConfirmationID,
	}, nil
}
