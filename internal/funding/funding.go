// Package funding implements the crowdfunding lifecycle: the proposal
// registry, the contribution ledger and the settlement executor.
//
// Every mutating operation reads the records it needs, computes the new
// values and writes the full records back inside one storage.Store.Update, so
// a failed operation leaves no partial state.
package funding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/mmynk/formyfuture/internal/errors"
	"github.com/mmynk/formyfuture/internal/models"
	"github.com/mmynk/formyfuture/internal/storage"
)

var tracer = otel.Tracer("github.com/mmynk/formyfuture/internal/funding")

var (
	ErrUnknownCaller            = apperrors.New(apperrors.CodeUnknownCaller, "caller is not a registered identity")
	ErrAlreadyHasActiveProposal = apperrors.New(apperrors.CodeAlreadyHasActiveProposal, "caller already owns an open proposal")
	ErrInvalidAmount            = apperrors.New(apperrors.CodeInvalidAmount, "amount must be greater than zero")
	ErrInvalidDeadline          = apperrors.New(apperrors.CodeInvalidDeadline, "deadline must be in the future")
	ErrNotFound                 = apperrors.New(apperrors.CodeNotFound, "not found")
	ErrProposalNotOpen          = apperrors.New(apperrors.CodeProposalNotOpen, "proposal is not open")
	ErrSettlementInProgress     = apperrors.New(apperrors.CodeProposalNotOpen, "proposal settlement is in progress")
	ErrProposalExpired          = apperrors.New(apperrors.CodeProposalExpired, "proposal deadline has passed")
	ErrOverContribution         = apperrors.New(apperrors.CodeOverContribution, "contribution exceeds the remaining goal")
	ErrUnauthorized             = apperrors.New(apperrors.CodeUnauthorized, "caller is not allowed to perform this operation")
	ErrNotReclaimable           = apperrors.New(apperrors.CodeNotReclaimable, "proposal is not open for reclaim")
	ErrThresholdNotMet          = apperrors.New(apperrors.CodeThresholdNotMet, "funded percentage has not exceeded the reclaim threshold")
)

// Authorizer decides administrative rights.
type Authorizer interface {
	IsAdmin(id string) bool
}

// Option configures the funding components.
type Option func(*options)

type options struct {
	clock func() time.Time
}

// WithClock overrides the ledger time source (default time.Now).
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// EnsureRegistered returns the user with the given identity, registering it
// first if it is unknown. Registration is idempotent: calling it for a known
// identity changes nothing. created reports whether a record was written.
func EnsureRegistered(ctx context.Context, tx storage.Tx, id string, now time.Time) (user *models.User, created bool, err error) {
	if id == "" {
		return nil, false, ErrUnknownCaller
	}
	user, err = tx.GetUser(ctx, id)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, err
	}

	user = models.NewUser(id, "", now.Unix())
	if err := tx.PutUser(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// getProposal loads a proposal and maps a missing key to ErrNotFound.
func getProposal(ctx context.Context, tx storage.Tx, index int64) (*models.Proposal, error) {
	p, err := tx.GetProposal(ctx, index)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.WithMetadata(apperrors.CodeNotFound,
			fmt.Sprintf("proposal %d not found", index),
			map[string]string{"ProposalID": fmt.Sprint(index)},
		)
	}
	return p, err
}

// nextID returns count+1. Records are never deleted, so ids derived from the
// collection size are strictly increasing and never reused.
func nextID(count int64, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return count + 1, nil
}

// startSpan opens a tracing span for a funding operation.
func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err on the span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
