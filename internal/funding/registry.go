package funding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mmynk/formyfuture/internal/models"
	"github.com/mmynk/formyfuture/internal/storage"
)

// CreateProposalInput describes a new proposal.
type CreateProposalInput struct {
	AmountNeeded uint64
	// Deadline is the Unix timestamp after which contributions are rejected.
	Deadline int64
	Metadata models.ProposalMetadata
}

// Registry creates and queries proposals.
type Registry struct {
	store storage.Store
	authz Authorizer
	clock func() time.Time
}

// NewRegistry creates a Registry. authz decides who may pause proposals.
func NewRegistry(store storage.Store, authz Authorizer, opts ...Option) *Registry {
	o := buildOptions(opts)
	return &Registry{store: store, authz: authz, clock: o.clock}
}

// Create registers a new open proposal owned by owner and marks the owner as
// having an active proposal.
func (r *Registry) Create(ctx context.Context, owner string, input CreateProposalInput) (_ *models.Proposal, err error) {
	ctx, span := startSpan(ctx, "funding.CreateProposal",
		attribute.String("owner", owner),
	)
	defer func() { endSpan(span, err) }()

	input.Metadata.Title = strings.TrimSpace(input.Metadata.Title)

	var created *models.Proposal
	err = r.store.Update(ctx, func(tx storage.Tx) error {
		if owner == "" {
			return ErrUnknownCaller
		}
		user, err := tx.GetUser(ctx, owner)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUnknownCaller
		}
		if err != nil {
			return err
		}
		if user.HasActiveProposal {
			return ErrAlreadyHasActiveProposal
		}
		if input.AmountNeeded == 0 {
			return ErrInvalidAmount
		}
		now := r.clock()
		if input.Deadline <= now.Unix() {
			return ErrInvalidDeadline
		}

		index, err := nextID(tx.CountProposals(ctx))
		if err != nil {
			return err
		}

		p := &models.Proposal{
			Index:        index,
			Owner:        owner,
			AmountNeeded: input.AmountNeeded,
			Status:       models.ProposalStatusOpen,
			CreatedAt:    now.Unix(),
			Deadline:     input.Deadline,
			Metadata:     input.Metadata,
		}
		if err := tx.PutProposal(ctx, p); err != nil {
			return err
		}

		user.HasActiveProposal = true
		if err := tx.PutUser(ctx, user); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int64("proposal.id", created.Index))
	return created, nil
}

// Pause stops a proposal. Only administrators may pause. Pausing an already
// paused proposal is a no-op; a settled proposal cannot be paused.
// The owner's active-proposal flag is released so they may open a new one.
func (r *Registry) Pause(ctx context.Context, index int64, caller string) (_ *models.Proposal, err error) {
	ctx, span := startSpan(ctx, "funding.PauseProposal",
		attribute.Int64("proposal.id", index),
		attribute.String("caller", caller),
	)
	defer func() { endSpan(span, err) }()

	if r.authz == nil || !r.authz.IsAdmin(caller) {
		return nil, ErrUnauthorized
	}

	var paused *models.Proposal
	err = r.store.Update(ctx, func(tx storage.Tx) error {
		p, err := getProposal(ctx, tx, index)
		if err != nil {
			return err
		}

		switch p.Status {
		case models.ProposalStatusPaused:
			paused = p
			return nil
		case models.ProposalStatusSettled:
			return fmt.Errorf("pause proposal %d: %w", index, ErrProposalNotOpen)
		}
		if p.SettlementPending {
			return fmt.Errorf("pause proposal %d: %w", index, ErrSettlementInProgress)
		}

		p.Status = models.ProposalStatusPaused
		if err := tx.PutProposal(ctx, p); err != nil {
			return err
		}

		owner, err := tx.GetUser(ctx, p.Owner)
		if err != nil {
			return err
		}
		owner.HasActiveProposal = false
		if err := tx.PutUser(ctx, owner); err != nil {
			return err
		}
		paused = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paused, nil
}

// Get returns a proposal by index.
func (r *Registry) Get(ctx context.Context, index int64) (*models.Proposal, error) {
	var p *models.Proposal
	err := r.store.View(ctx, func(tx storage.Tx) error {
		var err error
		p, err = getProposal(ctx, tx, index)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// List returns every proposal ordered by index.
func (r *Registry) List(ctx context.Context) ([]*models.Proposal, error) {
	var proposals []*models.Proposal
	err := r.store.View(ctx, func(tx storage.Tx) error {
		var err error
		proposals, err = tx.ListProposals(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return proposals, nil
}
