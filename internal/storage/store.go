// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/formyfuture/internal/models"
)

// ErrNotFound is returned by Tx getters when the key does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the keyed record store holding four independent collections:
// users by identity, proposals, contributions and payments by integer id.
//
// This abstraction allows swapping storage backends (SQLite, Redis)
// without changing the funding core.
type Store interface {
	// Update runs fn in a read-write transaction. If fn returns an error,
	// nothing fn wrote is persisted. Otherwise all writes commit together.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any resources held by the store.
	Close() error
}

// Tx is the set of keyed operations available inside a transaction.
// Every Put replaces the full record under its key.
type Tx interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	PutUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context) ([]*models.User, error)
	CountUsers(ctx context.Context) (int64, error)

	GetProposal(ctx context.Context, index int64) (*models.Proposal, error)
	PutProposal(ctx context.Context, proposal *models.Proposal) error
	ListProposals(ctx context.Context) ([]*models.Proposal, error)
	CountProposals(ctx context.Context) (int64, error)

	GetContribution(ctx context.Context, id int64) (*models.Contribution, error)
	PutContribution(ctx context.Context, contribution *models.Contribution) error
	ListContributionsByProposal(ctx context.Context, proposalID int64) ([]*models.Contribution, error)
	ListContributionsByContributor(ctx context.Context, contributor string) ([]*models.Contribution, error)
	CountContributions(ctx context.Context) (int64, error)

	GetPayment(ctx context.Context, id int64) (*models.Payment, error)
	PutPayment(ctx context.Context, payment *models.Payment) error
	ListPayments(ctx context.Context) ([]*models.Payment, error)
	CountPayments(ctx context.Context) (int64, error)
}
