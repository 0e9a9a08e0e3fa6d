package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/mmynk/formyfuture/internal/models"
)

func intField(id int64) string {
	return strconv.FormatInt(id, 10)
}

// decodeAll decodes every record of a collection into a new T.
func decodeAll[T any](t *tx, ctx context.Context, collection string) ([]*T, error) {
	records, err := t.all(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(records))
	for field, data := range records {
		v := new(T)
		if err := json.Unmarshal(data, v); err != nil {
			return nil, fmt.Errorf("failed to decode %s %s: %w", collection, field, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// GetUser retrieves a user by identity.
func (t *tx) GetUser(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	if err := t.get(ctx, collectionUsers, id, user); err != nil {
		return nil, err
	}
	return user, nil
}

// PutUser replaces a user record. The contribution history projection is not stored.
func (t *tx) PutUser(ctx context.Context, user *models.User) error {
	stored := *user
	stored.Contributions = nil
	return t.put(collectionUsers, user.ID, &stored)
}

// ListUsers returns every user ordered by registration time.
func (t *tx) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := decodeAll[models.User](t, ctx, collectionUsers)
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt != users[j].CreatedAt {
			return users[i].CreatedAt < users[j].CreatedAt
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

// CountUsers returns the number of registered users.
func (t *tx) CountUsers(ctx context.Context) (int64, error) {
	return t.count(ctx, collectionUsers)
}

// GetProposal retrieves a proposal by index.
func (t *tx) GetProposal(ctx context.Context, index int64) (*models.Proposal, error) {
	p := &models.Proposal{}
	if err := t.get(ctx, collectionProposals, intField(index), p); err != nil {
		return nil, err
	}
	return p, nil
}

// PutProposal replaces a proposal record.
func (t *tx) PutProposal(ctx context.Context, p *models.Proposal) error {
	return t.put(collectionProposals, intField(p.Index), p)
}

// ListProposals returns every proposal ordered by index.
func (t *tx) ListProposals(ctx context.Context) ([]*models.Proposal, error) {
	proposals, err := decodeAll[models.Proposal](t, ctx, collectionProposals)
	if err != nil {
		return nil, err
	}
	sort.Slice(proposals, func(i, j int) bool { return proposals[i].Index < proposals[j].Index })
	return proposals, nil
}

// CountProposals returns the number of proposals ever created.
func (t *tx) CountProposals(ctx context.Context) (int64, error) {
	return t.count(ctx, collectionProposals)
}

// GetContribution retrieves a contribution by id.
func (t *tx) GetContribution(ctx context.Context, id int64) (*models.Contribution, error) {
	c := &models.Contribution{}
	if err := t.get(ctx, collectionContributions, intField(id), c); err != nil {
		return nil, err
	}
	return c, nil
}

// PutContribution inserts a contribution; ids are never overwritten.
func (t *tx) PutContribution(ctx context.Context, c *models.Contribution) error {
	return t.insert(ctx, collectionContributions, intField(c.ID), c)
}

// ListContributionsByProposal returns a proposal's contributions in id order.
func (t *tx) ListContributionsByProposal(ctx context.Context, proposalID int64) ([]*models.Contribution, error) {
	return t.filterContributions(ctx, func(c *models.Contribution) bool { return c.ProposalID == proposalID })
}

// ListContributionsByContributor returns a contributor's contributions in id order.
func (t *tx) ListContributionsByContributor(ctx context.Context, contributor string) ([]*models.Contribution, error) {
	return t.filterContributions(ctx, func(c *models.Contribution) bool { return c.Contributor == contributor })
}

// CountContributions returns the number of contributions ever recorded.
func (t *tx) CountContributions(ctx context.Context) (int64, error) {
	return t.count(ctx, collectionContributions)
}

func (t *tx) filterContributions(ctx context.Context, keep func(*models.Contribution) bool) ([]*models.Contribution, error) {
	all, err := decodeAll[models.Contribution](t, ctx, collectionContributions)
	if err != nil {
		return nil, err
	}
	var out []*models.Contribution
	for _, c := range all {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetPayment retrieves a payment by id.
func (t *tx) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	p := &models.Payment{}
	if err := t.get(ctx, collectionPayments, intField(id), p); err != nil {
		return nil, err
	}
	return p, nil
}

// PutPayment inserts a payment record.
func (t *tx) PutPayment(ctx context.Context, p *models.Payment) error {
	return t.insert(ctx, collectionPayments, intField(p.ID), p)
}

// ListPayments returns every payment in id order.
func (t *tx) ListPayments(ctx context.Context) ([]*models.Payment, error) {
	payments, err := decodeAll[models.Payment](t, ctx, collectionPayments)
	if err != nil {
		return nil, err
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID < payments[j].ID })
	return payments, nil
}

// CountPayments returns the number of payments recorded.
func (t *tx) CountPayments(ctx context.Context) (int64, error) {
	return t.count(ctx, collectionPayments)
}
