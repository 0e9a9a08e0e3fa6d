package service

import (
	"time"

	"github.com/mmynk/formyfuture/internal/calculator"
	"github.com/mmynk/formyfuture/internal/models"
)

// Wire messages are plain structs encoded with rpc.JSONCodec. Amounts are
// sent as decimal strings so clients without 64-bit integers keep precision.

// User is the public view of a user.
type User struct {
	ID                string         `json:"id"`
	HasActiveProposal bool           `json:"hasActiveProposal"`
	Rank              int64          `json:"rank"`
	Picture           string         `json:"picture"`
	CreatedAt         time.Time      `json:"createdAt"`
	Contributions     []Contribution `json:"contributions"`
}

// Proposal is the public view of a proposal.
type Proposal struct {
	Index             int64     `json:"index"`
	Owner             string    `json:"owner"`
	AmountNeeded      uint64    `json:"amountNeeded,string"`
	FundsRaised       uint64    `json:"fundsRaised,string"`
	FundedPercentage  uint64    `json:"fundedPercentage"`
	Status            string    `json:"status"`
	IsReclaimable     bool      `json:"isReclaimable"`
	SettlementPending bool      `json:"settlementPending"`
	CreatedAt         time.Time `json:"createdAt"`
	Deadline          time.Time `json:"deadline"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Goal              string    `json:"goal"`
	LinkInstitution   string    `json:"linkInstitution"`
	LinkPensum        string    `json:"linkPensum"`
	Photos            []string  `json:"photos"`
}

// Contribution is the public view of a ledger entry.
type Contribution struct {
	ID          int64     `json:"id"`
	ProposalID  int64     `json:"proposalId"`
	Amount      uint64    `json:"amount,string"`
	Contributor string    `json:"contributor"`
	Recipient   string    `json:"recipient"`
	CreatedAt   time.Time `json:"createdAt"`
	Comment     string    `json:"comment"`
}

type LoginRequest struct {
	AccountID string `json:"accountId"`
	Password  string `json:"password"`
}

type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}

type CreateProposalRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Goal            string   `json:"goal"`
	LinkInstitution string   `json:"linkInstitution"`
	LinkPensum      string   `json:"linkPensum"`
	Photos          []string `json:"photos"`
	AmountNeeded    uint64   `json:"amountNeeded,string"`
	// Deadline is a Unix timestamp in seconds.
	Deadline int64 `json:"deadline"`
}

type CreateProposalResponse struct {
	Proposal *Proposal `json:"proposal"`
}

type GetProposalRequest struct {
	ProposalID int64 `json:"proposalId"`
}

type GetProposalResponse struct {
	Proposal *Proposal `json:"proposal"`
}

type ListProposalsRequest struct{}

type ListProposalsResponse struct {
	Proposals []*Proposal `json:"proposals"`
}

type PauseProposalRequest struct {
	ProposalID int64 `json:"proposalId"`
}

type PauseProposalResponse struct {
	Proposal *Proposal `json:"proposal"`
}

type GetFundedPercentageRequest struct {
	ProposalID int64 `json:"proposalId"`
}

type GetFundedPercentageResponse struct {
	Percentage uint64 `json:"percentage"`
}

type ListContributionsRequest struct {
	ProposalID int64 `json:"proposalId"`
}

type ListContributionsResponse struct {
	Contributions []Contribution `json:"contributions"`
}

type ContributeRequest struct {
	ProposalID int64  `json:"proposalId"`
	Amount     uint64 `json:"amount,string"`
	Comment    string `json:"comment"`
}

type ContributeResponse struct {
	Contribution *Contribution `json:"contribution"`
}

type ReclaimFundsRequest struct {
	ProposalID int64 `json:"proposalId"`
}

type ReclaimFundsResponse struct {
	Proposal *Proposal `json:"proposal"`
}

type GetUserRequest struct {
	UserID string `json:"userId"`
}

type GetUserResponse struct {
	User *User `json:"user"`
}

type ListUsersRequest struct{}

type ListUsersResponse struct {
	Users []*User `json:"users"`
}

func userToWire(u *models.User) *User {
	contributions := make([]Contribution, len(u.Contributions))
	for i := range u.Contributions {
		contributions[i] = *contributionToWire(&u.Contributions[i])
	}
	return &User{
		ID:                u.ID,
		HasActiveProposal: u.HasActiveProposal,
		Rank:              u.Rank,
		Picture:           u.Picture,
		CreatedAt:         time.Unix(u.CreatedAt, 0).UTC(),
		Contributions:     contributions,
	}
}

func proposalToWire(p *models.Proposal) *Proposal {
	photos := p.Metadata.Photos
	if photos == nil {
		photos = []string{}
	}
	return &Proposal{
		Index:             p.Index,
		Owner:             p.Owner,
		AmountNeeded:      p.AmountNeeded,
		FundsRaised:       p.FundsRaised,
		FundedPercentage:  calculator.FundedPercentage(p.FundsRaised, p.AmountNeeded),
		Status:            p.Status.String(),
		IsReclaimable:     p.IsReclaimable,
		SettlementPending: p.SettlementPending,
		CreatedAt:         time.Unix(p.CreatedAt, 0).UTC(),
		Deadline:          time.Unix(p.Deadline, 0).UTC(),
		Title:             p.Metadata.Title,
		Description:       p.Metadata.Description,
		Goal:              p.Metadata.Goal,
		LinkInstitution:   p.Metadata.LinkInstitution,
		LinkPensum:        p.Metadata.LinkPensum,
		Photos:            photos,
	}
}

func contributionToWire(c *models.Contribution) *Contribution {
	return &Contribution{
		ID:          c.ID,
		ProposalID:  c.ProposalID,
		Amount:      c.Amount,
		Contributor: c.Contributor,
		Recipient:   c.Recipient,
		CreatedAt:   time.Unix(c.CreatedAt, 0).UTC(),
		Comment:     c.Comment,
	}
}
