package models

// User represents an identity known to the system.
//
// A user is created on first interaction, either an explicit login or the
// first contribution made by an unknown caller. Only HasActiveProposal changes
// after creation.
type User struct {
	// ID is the caller identity (account name) resolved by the identity gate.
	ID string

	// PasswordHash is the bcrypt hash used by password login.
	// Empty for users registered implicitly by a contribution.
	PasswordHash string

	// HasActiveProposal is true while the user owns a proposal in the Open state.
	HasActiveProposal bool

	// Rank is an opaque profile field.
	Rank int64

	// Picture is an opaque profile field (URL or media key).
	Picture string

	// CreatedAt is the Unix timestamp when the user was registered.
	CreatedAt int64

	// Contributions is the user's contribution history, oldest first.
	// It is a read-only projection of the contributions collection and is
	// filled in by readers; stores never persist it.
	Contributions []Contribution
}

// NewUser creates a user record for the given identity.
func NewUser(id, passwordHash string, createdAt int64) *User {
	return &User{
		ID:           id,
		PasswordHash: passwordHash,
		CreatedAt:    createdAt,
	}
}
