package auth

import "strings"

// AdminPolicy decides which identities may perform administrative operations.
// It satisfies funding.Authorizer.
type AdminPolicy struct {
	admins map[string]struct{}
}

// NewAdminPolicy builds a policy from a list of administrator identities.
// Blank entries are ignored.
func NewAdminPolicy(ids []string) *AdminPolicy {
	admins := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			admins[id] = struct{}{}
		}
	}
	return &AdminPolicy{admins: admins}
}

// IsAdmin reports whether id is an administrator.
func (p *AdminPolicy) IsAdmin(id string) bool {
	if p == nil || id == "" {
		return false
	}
	_, ok := p.admins[id]
	return ok
}
