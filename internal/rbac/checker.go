package rbac

import (
	"context"
	"strings"
)

// Checker answers "may this role do this?" against a role→permission policy.
// Permissions are namespace:action strings; a grant of "ns:*" covers the whole
// namespace and "*" covers everything (the admin grant).
type Checker struct {
	policy map[string][]string
}

func NewChecker(policy map[string][]string) *Checker {
	if policy == nil {
		policy = RolePermissions
	}
	return &Checker{policy: policy}
}

func (c *Checker) Has(role, perm string) bool {
	for _, grant := range c.policy[role] {
		if matchPerm(grant, perm) {
			return true
		}
	}
	return false
}

func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

func matchPerm(grant, perm string) bool {
	if grant == "*" || grant == perm {
		return true
	}
	if ns, ok := strings.CutSuffix(grant, ":*"); ok {
		return strings.HasPrefix(perm, ns+":")
	}
	return false
}

// ---- role in context ----

type ctxKey struct{}

var ctxKeyRole = ctxKey{}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxKeyRole, role)
}

func RoleFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxKeyRole); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
