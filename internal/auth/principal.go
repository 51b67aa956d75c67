// Package auth holds the credential primitives: password hashing, session
// tokens, and the principal attached to authenticated requests.
package auth

import "context"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}

// Principal is the resolved identity of an authenticated request.
type Principal struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (p *Principal) IsAdmin() bool { return p != nil && p.Role == RoleAdmin }

type ctxKey int

const (
	principalKey ctxKey = iota
	tokenKey
)

// WithPrincipal returns ctx carrying p and the session token it was resolved from.
func WithPrincipal(ctx context.Context, p *Principal, token string) context.Context {
	ctx = context.WithValue(ctx, principalKey, p)
	return context.WithValue(ctx, tokenKey, token)
}

// PrincipalFrom returns the principal on ctx, or nil for anonymous requests.
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// TokenFrom returns the session token the request was authenticated with.
func TokenFrom(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenKey).(string)
	return t, ok && t != ""
}
