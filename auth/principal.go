package auth

import "context"

// Principal is the verified caller of a request.
type Principal struct {
	Subject  string
	Nickname string
	Email    string
	// Token is the raw bearer token, kept for userinfo lookups.
	Token string
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	if !ok || p == nil || p.Subject == "" {
		return nil, false
	}
	return p, true
}
