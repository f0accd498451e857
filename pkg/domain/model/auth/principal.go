package auth

import (
	"context"

	"github.com/secmon-lab/tickerchat/pkg/domain/model"
)

// Principal is the authenticated caller resolved by the identity provider
type Principal struct {
	OwnerID model.OwnerID
	Email   string
	Name    string
}

type ctxPrincipalKey struct{}

// ContextWithPrincipal stores p in ctx
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey{}, p)
}

// PrincipalFromContext returns the caller, or nil for anonymous access
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(ctxPrincipalKey{}).(*Principal)
	return p
}

// OwnerFromContext returns the caller's owner ID and whether the caller is authenticated
func OwnerFromContext(ctx context.Context) (model.OwnerID, bool) {
	p := PrincipalFromContext(ctx)
	if p == nil || p.OwnerID == "" {
		return "", false
	}
	return p.OwnerID, true
}
