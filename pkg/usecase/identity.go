package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tickerchat/pkg/domain/model"
	"github.com/secmon-lab/tickerchat/pkg/domain/model/auth"
)

const (
	jwksCacheTTL   = 5 * time.Minute
	jwtAllowedSkew = 10 * time.Second
)

// IdentityProvider resolves the caller from the Authorization header value.
// A nil principal with nil error means anonymous access.
type IdentityProvider interface {
	Resolve(ctx context.Context, authorization string) (*auth.Principal, error)
}

// AnonymousIdentity treats every caller as anonymous
type AnonymousIdentity struct{}

func (AnonymousIdentity) Resolve(ctx context.Context, authorization string) (*auth.Principal, error) {
	return nil, nil
}

// NoAuthIdentity resolves every request to a fixed owner (for development/testing)
type NoAuthIdentity struct {
	owner model.OwnerID
}

func NewNoAuthIdentity(owner string) *NoAuthIdentity {
	return &NoAuthIdentity{owner: model.OwnerID(owner)}
}

func (p *NoAuthIdentity) Resolve(ctx context.Context, authorization string) (*auth.Principal, error) {
	return &auth.Principal{OwnerID: p.owner, Name: string(p.owner)}, nil
}

// JWTIdentity verifies bearer tokens signed by a JWKS key or an HS256 secret
type JWTIdentity struct {
	jwksURL  string
	secret   []byte
	audience string
	issuer   string

	mu        sync.Mutex
	keySet    jwk.Set
	fetchedAt time.Time
	now       func() time.Time
}

type JWTOption func(*JWTIdentity)

func WithAudience(aud string) JWTOption {
	return func(p *JWTIdentity) {
		p.audience = aud
	}
}

func WithIssuer(iss string) JWTOption {
	return func(p *JWTIdentity) {
		p.issuer = iss
	}
}

// NewJWKSIdentity verifies tokens against keys fetched from jwksURL. Keys are cached.
func NewJWKSIdentity(jwksURL string, opts ...JWTOption) *JWTIdentity {
	p := &JWTIdentity{jwksURL: jwksURL, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewHS256Identity verifies tokens signed with a shared secret
func NewHS256Identity(secret string, opts ...JWTOption) *JWTIdentity {
	p := &JWTIdentity{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func bearerToken(authorization string) string {
	const prefix = "bearer "
	if len(authorization) <= len(prefix) || !strings.EqualFold(authorization[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(authorization[len(prefix):])
}

// Resolve returns nil for a missing header and ErrInvalidToken for a bad token
func (p *JWTIdentity) Resolve(ctx context.Context, authorization string) (*auth.Principal, error) {
	raw := bearerToken(authorization)
	if raw == "" {
		return nil, nil
	}

	opts := []jwt.ParseOption{
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(jwtAllowedSkew),
	}
	if p.audience != "" {
		opts = append(opts, jwt.WithAudience(p.audience))
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}

	if len(p.secret) > 0 {
		opts = append(opts, jwt.WithKey(jwa.HS256, p.secret))
	} else {
		keySet, err := p.getKeySet(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, jwt.WithKeySet(keySet))
	}

	token, err := jwt.Parse([]byte(raw), opts...)
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidToken, "failed to parse or verify JWT token", goerr.V("cause", err.Error()))
	}

	if token.Subject() == "" {
		return nil, goerr.Wrap(ErrInvalidToken, "sub claim not found in token")
	}

	principal := &auth.Principal{OwnerID: model.OwnerID(token.Subject())}
	if v, ok := token.Get("email"); ok {
		principal.Email, _ = v.(string)
	}
	if v, ok := token.Get("name"); ok {
		principal.Name, _ = v.(string)
	}
	return principal, nil
}

func (p *JWTIdentity) getKeySet(ctx context.Context) (jwk.Set, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.keySet != nil && p.now().Sub(p.fetchedAt) < jwksCacheTTL {
		return p.keySet, nil
	}

	keySet, err := jwk.Fetch(ctx, p.jwksURL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch public keys", goerr.V("jwks_url", p.jwksURL))
	}
	p.keySet = keySet
	p.fetchedAt = p.now()
	return keySet, nil
}
