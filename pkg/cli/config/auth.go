package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tickerchat/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Auth holds configuration of the bearer token identity provider
type Auth struct {
	jwksURL   string
	jwtSecret string
	audience  string
	issuer    string
	noAuth    string
}

// Flags returns CLI flags for authentication
func (a *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "auth-jwks-url",
			Usage:       "JWKS URL used to verify bearer tokens",
			Category:    "Authentication",
			Sources:     cli.EnvVars("TICKERCHAT_AUTH_JWKS_URL"),
			Destination: &a.jwksURL,
		},
		&cli.StringFlag{
			Name:        "auth-jwt-secret",
			Usage:       "HS256 secret used to verify bearer tokens",
			Category:    "Authentication",
			Sources:     cli.EnvVars("TICKERCHAT_AUTH_JWT_SECRET"),
			Destination: &a.jwtSecret,
		},
		&cli.StringFlag{
			Name:        "auth-audience",
			Usage:       "Required aud claim",
			Category:    "Authentication",
			Sources:     cli.EnvVars("TICKERCHAT_AUTH_AUDIENCE"),
			Destination: &a.audience,
		},
		&cli.StringFlag{
			Name:        "auth-issuer",
			Usage:       "Required iss claim",
			Category:    "Authentication",
			Sources:     cli.EnvVars("TICKERCHAT_AUTH_ISSUER"),
			Destination: &a.issuer,
		},
		&cli.StringFlag{
			Name:        "no-auth",
			Usage:       "Skip authentication and run every request as the given owner ID (development only). Example: --no-auth=dev-user",
			Category:    "Authentication",
			Sources:     cli.EnvVars("TICKERCHAT_NO_AUTH"),
			Destination: &a.noAuth,
		},
	}
}

// LogValue implements slog.LogValuer
func (a Auth) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("jwks_url", a.jwksURL),
		slog.Bool("jwt_secret", a.jwtSecret != ""),
		slog.String("audience", a.audience),
		slog.String("issuer", a.issuer),
		slog.String("no_auth", a.noAuth),
	)
}

// IsNoAuthMode reports whether every request runs as a fixed owner
func (a *Auth) IsNoAuthMode() bool {
	return a.noAuth != ""
}

// Configure returns the identity provider. Without any setting, every caller is anonymous.
func (a *Auth) Configure() (usecase.IdentityProvider, error) {
	set := 0
	for _, v := range []string{a.jwksURL, a.jwtSecret, a.noAuth} {
		if v != "" {
			set++
		}
	}
	if set > 1 {
		return nil, goerr.Wrap(ErrConflictingAuth, "choose one authentication mode")
	}

	var opts []usecase.JWTOption
	if a.audience != "" {
		opts = append(opts, usecase.WithAudience(a.audience))
	}
	if a.issuer != "" {
		opts = append(opts, usecase.WithIssuer(a.issuer))
	}

	switch {
	case a.noAuth != "":
		return usecase.NewNoAuthIdentity(a.noAuth), nil
	case a.jwksURL != "":
		return usecase.NewJWKSIdentity(a.jwksURL, opts...), nil
	case a.jwtSecret != "":
		return usecase.NewHS256Identity(a.jwtSecret, opts...), nil
	default:
		return usecase.AnonymousIdentity{}, nil
	}
}
