package config_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/tickerchat/pkg/cli/config"
	"github.com/secmon-lab/tickerchat/pkg/usecase"
)

func TestAuthConfigure(t *testing.T) {
	t.Run("anonymous by default", func(t *testing.T) {
		identity, err := config.NewAuthForTest("", "", "").Configure()
		gt.NoError(t, err).Required()
		_, ok := identity.(usecase.AnonymousIdentity)
		gt.Bool(t, ok).True()
	})

	t.Run("no-auth mode", func(t *testing.T) {
		cfg := config.NewAuthForTest("", "", "dev-user")
		identity, err := cfg.Configure()
		gt.NoError(t, err).Required()
		gt.Bool(t, cfg.IsNoAuthMode()).True()
		_, ok := identity.(*usecase.NoAuthIdentity)
		gt.Bool(t, ok).True()
	})

	t.Run("secret mode", func(t *testing.T) {
		identity, err := config.NewAuthForTest("", "s3cret", "").Configure()
		gt.NoError(t, err).Required()
		_, ok := identity.(*usecase.JWTIdentity)
		gt.Bool(t, ok).True()
	})

	t.Run("conflicting modes", func(t *testing.T) {
		_, err := config.NewAuthForTest("https://example.com/jwks", "s3cret", "").Configure()
		gt.Error(t, err).Is(config.ErrConflictingAuth)
	})
}
