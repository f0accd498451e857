package config_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/tickerchat/pkg/cli/config"
	"github.com/secmon-lab/tickerchat/pkg/domain/types"
)

func TestProvidersConfigure(t *testing.T) {
	t.Run("flag order with gemini disabled", func(t *testing.T) {
		p := config.NewProvidersForTest("primary,secondary,gemini,tertiary", map[string]string{
			"primary":  "k1",
			"tertiary": "k3",
		})
		set, err := p.Configure(t.Context(), nil)
		gt.NoError(t, err).Required()

		gt.Array(t, set.Chain).Length(4)
		names := []string{}
		for _, c := range set.Chain {
			names = append(names, c.Attempt().Name)
		}
		gt.Value(t, names).Equal([]string{"primary", "secondary", "gemini", "tertiary"})

		gt.Bool(t, set.Chain[0].Attempt().CredentialPresent).True()
		gt.Bool(t, set.Chain[1].Attempt().CredentialPresent).False()
		gt.Value(t, set.Chain[2].Attempt().Protocol).Equal(types.ProtocolNativeIterator)
		gt.Bool(t, set.Chain[2].Attempt().CredentialPresent).False()

		// default distill candidates: first two credentialed line framed providers
		gt.Array(t, set.Distill).Length(2)
		gt.Value(t, set.Distill[0].Attempt().Name).Equal("primary")
		gt.Value(t, set.Distill[1].Attempt().Name).Equal("tertiary")
	})

	t.Run("file providers and order take precedence", func(t *testing.T) {
		t.Setenv("TEST_TICKERCHAT_KEY", "from-env")
		p := config.NewProvidersForTest("primary", nil)
		p.SetDistill("", "small")

		set, err := p.Configure(t.Context(), &config.AppConfig{
			Order: []string{"custom", "primary"},
			Providers: []config.ProviderEntry{
				{Name: "custom", Endpoint: "https://llm.example/v1", Model: "m", APIKeyEnv: "TEST_TICKERCHAT_KEY"},
			},
			Distill: config.DistillEntry{Providers: []string{"custom"}},
		})
		gt.NoError(t, err).Required()
		gt.Value(t, set.Chain[0].Attempt().Name).Equal("custom")
		gt.Bool(t, set.Chain[0].Attempt().CredentialPresent).True()
		gt.Array(t, set.Distill).Length(1)
		gt.Array(t, set.DistillOptions).Length(2)
	})

	t.Run("unknown provider in order", func(t *testing.T) {
		p := config.NewProvidersForTest("primary,nope", nil)
		_, err := p.Configure(t.Context(), nil)
		gt.Error(t, err).Is(config.ErrUnknownProvider)
	})

	t.Run("duplicate provider in order", func(t *testing.T) {
		p := config.NewProvidersForTest("primary,primary", nil)
		_, err := p.Configure(t.Context(), nil)
		gt.Error(t, err).Is(config.ErrDuplicateProvider)
	})

	t.Run("empty order", func(t *testing.T) {
		p := config.NewProvidersForTest(" , ", nil)
		_, err := p.Configure(t.Context(), nil)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}
