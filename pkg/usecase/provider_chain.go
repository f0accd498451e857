package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/secmon-lab/tickerchat/pkg/domain/interfaces"
	"github.com/secmon-lab/tickerchat/pkg/domain/model"
	"github.com/secmon-lab/tickerchat/pkg/service/llm"
	"github.com/secmon-lab/tickerchat/pkg/utils/logging"
)

const (
	apologyCreditsExhausted = "Sorry, our AI credits are exhausted for the moment, so I can't answer right now. Please try again a little later."
	apologyHighLatency      = "Sorry, all of our AI providers are exhausted or responding slowly right now. Please try again in a minute."
)

// ProviderChain tries generation providers in order and keeps the first one that
// starts streaming
type ProviderChain struct {
	providers []interfaces.GenerationProvider
}

func NewProviderChain(providers ...interfaces.GenerationProvider) *ProviderChain {
	return &ProviderChain{providers: providers}
}

// Attempts returns the configured chain in order
func (c *ProviderChain) Attempts() []model.ProviderAttempt {
	attempts := make([]model.ProviderAttempt, 0, len(c.providers))
	for _, p := range c.providers {
		attempts = append(attempts, p.Attempt())
	}
	return attempts
}

// Select never fails. When every provider is skipped or fails, an immediate
// generation carrying an apology is returned.
func (c *ProviderChain) Select(ctx context.Context, req *model.GenerationRequest) *model.Generation {
	logger := logging.From(ctx)
	quotaExhausted := false

	for _, p := range c.providers {
		attempt := p.Attempt()
		attrs := []any{
			slog.String("provider", attempt.Name),
			slog.String("protocol", attempt.Protocol.String()),
			slog.String("model", attempt.Model),
		}

		if !attempt.CredentialPresent {
			logger.Debug("skip provider without credential", attrs...)
			continue
		}

		gen, err := p.Generate(ctx, req)
		if err != nil {
			if errors.Is(err, llm.ErrQuotaExhausted) {
				quotaExhausted = true
			}
			logger.Warn("provider failed, trying next", append(attrs, slog.Any("error", err))...)
			continue
		}

		logger.Info("provider selected", attrs...)
		return gen
	}

	logger.Warn("no provider available",
		slog.Any("error", ErrProvidersExhausted),
		slog.Bool("quota_exhausted", quotaExhausted))
	if quotaExhausted {
		return model.NewImmediateGeneration(apologyCreditsExhausted)
	}
	return model.NewImmediateGeneration(apologyHighLatency)
}
