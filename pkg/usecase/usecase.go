package usecase

import (
	"github.com/secmon-lab/tickerchat/pkg/domain/interfaces"
	"github.com/secmon-lab/tickerchat/pkg/domain/model"
)

type UseCases struct {
	repo           interfaces.Repository
	providers      []interfaces.GenerationProvider
	distillers     []interfaces.GenerationProvider
	distillOptions []DistillerOption
	quotes         interfaces.QuoteSource
	headlines      interfaces.HeadlineSource
	symbols        []model.WatchedSymbol

	Chat     *ChatUseCase
	Identity IdentityProvider
}

type Option func(*UseCases)

// WithProviders sets the ordered generation provider chain
func WithProviders(providers ...interfaces.GenerationProvider) Option {
	return func(uc *UseCases) {
		uc.providers = providers
	}
}

// WithDistillers sets the distillation candidates. Without it, memory is not distilled.
func WithDistillers(candidates []interfaces.GenerationProvider, opts ...DistillerOption) Option {
	return func(uc *UseCases) {
		uc.distillers = candidates
		uc.distillOptions = opts
	}
}

func WithMarketSources(quotes interfaces.QuoteSource, headlines interfaces.HeadlineSource) Option {
	return func(uc *UseCases) {
		uc.quotes = quotes
		uc.headlines = headlines
	}
}

func WithSymbols(symbols []model.WatchedSymbol) Option {
	return func(uc *UseCases) {
		uc.symbols = symbols
	}
}

func WithIdentity(identity IdentityProvider) Option {
	return func(uc *UseCases) {
		uc.Identity = identity
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:     repo,
		Identity: AnonymousIdentity{},
	}

	for _, opt := range opts {
		opt(uc)
	}

	var distiller *Distiller
	if len(uc.distillers) > 0 {
		distiller = NewDistiller(repo, uc.distillers, uc.distillOptions...)
	}

	uc.Chat = NewChatUseCase(
		repo,
		NewMarketContext(uc.quotes, uc.headlines, uc.symbols),
		NewProviderChain(uc.providers...),
		distiller,
	)

	return uc
}
