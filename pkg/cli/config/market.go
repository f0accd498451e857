package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tickerchat/pkg/domain/interfaces"
	"github.com/secmon-lab/tickerchat/pkg/domain/model"
	"github.com/secmon-lab/tickerchat/pkg/service/market"
	"github.com/secmon-lab/tickerchat/pkg/service/worker"
	"github.com/urfave/cli/v3"
)

// Market holds configuration of the quote and headline sources
type Market struct {
	quoteEndpoint string
	newsEndpoint  string
	newsAPIKey    string
	newsCountry   string
	newsRefresh   time.Duration
	symbols       string
}

// Flags returns CLI flags for market data configuration
func (m *Market) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "quote-endpoint",
			Usage:       "Base URL of a Yahoo chart compatible quote API; empty disables quotes",
			Value:       "https://query1.finance.yahoo.com",
			Category:    "Market",
			Sources:     cli.EnvVars("TICKERCHAT_QUOTE_ENDPOINT"),
			Destination: &m.quoteEndpoint,
		},
		&cli.StringFlag{
			Name:        "news-endpoint",
			Usage:       "Base URL of a NewsAPI compatible headline API",
			Value:       "https://newsapi.org",
			Category:    "Market",
			Sources:     cli.EnvVars("TICKERCHAT_NEWS_ENDPOINT"),
			Destination: &m.newsEndpoint,
		},
		&cli.StringFlag{
			Name:        "news-api-key",
			Usage:       "API key of the headline API; headlines are disabled when empty",
			Category:    "Market",
			Sources:     cli.EnvVars("TICKERCHAT_NEWS_API_KEY"),
			Destination: &m.newsAPIKey,
		},
		&cli.StringFlag{
			Name:        "news-country",
			Usage:       "Country filter of top headlines",
			Value:       "in",
			Category:    "Market",
			Sources:     cli.EnvVars("TICKERCHAT_NEWS_COUNTRY"),
			Destination: &m.newsCountry,
		},
		&cli.DurationFlag{
			Name:        "news-refresh-interval",
			Usage:       "Serve headlines from a cache refreshed at this interval; 0 fetches on every turn",
			Category:    "Market",
			Sources:     cli.EnvVars("TICKERCHAT_NEWS_REFRESH_INTERVAL"),
			Destination: &m.newsRefresh,
		},
		&cli.StringFlag{
			Name:        "market-symbols",
			Usage:       "Comma separated SYMBOL=Label pairs put into the system prompt",
			Value:       "^NSEI=NIFTY 50,^BSESN=SENSEX,^NSEBANK=BANK NIFTY,INR=X=USD/INR",
			Category:    "Market",
			Sources:     cli.EnvVars("TICKERCHAT_MARKET_SYMBOLS"),
			Destination: &m.symbols,
		},
	}
}

// LogValue implements slog.LogValuer
func (m Market) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("quote_endpoint", m.quoteEndpoint),
		slog.String("news_endpoint", m.newsEndpoint),
		slog.Bool("news_api_key", m.newsAPIKey != ""),
		slog.Duration("news_refresh_interval", m.newsRefresh),
		slog.String("symbols", m.symbols),
	)
}

// parseSymbols reads SYMBOL=Label pairs. The label follows the last '=' so that
// symbols such as INR=X keep their own '='.
func parseSymbols(s string) ([]model.WatchedSymbol, error) {
	var out []model.WatchedSymbol
	seen := make(map[model.Symbol]bool)
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		idx := strings.LastIndex(entry, "=")
		if idx <= 0 || idx == len(entry)-1 {
			return nil, goerr.Wrap(ErrInvalidSymbolEntry, "expected SYMBOL=Label", goerr.V(SymbolKey, entry))
		}
		symbol := model.Symbol(strings.TrimSpace(entry[:idx]))
		if seen[symbol] {
			return nil, goerr.Wrap(ErrDuplicateSymbol, "symbol listed twice", goerr.V(SymbolKey, symbol))
		}
		seen[symbol] = true
		out = append(out, model.WatchedSymbol{Symbol: symbol, Label: strings.TrimSpace(entry[idx+1:])})
	}
	return out, nil
}

// MarketSources is the result of Market.Configure
type MarketSources struct {
	Quotes    interfaces.QuoteSource
	Headlines interfaces.HeadlineSource
	Symbols   []model.WatchedSymbol

	// HeadlineWorker is set when headlines are cached; the caller starts and stops it
	HeadlineWorker *worker.HeadlineRefreshWorker
}

// Configure builds the sources. Symbols from app take precedence over the flag.
func (m *Market) Configure(app *AppConfig) (*MarketSources, error) {
	sources := &MarketSources{
		Quotes:    market.NopQuoteSource{},
		Headlines: market.NopHeadlineSource{},
	}

	if m.quoteEndpoint != "" {
		sources.Quotes = market.NewChartClient(m.quoteEndpoint)
	}
	if m.newsEndpoint != "" && m.newsAPIKey != "" {
		sources.Headlines = market.NewNewsClient(m.newsEndpoint, m.newsAPIKey, market.WithCountry(m.newsCountry))
		if m.newsRefresh > 0 {
			sources.HeadlineWorker = worker.NewHeadlineRefreshWorker(sources.Headlines, m.newsRefresh)
			sources.Headlines = sources.HeadlineWorker
		}
	}

	if app != nil && len(app.Symbols) > 0 {
		for _, s := range app.Symbols {
			sources.Symbols = append(sources.Symbols, model.WatchedSymbol{Symbol: model.Symbol(s.Symbol), Label: s.Label})
		}
		return sources, nil
	}

	symbols, err := parseSymbols(m.symbols)
	if err != nil {
		return nil, err
	}
	sources.Symbols = symbols
	return sources, nil
}
