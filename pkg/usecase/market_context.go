package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/secmon-lab/tickerchat/pkg/domain/interfaces"
	"github.com/secmon-lab/tickerchat/pkg/domain/model"
	"github.com/secmon-lab/tickerchat/pkg/service/market"
	"github.com/secmon-lab/tickerchat/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// DefaultHeadlineLimit is the number of headlines put into the system prompt
const DefaultHeadlineLimit = 5

// DefaultWatchedSymbols is the symbol set used when none is configured
func DefaultWatchedSymbols() []model.WatchedSymbol {
	return []model.WatchedSymbol{
		{Symbol: "^NSEI", Label: "NIFTY 50"},
		{Symbol: "^BSESN", Label: "SENSEX"},
		{Symbol: "^NSEBANK", Label: "BANK NIFTY"},
		{Symbol: "INR=X", Label: "USD/INR"},
	}
}

// MarketContext gathers quotes and headlines for one chat turn
type MarketContext struct {
	quotes        interfaces.QuoteSource
	headlines     interfaces.HeadlineSource
	symbols       []model.WatchedSymbol
	headlineLimit int
}

// NewMarketContext creates a context assembler. Nil sources are replaced with no-op ones.
func NewMarketContext(quotes interfaces.QuoteSource, headlines interfaces.HeadlineSource, symbols []model.WatchedSymbol) *MarketContext {
	if quotes == nil {
		quotes = market.NopQuoteSource{}
	}
	if headlines == nil {
		headlines = market.NopHeadlineSource{}
	}
	if len(symbols) == 0 {
		symbols = DefaultWatchedSymbols()
	}
	return &MarketContext{
		quotes:        quotes,
		headlines:     headlines,
		symbols:       symbols,
		headlineLimit: DefaultHeadlineLimit,
	}
}

// Assemble fetches every symbol and the headlines concurrently. Individual failures
// only drop the affected line; Assemble itself never fails.
func (m *MarketContext) Assemble(ctx context.Context) *model.MarketSnapshot {
	logger := logging.From(ctx)
	snapshot := &model.MarketSnapshot{
		Quotes: make(map[string]string, len(m.symbols)),
	}

	var mu sync.Mutex
	// Goroutines return nil so one failed fetch never cancels the others
	var eg errgroup.Group

	for _, ws := range m.symbols {
		eg.Go(func() error {
			quote, err := m.quotes.Quote(ctx, ws.Symbol)
			if err != nil {
				logger.Warn("failed to fetch quote",
					slog.String("symbol", string(ws.Symbol)),
					slog.Any("error", err))
				return nil
			}

			line := formatQuote(quote)
			mu.Lock()
			snapshot.Quotes[ws.Label] = line
			mu.Unlock()
			return nil
		})
	}

	eg.Go(func() error {
		headlines, err := m.headlines.Headlines(ctx, m.headlineLimit)
		if err != nil {
			logger.Warn("failed to fetch headlines", slog.Any("error", err))
			return nil
		}
		if len(headlines) > m.headlineLimit {
			headlines = headlines[:m.headlineLimit]
		}
		mu.Lock()
		snapshot.Headlines = headlines
		mu.Unlock()
		return nil
	})

	_ = eg.Wait()

	return snapshot
}

// Labels returns the display labels in configured order
func (m *MarketContext) Labels() []string {
	labels := make([]string, 0, len(m.symbols))
	for _, ws := range m.symbols {
		labels = append(labels, ws.Label)
	}
	return labels
}

func formatQuote(q *model.Quote) string {
	price := fmt.Sprintf("%.2f", q.Price)
	if q.Currency != "" {
		price += " " + q.Currency
	}
	return fmt.Sprintf("%s (%+.2f%%)", price, q.ChangePercent)
}
