package config_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/tickerchat/pkg/cli/config"
	"github.com/secmon-lab/tickerchat/pkg/domain/interfaces"
	"github.com/secmon-lab/tickerchat/pkg/domain/model"
	"github.com/secmon-lab/tickerchat/pkg/service/market"
)

func TestParseSymbols(t *testing.T) {
	got, err := config.ParseSymbols("^NSEI=NIFTY 50, ^BSESN=SENSEX ,INR=X=USD/INR,")
	gt.NoError(t, err).Required()
	gt.Value(t, got).Equal([]model.WatchedSymbol{
		{Symbol: "^NSEI", Label: "NIFTY 50"},
		{Symbol: "^BSESN", Label: "SENSEX"},
		{Symbol: "INR=X", Label: "USD/INR"},
	})

	_, err = config.ParseSymbols("^NSEI")
	gt.Error(t, err).Is(config.ErrInvalidSymbolEntry)

	_, err = config.ParseSymbols("A=x,A=y")
	gt.Error(t, err).Is(config.ErrDuplicateSymbol)
}

func TestMarketConfigure(t *testing.T) {
	t.Run("headlines disabled without api key", func(t *testing.T) {
		m := config.NewMarketForTest("https://quotes.example", "https://news.example", "", "^NSEI=NIFTY 50")
		sources, err := m.Configure(nil)
		gt.NoError(t, err).Required()

		_, isNop := sources.Headlines.(market.NopHeadlineSource)
		gt.Bool(t, isNop).True()
		_, isChart := sources.Quotes.(*market.ChartClient)
		gt.Bool(t, isChart).True()
		gt.Array(t, sources.Symbols).Length(1)
		gt.Value(t, sources.HeadlineWorker).Nil()
	})

	t.Run("headline cache wraps the news client", func(t *testing.T) {
		m := config.NewMarketForTest("", "https://news.example", "key", "^NSEI=NIFTY 50")
		m.SetNewsRefresh(5 * time.Minute)
		sources, err := m.Configure(nil)
		gt.NoError(t, err).Required()
		gt.Value(t, sources.HeadlineWorker).NotNil()
		gt.Value(t, sources.Headlines).Equal(interfaces.HeadlineSource(sources.HeadlineWorker))
	})

	t.Run("file symbols win", func(t *testing.T) {
		m := config.NewMarketForTest("", "", "", "^NSEI=NIFTY 50")
		sources, err := m.Configure(&config.AppConfig{
			Symbols: []config.SymbolEntry{{Symbol: "TCS.NS", Label: "TCS"}},
		})
		gt.NoError(t, err).Required()
		gt.Value(t, sources.Symbols).Equal([]model.WatchedSymbol{{Symbol: "TCS.NS", Label: "TCS"}})
		_, isNop := sources.Quotes.(market.NopQuoteSource)
		gt.Bool(t, isNop).True()
	})
}
