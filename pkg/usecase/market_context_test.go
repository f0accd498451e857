package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/tickerchat/pkg/domain/model"
	"github.com/secmon-lab/tickerchat/pkg/usecase"
)

type stubQuotes struct {
	quotes map[model.Symbol]*model.Quote
	calls  atomic.Int32
}

func (s *stubQuotes) Quote(ctx context.Context, symbol model.Symbol) (*model.Quote, error) {
	s.calls.Add(1)
	q, ok := s.quotes[symbol]
	if !ok {
		return nil, errors.New("symbol unavailable")
	}
	return q, nil
}

type stubHeadlines struct {
	headlines []string
	err       error
}

func (s *stubHeadlines) Headlines(ctx context.Context, limit int) ([]string, error) {
	return s.headlines, s.err
}

func TestMarketContextAssemble(t *testing.T) {
	t.Run("failed symbol is omitted without affecting others", func(t *testing.T) {
		quotes := &stubQuotes{quotes: map[model.Symbol]*model.Quote{
			"^NSEI":  {Symbol: "^NSEI", Price: 22100.5, ChangePercent: 0.45},
			"^BSESN": {Symbol: "^BSESN", Price: 72800, ChangePercent: -0.12},
			"INR=X":  {Symbol: "INR=X", Price: 83.2, ChangePercent: 0.01, Currency: "INR"},
		}}
		headlines := &stubHeadlines{headlines: []string{"1", "2", "3", "4", "5", "6", "7"}}

		mc := usecase.NewMarketContext(quotes, headlines, nil)
		snapshot := mc.Assemble(context.Background())

		gt.Value(t, int(quotes.calls.Load())).Equal(4)
		gt.Value(t, len(snapshot.Quotes)).Equal(3)
		gt.Value(t, snapshot.Quotes["NIFTY 50"]).Equal("22100.50 (+0.45%)")
		gt.Value(t, snapshot.Quotes["SENSEX"]).Equal("72800.00 (-0.12%)")
		gt.Value(t, snapshot.Quotes["USD/INR"]).Equal("83.20 INR (+0.01%)")
		_, ok := snapshot.Quotes["BANK NIFTY"]
		gt.Bool(t, ok).False()
		gt.Array(t, snapshot.Headlines).Length(usecase.DefaultHeadlineLimit)
	})

	t.Run("headline failure leaves empty section", func(t *testing.T) {
		mc := usecase.NewMarketContext(&stubQuotes{}, &stubHeadlines{err: errors.New("down")}, nil)
		snapshot := mc.Assemble(context.Background())
		gt.Bool(t, snapshot.IsEmpty()).True()
	})

	t.Run("nil sources fall back to no-op", func(t *testing.T) {
		snapshot := usecase.NewMarketContext(nil, nil, nil).Assemble(context.Background())
		gt.Bool(t, snapshot.IsEmpty()).True()
	})

	t.Run("custom symbols keep configured label order", func(t *testing.T) {
		mc := usecase.NewMarketContext(nil, nil, []model.WatchedSymbol{
			{Symbol: "RELIANCE.NS", Label: "Reliance"},
			{Symbol: "TCS.NS", Label: "TCS"},
		})
		gt.Value(t, mc.Labels()).Equal([]string{"Reliance", "TCS"})
	})
}

func TestBuildChatSystemPrompt(t *testing.T) {
	t.Run("renders quotes in label order with headlines and facts", func(t *testing.T) {
		snapshot := &model.MarketSnapshot{
			Quotes:    map[string]string{"SENSEX": "72800.00 (-0.12%)", "NIFTY 50": "22100.50 (+0.45%)"},
			Headlines: []string{"RBI holds rates"},
		}
		prompt := usecase.BuildChatSystemPrompt(snapshot, []string{"NIFTY 50", "SENSEX"}, "- holds HDFC Bank")

		gt.String(t, prompt).Contains("- NIFTY 50: 22100.50 (+0.45%)")
		gt.String(t, prompt).Contains("- SENSEX: 72800.00 (-0.12%)")
		gt.String(t, prompt).Contains("- RBI holds rates")
		gt.String(t, prompt).Contains("- holds HDFC Bank")
		gt.Bool(t, strings.Index(prompt, "NIFTY 50") < strings.Index(prompt, "SENSEX")).True()
	})

	t.Run("empty sections are marked unavailable", func(t *testing.T) {
		prompt := usecase.BuildChatSystemPrompt(&model.MarketSnapshot{}, nil, "")
		gt.String(t, prompt).Contains("Market data is unavailable")
		gt.String(t, prompt).Contains("Headlines are unavailable")
		gt.String(t, prompt).NotContains("What you know about this user")
	})
}
