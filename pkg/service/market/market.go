package market

import (
	"context"
	"net/http"
	"time"

	"github.com/secmon-lab/tickerchat/pkg/domain/interfaces"
	"github.com/secmon-lab/tickerchat/pkg/domain/model"
)

const (
	defaultTimeout    = 5 * time.Second
	maxErrorBodyBytes = 4096
	userAgent         = "tickerchat/1.0"
)

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// NopQuoteSource is used when no quote endpoint is configured. Every symbol fails.
type NopQuoteSource struct{}

var _ interfaces.QuoteSource = NopQuoteSource{}

func (NopQuoteSource) Quote(ctx context.Context, symbol model.Symbol) (*model.Quote, error) {
	return nil, ErrNotConfigured
}

// NopHeadlineSource is used when no headline endpoint is configured
type NopHeadlineSource struct{}

var _ interfaces.HeadlineSource = NopHeadlineSource{}

func (NopHeadlineSource) Headlines(ctx context.Context, limit int) ([]string, error) {
	return nil, nil
}
