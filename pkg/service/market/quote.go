package market

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tickerchat/pkg/domain/interfaces"
	"github.com/secmon-lab/tickerchat/pkg/domain/model"
	"github.com/secmon-lab/tickerchat/pkg/utils/safe"
)

// ChartClient reads the latest quote from a Yahoo chart compatible API
type ChartClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ interfaces.QuoteSource = &ChartClient{}

type ChartOption func(*ChartClient)

// WithChartHTTPClient replaces the HTTP client, mainly for tests
func WithChartHTTPClient(client *http.Client) ChartOption {
	return func(c *ChartClient) {
		c.httpClient = client
	}
}

func NewChartClient(baseURL string, opts ...ChartOption) *ChartClient {
	c := &ChartClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string   `json:"symbol"`
				Currency           string   `json:"currency"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				ChartPreviousClose *float64 `json:"chartPreviousClose"`
				PreviousClose      *float64 `json:"previousClose"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *ChartClient) Quote(ctx context.Context, symbol model.Symbol) (*model.Quote, error) {
	endpoint := c.baseURL + "/v8/finance/chart/" + url.PathEscape(string(symbol)) + "?interval=1d&range=1d"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create quote request", goerr.V("symbol", symbol))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch quote", goerr.V("symbol", symbol))
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, goerr.New("quote API returned error status",
			goerr.V("symbol", symbol),
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(body)))
	}

	var chart chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, goerr.Wrap(err, "failed to decode quote response", goerr.V("symbol", symbol))
	}
	if chart.Chart.Error != nil {
		return nil, goerr.Wrap(ErrNoQuote, "quote API reported error",
			goerr.V("symbol", symbol),
			goerr.V("code", chart.Chart.Error.Code),
			goerr.V("description", chart.Chart.Error.Description))
	}
	if len(chart.Chart.Result) == 0 || chart.Chart.Result[0].Meta.RegularMarketPrice == nil {
		return nil, goerr.Wrap(ErrNoQuote, "quote response has no price", goerr.V("symbol", symbol))
	}

	meta := chart.Chart.Result[0].Meta
	quote := &model.Quote{
		Symbol:   symbol,
		Price:    *meta.RegularMarketPrice,
		Currency: meta.Currency,
	}

	prev := meta.ChartPreviousClose
	if prev == nil {
		prev = meta.PreviousClose
	}
	if prev != nil && *prev != 0 {
		quote.ChangePercent = (quote.Price - *prev) / *prev * 100
	}

	return quote, nil
}
