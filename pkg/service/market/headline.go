package market

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tickerchat/pkg/domain/interfaces"
	"github.com/secmon-lab/tickerchat/pkg/utils/safe"
)

// NewsClient reads top business headlines from a NewsAPI compatible endpoint
type NewsClient struct {
	baseURL    string
	apiKey     string
	country    string
	httpClient *http.Client
}

var _ interfaces.HeadlineSource = &NewsClient{}

type NewsOption func(*NewsClient)

func WithNewsHTTPClient(client *http.Client) NewsOption {
	return func(c *NewsClient) {
		c.httpClient = client
	}
}

// WithCountry sets the country filter. Default is "in".
func WithCountry(country string) NewsOption {
	return func(c *NewsClient) {
		c.country = country
	}
}

func NewNewsClient(baseURL, apiKey string, opts ...NewsOption) *NewsClient {
	c := &NewsClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		country:    "in",
		httpClient: newHTTPClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type newsResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Title string `json:"title"`
	} `json:"articles"`
}

func (c *NewsClient) Headlines(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}

	q := url.Values{}
	q.Set("category", "business")
	q.Set("country", c.country)
	q.Set("pageSize", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/top-headlines?"+q.Encode(), nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create headline request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch headlines")
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, goerr.New("headline API returned error status",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(body)))
	}

	var news newsResponse
	if err := json.NewDecoder(resp.Body).Decode(&news); err != nil {
		return nil, goerr.Wrap(err, "failed to decode headline response")
	}
	if news.Status != "" && news.Status != "ok" {
		return nil, goerr.New("headline API reported error",
			goerr.V("status", news.Status),
			goerr.V("message", news.Message))
	}

	headlines := make([]string, 0, limit)
	for _, a := range news.Articles {
		title := strings.TrimSpace(a.Title)
		if title == "" || title == "[Removed]" {
			continue
		}
		headlines = append(headlines, title)
		if len(headlines) == limit {
			break
		}
	}
	return headlines, nil
}
