package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tickerchat/pkg/domain/interfaces"
	"github.com/secmon-lab/tickerchat/pkg/domain/model"
	"github.com/secmon-lab/tickerchat/pkg/domain/types"
	"github.com/secmon-lab/tickerchat/pkg/utils/safe"
)

const (
	defaultConnectTimeout = 30 * time.Second
	maxErrorBodyBytes     = 4096
)

// LineFramed calls an OpenAI compatible /chat/completions endpoint with stream=true.
// OpenRouter, Groq and OpenAI itself all answer with "data: {json}" lines.
type LineFramed struct {
	name       string
	endpoint   string
	model      string
	apiKey     string
	headers    map[string]string
	httpClient *http.Client
}

var _ interfaces.GenerationProvider = &LineFramed{}

// LineFramedOption configures a LineFramed provider
type LineFramedOption func(*LineFramed)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) LineFramedOption {
	return func(p *LineFramed) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithHeader adds a static request header, e.g. OpenRouter's HTTP-Referer
func WithHeader(key, value string) LineFramedOption {
	return func(p *LineFramed) {
		if key != "" && value != "" {
			p.headers[key] = value
		}
	}
}

// NewLineFramed creates a line framed provider. An empty apiKey yields a provider
// that reports no credential and is skipped by the chain.
func NewLineFramed(name, endpoint, model, apiKey string, opts ...LineFramedOption) *LineFramed {
	p := &LineFramed{
		name:     name,
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		apiKey:   apiKey,
		headers:  map[string]string{},
		httpClient: &http.Client{
			// No overall timeout: the body is streamed for as long as the model writes.
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: defaultConnectTimeout,
				TLSHandshakeTimeout:   10 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *LineFramed) Attempt() model.ProviderAttempt {
	return model.ProviderAttempt{
		Name:              p.name,
		Endpoint:          p.endpoint,
		Model:             p.model,
		Protocol:          types.ProtocolLineFramed,
		CredentialPresent: p.apiKey != "",
	}
}

type chatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string                  `json:"model"`
	Messages []chatCompletionMessage `json:"messages"`
	Stream   bool                    `json:"stream"`
}

func buildChatCompletionRequest(modelName string, req *model.GenerationRequest) *chatCompletionRequest {
	body := &chatCompletionRequest{
		Model:    modelName,
		Stream:   true,
		Messages: make([]chatCompletionMessage, 0, len(req.Turns)+1),
	}
	if req.SystemPrompt != "" {
		body.Messages = append(body.Messages, chatCompletionMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, turn := range req.Turns {
		body.Messages = append(body.Messages, chatCompletionMessage{Role: turn.Role.String(), Content: turn.Content})
	}
	return body
}

// Generate issues the streaming request. Any non-2xx answer is returned as an error
// wrapping ErrRateLimited, ErrQuotaExhausted or ErrUpstream.
func (p *LineFramed) Generate(ctx context.Context, req *model.GenerationRequest) (*model.Generation, error) {
	if p.apiKey == "" {
		return nil, goerr.New("provider has no credential", goerr.V("provider", p.name))
	}

	modelName := p.model
	if req.Model != "" {
		modelName = req.Model
	}

	raw, err := json.Marshal(buildChatCompletionRequest(modelName, req))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal chat completion request", goerr.V("provider", p.name))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request", goerr.V("provider", p.name))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	for k, v := range p.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, goerr.Wrap(ErrUpstream, "failed to send request",
			goerr.V("provider", p.name),
			goerr.V("cause", err.Error()))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer safe.Close(ctx, resp.Body)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, goerr.Wrap(classifyStatus(resp.StatusCode, string(body)), "provider returned error status",
			goerr.V("provider", p.name),
			goerr.V("status", resp.StatusCode),
			goerr.V("body", strings.TrimSpace(string(body))))
	}

	return model.NewLineFramedGeneration(p.name, resp.Body), nil
}
