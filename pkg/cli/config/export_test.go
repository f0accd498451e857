package config

import "time"

// ParseSymbols is exported for testing
var ParseSymbols = parseSymbols

// NewGeminiForTest creates a Gemini config for testing purposes
func NewGeminiForTest(projectID, location, model string) *Gemini {
	return &Gemini{
		projectID: projectID,
		location:  location,
		model:     model,
	}
}

// NewProvidersForTest creates a Providers config with the default slots
func NewProvidersForTest(order string, apiKeys map[string]string) *Providers {
	p := &Providers{
		order:          order,
		distillTimeout: 12 * time.Second,
		slots:          make([]lineFramedSlot, len(defaultSlots)),
	}
	copy(p.slots, defaultSlots)
	for i := range p.slots {
		p.slots[i].APIKey = apiKeys[p.slots[i].Name]
	}
	return p
}

// SetDistill sets distillation flags for testing
func (p *Providers) SetDistill(names, model string) {
	p.distillNames = names
	p.distillModel = model
}

// NewAuthForTest creates an Auth config for testing purposes
func NewAuthForTest(jwksURL, secret, noAuth string) *Auth {
	return &Auth{jwksURL: jwksURL, jwtSecret: secret, noAuth: noAuth}
}

// NewMarketForTest creates a Market config for testing purposes
func NewMarketForTest(quoteEndpoint, newsEndpoint, newsAPIKey, symbols string) *Market {
	return &Market{
		quoteEndpoint: quoteEndpoint,
		newsEndpoint:  newsEndpoint,
		newsAPIKey:    newsAPIKey,
		newsCountry:   "in",
		symbols:       symbols,
	}
}

// SetNewsRefresh sets the headline cache interval for testing
func (m *Market) SetNewsRefresh(d time.Duration) {
	m.newsRefresh = d
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}
