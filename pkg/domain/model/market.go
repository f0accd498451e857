package model

// Symbol is a market symbol understood by the quote source, e.g. "^NSEI"
type Symbol string

// WatchedSymbol pairs a quote source symbol with the label shown to the model
type WatchedSymbol struct {
	Symbol Symbol
	Label  string
}

// Quote is one market quote returned by a quote source
type Quote struct {
	Symbol        Symbol
	Price         float64
	ChangePercent float64
	Currency      string
}

// MarketSnapshot is assembled fresh per turn and discarded after the prompt is built
type MarketSnapshot struct {
	// Quotes maps a display label to a rendered price line
	Quotes    map[string]string
	Headlines []string
}

// IsEmpty reports whether no quote and no headline could be fetched
func (s *MarketSnapshot) IsEmpty() bool {
	return s == nil || (len(s.Quotes) == 0 && len(s.Headlines) == 0)
}
