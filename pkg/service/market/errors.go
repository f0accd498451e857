package market

import "errors"

var (
	ErrNotConfigured = errors.New("market source is not configured")
	ErrNoQuote       = errors.New("quote not available")
)
