package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrInvalidConfig      = goerr.New("invalid configuration")
	ErrMissingName        = goerr.New("name is required")
	ErrDuplicateProvider  = goerr.New("duplicate provider name")
	ErrUnknownProvider    = goerr.New("unknown provider name")
	ErrDuplicateSymbol    = goerr.New("duplicate market symbol")
	ErrConflictingAuth    = goerr.New("only one of jwks url, jwt secret or no-auth can be set")
	ErrInvalidSymbolEntry = goerr.New("invalid market symbol entry")
)

// Context keys for error values
const (
	ConfigPathKey   = "config_path"
	ProviderNameKey = "provider"
	SymbolKey       = "symbol"
)
