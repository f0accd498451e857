package config

import (
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// AppConfig is the optional TOML file. It declares extra line framed providers,
// the chain order, distillation settings and the watched symbols. API keys are
// never stored in the file; each provider names the environment variable instead.
type AppConfig struct {
	Order     []string        `toml:"order"`
	Providers []ProviderEntry `toml:"provider"`
	Distill   DistillEntry    `toml:"distill"`
	Symbols   []SymbolEntry   `toml:"symbol"`
}

// ProviderEntry declares one line framed provider
type ProviderEntry struct {
	Name      string            `toml:"name"`
	Endpoint  string            `toml:"endpoint"`
	Model     string            `toml:"model"`
	APIKeyEnv string            `toml:"api_key_env"`
	Headers   map[string]string `toml:"headers"`
}

// DistillEntry overrides the distillation flags
type DistillEntry struct {
	Providers []string `toml:"providers"`
	Model     string   `toml:"model"`
	Timeout   string   `toml:"timeout"`
}

// SymbolEntry is one watched market symbol
type SymbolEntry struct {
	Symbol string `toml:"symbol"`
	Label  string `toml:"label"`
}

// Validate checks if the ProviderEntry is valid
func (p *ProviderEntry) Validate() error {
	if p.Name == "" {
		return goerr.Wrap(ErrMissingName, "provider name is required")
	}
	if p.Name == geminiProviderName {
		return goerr.Wrap(ErrInvalidConfig, "gemini is configured by flags", goerr.V(ProviderNameKey, p.Name))
	}
	if p.Endpoint == "" {
		return goerr.Wrap(ErrInvalidConfig, "provider endpoint is required", goerr.V(ProviderNameKey, p.Name))
	}
	if p.Model == "" {
		return goerr.Wrap(ErrInvalidConfig, "provider model is required", goerr.V(ProviderNameKey, p.Name))
	}
	return nil
}

// Validate checks if the SymbolEntry is valid
func (s *SymbolEntry) Validate() error {
	if s.Symbol == "" || s.Label == "" {
		return goerr.Wrap(ErrInvalidSymbolEntry, "symbol and label are required", goerr.V(SymbolKey, s.Symbol))
	}
	return nil
}

// Validate checks the whole file
func (a *AppConfig) Validate() error {
	names := make(map[string]bool)
	for _, p := range a.Providers {
		if err := p.Validate(); err != nil {
			return err
		}
		if names[p.Name] {
			return goerr.Wrap(ErrDuplicateProvider, "provider declared twice", goerr.V(ProviderNameKey, p.Name))
		}
		names[p.Name] = true
	}

	symbols := make(map[string]bool)
	for _, s := range a.Symbols {
		if err := s.Validate(); err != nil {
			return err
		}
		if symbols[s.Symbol] {
			return goerr.Wrap(ErrDuplicateSymbol, "symbol declared twice", goerr.V(SymbolKey, s.Symbol))
		}
		symbols[s.Symbol] = true
	}

	if a.Distill.Timeout != "" {
		if _, err := time.ParseDuration(a.Distill.Timeout); err != nil {
			return goerr.Wrap(ErrInvalidConfig, "invalid distill timeout", goerr.V("timeout", a.Distill.Timeout))
		}
	}
	return nil
}

// LoadAppConfiguration loads the application configuration from a TOML file
func LoadAppConfiguration(path string) (*AppConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var config AppConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(err, "failed to parse TOML config", goerr.V(ConfigPathKey, path))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &config, nil
}

// File holds the --config flag
type File struct {
	path string
}

func (f *File) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to an optional TOML file declaring providers and symbols",
			Sources:     cli.EnvVars("TICKERCHAT_CONFIG"),
			Destination: &f.path,
		},
	}
}

// Configure loads the file. Without --config an empty configuration is returned.
func (f *File) Configure() (*AppConfig, error) {
	if f.path == "" {
		return &AppConfig{}, nil
	}
	return LoadAppConfiguration(f.path)
}
