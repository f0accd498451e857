package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/tickerchat/pkg/cli/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tickerchat.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0600)).Required()
	return path
}

func TestLoadAppConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name: "valid configuration",
			content: `
order = ["openrouter", "gemini", "secondary"]

[[provider]]
name = "openrouter"
endpoint = "https://openrouter.ai/api/v1"
model = "deepseek/deepseek-chat"
api_key_env = "OPENROUTER_API_KEY"
headers = { "HTTP-Referer" = "https://tickerchat.example" }

[distill]
providers = ["openrouter"]
model = "small-model"
timeout = "8s"

[[symbol]]
symbol = "^NSEI"
label = "NIFTY 50"

[[symbol]]
symbol = "RELIANCE.NS"
label = "Reliance"
`,
		},
		{
			name: "provider without name",
			content: `
[[provider]]
endpoint = "https://example.com"
model = "m"
`,
			wantErr: config.ErrMissingName,
		},
		{
			name: "duplicate provider",
			content: `
[[provider]]
name = "a"
endpoint = "https://example.com"
model = "m"

[[provider]]
name = "a"
endpoint = "https://example.org"
model = "m"
`,
			wantErr: config.ErrDuplicateProvider,
		},
		{
			name: "gemini cannot be declared in file",
			content: `
[[provider]]
name = "gemini"
endpoint = "https://example.com"
model = "m"
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "duplicate symbol",
			content: `
[[symbol]]
symbol = "^NSEI"
label = "A"

[[symbol]]
symbol = "^NSEI"
label = "B"
`,
			wantErr: config.ErrDuplicateSymbol,
		},
		{
			name: "invalid timeout",
			content: `
[distill]
timeout = "soon"
`,
			wantErr: config.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.LoadAppConfiguration(writeConfig(t, tt.content))
			if tt.wantErr != nil {
				gt.Error(t, err).Is(tt.wantErr)
				return
			}
			gt.NoError(t, err).Required()
			gt.Value(t, cfg.Order).Equal([]string{"openrouter", "gemini", "secondary"})
			gt.Array(t, cfg.Providers).Length(1)
			gt.Value(t, cfg.Providers[0].Headers["HTTP-Referer"]).Equal("https://tickerchat.example")
			gt.Value(t, cfg.Distill.Timeout).Equal("8s")
			gt.Array(t, cfg.Symbols).Length(2)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := config.LoadAppConfiguration(filepath.Join(t.TempDir(), "none.toml"))
		gt.Value(t, err).NotNil()
	})
}

func TestFileWithoutPath(t *testing.T) {
	var f config.File
	cfg, err := f.Configure()
	gt.NoError(t, err).Required()
	gt.Array(t, cfg.Providers).Length(0)
}
