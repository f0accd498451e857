package config

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tickerchat/pkg/domain/interfaces"
	"github.com/secmon-lab/tickerchat/pkg/domain/types"
	"github.com/secmon-lab/tickerchat/pkg/service/llm"
	"github.com/secmon-lab/tickerchat/pkg/usecase"
	"github.com/secmon-lab/tickerchat/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const geminiProviderName = "gemini"

// lineFramedSlot is one flag configured OpenAI compatible provider
type lineFramedSlot struct {
	Name     string
	Endpoint string
	Model    string
	APIKey   string `masq:"secret"`
}

var defaultSlots = []lineFramedSlot{
	{Name: "primary", Endpoint: "https://openrouter.ai/api/v1", Model: "meta-llama/llama-3.3-70b-instruct:free"},
	{Name: "secondary", Endpoint: "https://api.groq.com/openai/v1", Model: "llama-3.3-70b-versatile"},
	{Name: "tertiary", Endpoint: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
}

// Providers holds the generation provider chain configuration
type Providers struct {
	slots          []lineFramedSlot
	order          string
	referer        string
	title          string
	distillNames   string
	distillModel   string
	distillTimeout time.Duration
	gemini         Gemini
}

// ProviderSet is the result of Configure, built once at process start
type ProviderSet struct {
	Chain          []interfaces.GenerationProvider
	Distill        []interfaces.GenerationProvider
	DistillOptions []usecase.DistillerOption
}

// Flags returns CLI flags for provider configuration
func (p *Providers) Flags() []cli.Flag {
	p.slots = make([]lineFramedSlot, len(defaultSlots))
	copy(p.slots, defaultSlots)

	var flags []cli.Flag
	for i := range p.slots {
		slot := &p.slots[i]
		env := "TICKERCHAT_" + strings.ToUpper(slot.Name) + "_"
		flags = append(flags,
			&cli.StringFlag{
				Name:        slot.Name + "-endpoint",
				Usage:       "Base URL of the " + slot.Name + " OpenAI compatible provider",
				Value:       slot.Endpoint,
				Category:    "Providers",
				Sources:     cli.EnvVars(env + "ENDPOINT"),
				Destination: &slot.Endpoint,
			},
			&cli.StringFlag{
				Name:        slot.Name + "-model",
				Usage:       "Model of the " + slot.Name + " provider",
				Value:       slot.Model,
				Category:    "Providers",
				Sources:     cli.EnvVars(env + "MODEL"),
				Destination: &slot.Model,
			},
			&cli.StringFlag{
				Name:        slot.Name + "-api-key",
				Usage:       "API key of the " + slot.Name + " provider; the provider is skipped when empty",
				Category:    "Providers",
				Sources:     cli.EnvVars(env + "API_KEY"),
				Destination: &slot.APIKey,
			},
		)
	}

	flags = append(flags,
		&cli.StringFlag{
			Name:        "provider-order",
			Usage:       "Comma separated provider names tried in order",
			Value:       "primary,secondary,gemini,tertiary",
			Category:    "Providers",
			Sources:     cli.EnvVars("TICKERCHAT_PROVIDER_ORDER"),
			Destination: &p.order,
		},
		&cli.StringFlag{
			Name:        "provider-referer",
			Usage:       "HTTP-Referer header sent to line framed providers (OpenRouter attribution)",
			Category:    "Providers",
			Sources:     cli.EnvVars("TICKERCHAT_PROVIDER_REFERER"),
			Destination: &p.referer,
		},
		&cli.StringFlag{
			Name:        "provider-title",
			Usage:       "X-Title header sent to line framed providers",
			Value:       "TickerChat",
			Category:    "Providers",
			Sources:     cli.EnvVars("TICKERCHAT_PROVIDER_TITLE"),
			Destination: &p.title,
		},
		&cli.StringFlag{
			Name:        "distill-providers",
			Usage:       "Comma separated providers used for memory distillation (default: first two credentialed line framed providers)",
			Category:    "Providers",
			Sources:     cli.EnvVars("TICKERCHAT_DISTILL_PROVIDERS"),
			Destination: &p.distillNames,
		},
		&cli.StringFlag{
			Name:        "distill-model",
			Usage:       "Model override used for memory distillation",
			Category:    "Providers",
			Sources:     cli.EnvVars("TICKERCHAT_DISTILL_MODEL"),
			Destination: &p.distillModel,
		},
		&cli.DurationFlag{
			Name:        "distill-timeout",
			Usage:       "Timeout of each distillation attempt",
			Value:       usecase.DefaultDistillTimeout,
			Category:    "Providers",
			Sources:     cli.EnvVars("TICKERCHAT_DISTILL_TIMEOUT"),
			Destination: &p.distillTimeout,
		},
	)

	return append(flags, p.gemini.Flags()...)
}

// LogValue implements slog.LogValuer. API keys are reported as present or not.
func (p Providers) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("order", p.order),
		slog.String("distill_providers", p.distillNames),
		slog.Duration("distill_timeout", p.distillTimeout),
	}
	for _, s := range p.slots {
		attrs = append(attrs, slog.Group(s.Name,
			slog.String("endpoint", s.Endpoint),
			slog.String("model", s.Model),
			slog.Bool("credential", s.APIKey != ""),
		))
	}
	attrs = append(attrs, slog.Group(geminiProviderName, attrsToAny(p.gemini.LogAttrs())...))
	return slog.GroupValue(attrs...)
}

func attrsToAny(attrs []slog.Attr) []any {
	out := make([]any, len(attrs))
	for i, a := range attrs {
		out[i] = a
	}
	return out
}

func splitNames(s string) []string {
	var names []string
	for _, n := range strings.Split(s, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

func (p *Providers) lineFramedOptions(headers map[string]string) []llm.LineFramedOption {
	var opts []llm.LineFramedOption
	if p.referer != "" {
		opts = append(opts, llm.WithHeader("HTTP-Referer", p.referer))
	}
	if p.title != "" {
		opts = append(opts, llm.WithHeader("X-Title", p.title))
	}
	for k, v := range headers {
		opts = append(opts, llm.WithHeader(k, v))
	}
	return opts
}

// Configure builds the provider chain and the distillation candidates. Entries of
// app replace flag slots of the same name and may add new names.
func (p *Providers) Configure(ctx context.Context, app *AppConfig) (*ProviderSet, error) {
	if app == nil {
		app = &AppConfig{}
	}

	byName := make(map[string]interfaces.GenerationProvider)
	logger := logging.From(ctx)
	for _, s := range p.slots {
		logger.Debug("line framed provider slot", slog.Any("slot", s))
		byName[s.Name] = llm.NewLineFramed(s.Name, s.Endpoint, s.Model, s.APIKey, p.lineFramedOptions(nil)...)
	}
	for _, e := range app.Providers {
		apiKey := ""
		if e.APIKeyEnv != "" {
			apiKey = os.Getenv(e.APIKeyEnv)
		}
		byName[e.Name] = llm.NewLineFramed(e.Name, e.Endpoint, e.Model, apiKey, p.lineFramedOptions(e.Headers)...)
	}

	client, err := p.gemini.Configure(ctx)
	if err != nil {
		return nil, err
	}
	byName[geminiProviderName] = llm.NewIterator(geminiProviderName, p.gemini.Endpoint(), p.gemini.model, client)

	order := app.Order
	if len(order) == 0 {
		order = splitNames(p.order)
	}
	chain, err := resolveProviders(byName, order)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid provider order")
	}
	if len(chain) == 0 {
		return nil, goerr.Wrap(ErrInvalidConfig, "provider order is empty")
	}

	set := &ProviderSet{Chain: chain}

	distillNames := app.Distill.Providers
	if len(distillNames) == 0 {
		distillNames = splitNames(p.distillNames)
	}
	if len(distillNames) > 0 {
		set.Distill, err = resolveProviders(byName, distillNames)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid distill providers")
		}
	} else {
		set.Distill = defaultDistillCandidates(chain)
	}

	model := p.distillModel
	if app.Distill.Model != "" {
		model = app.Distill.Model
	}
	if model != "" {
		set.DistillOptions = append(set.DistillOptions, usecase.WithDistillModel(model))
	}

	timeout := p.distillTimeout
	if app.Distill.Timeout != "" {
		// Validated when the file was loaded
		timeout, _ = time.ParseDuration(app.Distill.Timeout)
	}
	set.DistillOptions = append(set.DistillOptions, usecase.WithDistillTimeout(timeout))

	return set, nil
}

func resolveProviders(byName map[string]interfaces.GenerationProvider, names []string) ([]interfaces.GenerationProvider, error) {
	seen := make(map[string]bool)
	out := make([]interfaces.GenerationProvider, 0, len(names))
	for _, name := range names {
		provider, ok := byName[name]
		if !ok {
			return nil, goerr.Wrap(ErrUnknownProvider, "provider is not defined", goerr.V(ProviderNameKey, name))
		}
		if seen[name] {
			return nil, goerr.Wrap(ErrDuplicateProvider, "provider listed twice", goerr.V(ProviderNameKey, name))
		}
		seen[name] = true
		out = append(out, provider)
	}
	return out, nil
}

// defaultDistillCandidates picks the first two credentialed line framed providers
func defaultDistillCandidates(chain []interfaces.GenerationProvider) []interfaces.GenerationProvider {
	var out []interfaces.GenerationProvider
	for _, provider := range chain {
		attempt := provider.Attempt()
		if attempt.Protocol != types.ProtocolLineFramed || !attempt.CredentialPresent {
			continue
		}
		out = append(out, provider)
		if len(out) == 2 {
			break
		}
	}
	return out
}
