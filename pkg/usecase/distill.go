package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tickerchat/pkg/domain/interfaces"
	"github.com/secmon-lab/tickerchat/pkg/domain/model"
	"github.com/secmon-lab/tickerchat/pkg/utils/logging"
)

// DefaultDistillTimeout bounds each distillation attempt
const DefaultDistillTimeout = 12 * time.Second

// Distiller folds one exchange into the caller's stored facts
type Distiller struct {
	repo       interfaces.Repository
	candidates []interfaces.GenerationProvider
	model      string
	timeout    time.Duration
	now        func() time.Time
}

type DistillerOption func(*Distiller)

// WithDistillModel overrides the model of every candidate
func WithDistillModel(name string) DistillerOption {
	return func(d *Distiller) {
		d.model = name
	}
}

func WithDistillTimeout(timeout time.Duration) DistillerOption {
	return func(d *Distiller) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

func NewDistiller(repo interfaces.Repository, candidates []interfaces.GenerationProvider, opts ...DistillerOption) *Distiller {
	d := &Distiller{
		repo:       repo,
		candidates: candidates,
		timeout:    DefaultDistillTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Distill tries each candidate in order and replaces the stored facts with the
// first non-empty answer
func (d *Distiller) Distill(ctx context.Context, owner model.OwnerID, userText, assistantText string) error {
	logger := logging.From(ctx)

	var prior string
	mem, err := d.repo.UserMemory().Get(ctx, owner)
	switch {
	case err == nil:
		prior = mem.Facts
	case errors.Is(err, interfaces.ErrNotFound):
	default:
		return goerr.Wrap(err, "failed to get user memory", goerr.V(OwnerIDKey, owner))
	}

	prompt, err := buildDistillPrompt(prior, userText, assistantText)
	if err != nil {
		return goerr.Wrap(err, "failed to render distill prompt")
	}
	req := &model.GenerationRequest{
		Turns: []model.Turn{model.UserTurn(prompt)},
		Model: d.model,
	}

	for _, c := range d.candidates {
		attempt := c.Attempt()
		if !attempt.CredentialPresent {
			continue
		}

		facts, err := d.attempt(ctx, c, req)
		if err != nil {
			logger.Warn("distillation attempt failed",
				slog.String("provider", attempt.Name),
				slog.Any("error", err))
			continue
		}

		if err := d.repo.UserMemory().Put(ctx, &model.UserMemory{
			OwnerID:   owner,
			Facts:     facts,
			UpdatedAt: d.now().UTC(),
		}); err != nil {
			return goerr.Wrap(err, "failed to put user memory", goerr.V(OwnerIDKey, owner))
		}

		logger.Debug("user memory updated",
			slog.String("provider", attempt.Name),
			slog.Int("facts_length", len(facts)))
		return nil
	}

	return goerr.Wrap(ErrDistillFailed, "no distillation candidate succeeded", goerr.V(OwnerIDKey, owner))
}

func (d *Distiller) attempt(ctx context.Context, p interfaces.GenerationProvider, req *model.GenerationRequest) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	gen, err := p.Generate(attemptCtx, req)
	if err != nil {
		return "", err
	}

	result := Normalize(attemptCtx, gen, io.Discard)
	if result.Interrupted {
		return "", goerr.New("distillation stream interrupted")
	}

	facts := strings.TrimSpace(result.Text)
	if facts == "" {
		return "", ErrEmptyDistillation
	}
	return facts, nil
}
