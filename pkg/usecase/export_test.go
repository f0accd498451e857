package usecase

import (
	"context"
	"time"

	"github.com/secmon-lab/tickerchat/pkg/domain/model"
)

// ParseFrame is exported for testing
func ParseFrame(line string) string {
	return parseFrame(context.Background(), line)
}

// EffectiveText is exported for testing
var EffectiveText = effectiveText

// BuildChatSystemPrompt is exported for testing
var BuildChatSystemPrompt = buildChatSystemPrompt

// BuildDistillPrompt is exported for testing
var BuildDistillPrompt = buildDistillPrompt

// BearerToken is exported for testing
var BearerToken = bearerToken

// SetDispatcher replaces the detached task runner for testing
func (uc *ChatUseCase) SetDispatcher(d Dispatcher) {
	uc.dispatch = d
}

// SetNow replaces the clock for testing
func (uc *ChatUseCase) SetNow(now func() time.Time) {
	uc.now = now
}

// SetJWTClock replaces the clock used for the JWKS cache
func (p *JWTIdentity) SetJWTClock(now func() time.Time) {
	p.now = now
}

// SyncDispatch runs the handler inline and records its error
func SyncDispatch(errs *[]error) Dispatcher {
	return func(ctx context.Context, handler func(ctx context.Context) error) {
		if err := handler(ctx); err != nil {
			*errs = append(*errs, err)
		}
	}
}

// FormatQuote is exported for testing
func FormatQuote(q *model.Quote) string {
	return formatQuote(q)
}
