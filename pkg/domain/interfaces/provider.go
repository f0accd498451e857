package interfaces

import (
	"context"

	"github.com/secmon-lab/tickerchat/pkg/domain/model"
)

// GenerationProvider is one interchangeable LLM backend of the fallback chain
type GenerationProvider interface {
	// Attempt describes the provider. Providers without a credential are never called.
	Attempt() model.ProviderAttempt

	// Generate starts a streaming generation. A returned Generation is owned by the caller.
	Generate(ctx context.Context, req *model.GenerationRequest) (*model.Generation, error)
}
