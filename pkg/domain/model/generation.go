package model

import (
	"io"
	"iter"

	"github.com/secmon-lab/tickerchat/pkg/domain/types"
)

// ProviderAttempt describes one entry of the provider fallback chain
type ProviderAttempt struct {
	Name              string
	Endpoint          string
	Model             string
	Protocol          types.Protocol
	CredentialPresent bool
}

// GenerationRequest is what the orchestrator hands to each provider
type GenerationRequest struct {
	SystemPrompt string
	Turns        []Turn
	// Model overrides the provider's configured model when not empty
	Model string
}

// GenerationKind tags which field of Generation carries the output
type GenerationKind int

const (
	GenerationLineFramed GenerationKind = iota + 1
	GenerationNativeIterator
	GenerationImmediate
)

func (k GenerationKind) String() string {
	switch k {
	case GenerationLineFramed:
		return "line_framed"
	case GenerationNativeIterator:
		return "native_iterator"
	case GenerationImmediate:
		return "immediate"
	default:
		return "unknown"
	}
}

// Generation is the live output of a provider, or a final text when no provider is usable.
// Exactly one of Body, Fragments or Text is meaningful, selected by Kind.
type Generation struct {
	Kind     GenerationKind
	Provider string

	// Body is the raw line framed byte stream. The consumer must close it.
	Body io.ReadCloser
	// Fragments yields text fragments until exhausted or an error is yielded.
	Fragments iter.Seq2[string, error]
	// Text is the complete reply for GenerationImmediate
	Text string
}

// NewLineFramedGeneration wraps a line framed response body
func NewLineFramedGeneration(provider string, body io.ReadCloser) *Generation {
	return &Generation{Kind: GenerationLineFramed, Provider: provider, Body: body}
}

// NewIteratorGeneration wraps a fragment iterator
func NewIteratorGeneration(provider string, fragments iter.Seq2[string, error]) *Generation {
	return &Generation{Kind: GenerationNativeIterator, Provider: provider, Fragments: fragments}
}

// NewImmediateGeneration carries a complete, non streaming reply
func NewImmediateGeneration(text string) *Generation {
	return &Generation{Kind: GenerationImmediate, Text: text}
}
