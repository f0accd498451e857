package usecase

import "errors"

// Sentinel errors for use case layer
var (
	ErrSessionNotFound    = errors.New("chat session not found")
	ErrInvalidSessionID   = errors.New("invalid chat session id")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrNoUserMessage      = errors.New("no user message in request")
	ErrProvidersExhausted = errors.New("all generation providers failed")
	ErrDistillFailed      = errors.New("memory distillation failed")
	ErrEmptyDistillation  = errors.New("distillation produced no facts")
	ErrInvalidToken       = errors.New("invalid identity token")
)

// Context keys for error values
const (
	SessionIDKey = "session_id"
	OwnerIDKey   = "owner_id"
	ProviderKey  = "provider"
)
