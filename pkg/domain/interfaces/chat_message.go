package interfaces

import (
	"context"

	"github.com/secmon-lab/tickerchat/pkg/domain/model"
)

// ChatMessageRepository defines the interface for ChatMessage data persistence
type ChatMessageRepository interface {
	// PutPair stores a user message and the assistant reply as one atomic write
	PutPair(ctx context.Context, sessionID model.ChatSessionID, user, assistant *model.ChatMessage) error

	// ListRecent returns up to limit newest messages of a session, ordered oldest first
	ListRecent(ctx context.Context, sessionID model.ChatSessionID, limit int) ([]*model.ChatMessage, error)

	// DeleteBySession removes every message of a session and returns how many were removed
	DeleteBySession(ctx context.Context, sessionID model.ChatSessionID) (int, error)
}
