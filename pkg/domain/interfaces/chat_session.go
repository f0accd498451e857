package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/tickerchat/pkg/domain/model"
)

// ChatSessionRepository defines the interface for ChatSession data persistence
type ChatSessionRepository interface {
	// Create stores a new session. ID, CreatedAt and UpdatedAt are filled when empty.
	Create(ctx context.Context, session *model.ChatSession) (*model.ChatSession, error)

	// Get retrieves a session by ID. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, id model.ChatSessionID) (*model.ChatSession, error)

	// Touch bumps UpdatedAt of an existing session to at. When the session does not
	// exist it is created from fallback so that a caller supplied ID stays stable.
	Touch(ctx context.Context, id model.ChatSessionID, at time.Time, fallback *model.ChatSession) error

	// ListByOwner returns the owner's sessions ordered by UpdatedAt descending
	ListByOwner(ctx context.Context, ownerID model.OwnerID) ([]*model.ChatSession, error)

	// Delete removes a session document. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id model.ChatSessionID) error
}
