package interfaces

import (
	"context"

	"github.com/secmon-lab/tickerchat/pkg/domain/model"
)

// UserMemoryRepository defines the interface for the per-user fact record
type UserMemoryRepository interface {
	// Get returns the owner's record. Returns ErrNotFound if none was written yet.
	Get(ctx context.Context, ownerID model.OwnerID) (*model.UserMemory, error)

	// Put replaces the owner's record in full
	Put(ctx context.Context, memory *model.UserMemory) error
}
