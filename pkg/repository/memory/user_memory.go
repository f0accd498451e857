package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tickerchat/pkg/domain/model"
)

type userMemoryRepository struct {
	mu      sync.RWMutex
	records map[model.OwnerID]*model.UserMemory
}

func newUserMemoryRepository() *userMemoryRepository {
	return &userMemoryRepository{
		records: make(map[model.OwnerID]*model.UserMemory),
	}
}

func (r *userMemoryRepository) Get(ctx context.Context, ownerID model.OwnerID) (*model.UserMemory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, exists := r.records[ownerID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "user memory not found", goerr.V("owner_id", ownerID))
	}
	copied := *m
	return &copied, nil
}

func (r *userMemoryRepository) Put(ctx context.Context, memory *model.UserMemory) error {
	if memory == nil || memory.OwnerID == "" {
		return goerr.New("user memory requires an owner")
	}

	stored := *memory
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[memory.OwnerID] = &stored
	return nil
}
