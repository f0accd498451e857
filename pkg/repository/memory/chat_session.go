package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tickerchat/pkg/domain/model"
)

type chatSessionRepository struct {
	mu       sync.RWMutex
	sessions map[model.ChatSessionID]*model.ChatSession
}

func newChatSessionRepository() *chatSessionRepository {
	return &chatSessionRepository{
		sessions: make(map[model.ChatSessionID]*model.ChatSession),
	}
}

func copyChatSession(s *model.ChatSession) *model.ChatSession {
	copied := *s
	return &copied
}

func (r *chatSessionRepository) Create(ctx context.Context, session *model.ChatSession) (*model.ChatSession, error) {
	if session == nil {
		return nil, goerr.New("session is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	created := copyChatSession(session)
	if created.ID == "" {
		created.ID = model.NewChatSessionID()
	}
	if _, exists := r.sessions[created.ID]; exists {
		return nil, goerr.New("session already exists", goerr.V("session_id", created.ID))
	}

	now := time.Now().UTC()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	if created.UpdatedAt.IsZero() {
		created.UpdatedAt = created.CreatedAt
	}

	r.sessions[created.ID] = created
	return copyChatSession(created), nil
}

func (r *chatSessionRepository) Get(ctx context.Context, id model.ChatSessionID) (*model.ChatSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.sessions[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "chat session not found", goerr.V("session_id", id))
	}
	return copyChatSession(s), nil
}

func (r *chatSessionRepository) Touch(ctx context.Context, id model.ChatSessionID, at time.Time, fallback *model.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, exists := r.sessions[id]; exists {
		s.UpdatedAt = at
		return nil
	}

	if fallback == nil {
		return goerr.Wrap(ErrNotFound, "chat session not found", goerr.V("session_id", id))
	}

	created := copyChatSession(fallback)
	created.ID = id
	if created.CreatedAt.IsZero() {
		created.CreatedAt = at
	}
	created.UpdatedAt = at
	r.sessions[id] = created
	return nil
}

func (r *chatSessionRepository) ListByOwner(ctx context.Context, ownerID model.OwnerID) ([]*model.ChatSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.ChatSession, 0)
	for _, s := range r.sessions {
		if s.OwnerID == ownerID {
			result = append(result, copyChatSession(s))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})

	return result, nil
}

func (r *chatSessionRepository) Delete(ctx context.Context, id model.ChatSessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; !exists {
		return goerr.Wrap(ErrNotFound, "chat session not found", goerr.V("session_id", id))
	}
	delete(r.sessions, id)
	return nil
}
