package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tickerchat/pkg/domain/model"
)

type chatMessageRepository struct {
	mu       sync.RWMutex
	messages map[model.ChatSessionID][]*model.ChatMessage
}

func newChatMessageRepository() *chatMessageRepository {
	return &chatMessageRepository{
		messages: make(map[model.ChatSessionID][]*model.ChatMessage),
	}
}

func copyChatMessage(m *model.ChatMessage) *model.ChatMessage {
	copied := *m
	return &copied
}

func prepareChatMessage(sessionID model.ChatSessionID, m *model.ChatMessage, now time.Time) *model.ChatMessage {
	prepared := copyChatMessage(m)
	if prepared.ID == "" {
		prepared.ID = model.NewChatMessageID()
	}
	prepared.SessionID = sessionID
	if prepared.CreatedAt.IsZero() {
		prepared.CreatedAt = now
	}
	return prepared
}

func (r *chatMessageRepository) PutPair(ctx context.Context, sessionID model.ChatSessionID, user, assistant *model.ChatMessage) error {
	if user == nil || assistant == nil {
		return goerr.New("both messages of a pair are required", goerr.V("session_id", sessionID))
	}

	now := time.Now().UTC()
	u := prepareChatMessage(sessionID, user, now)
	a := prepareChatMessage(sessionID, assistant, now)

	r.mu.Lock()
	defer r.mu.Unlock()

	// Timestamps within a session are kept strictly increasing so ordering by
	// CreatedAt matches write order even within one clock tick.
	stored := r.messages[sessionID]
	if n := len(stored); n > 0 && !u.CreatedAt.After(stored[n-1].CreatedAt) {
		u.CreatedAt = stored[n-1].CreatedAt.Add(time.Microsecond)
	}
	if !a.CreatedAt.After(u.CreatedAt) {
		a.CreatedAt = u.CreatedAt.Add(time.Microsecond)
	}

	r.messages[sessionID] = append(stored, u, a)
	return nil
}

func (r *chatMessageRepository) ListRecent(ctx context.Context, sessionID model.ChatSessionID, limit int) ([]*model.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.messages[sessionID]
	result := make([]*model.ChatMessage, 0, len(stored))
	for _, m := range stored {
		result = append(result, copyChatMessage(m))
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

func (r *chatMessageRepository) DeleteBySession(ctx context.Context, sessionID model.ChatSessionID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.messages[sessionID])
	delete(r.messages, sessionID)
	return n, nil
}
