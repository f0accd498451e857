package memory

import (
	"github.com/secmon-lab/tickerchat/pkg/domain/interfaces"
)

// ErrNotFound is returned when a keyed entity does not exist
var ErrNotFound = interfaces.ErrNotFound

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory is an in-process repository for development and tests
type Memory struct {
	chatSession *chatSessionRepository
	chatMessage *chatMessageRepository
	userMemory  *userMemoryRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		chatSession: newChatSessionRepository(),
		chatMessage: newChatMessageRepository(),
		userMemory:  newUserMemoryRepository(),
	}
}

func (m *Memory) ChatSession() interfaces.ChatSessionRepository {
	return m.chatSession
}

func (m *Memory) ChatMessage() interfaces.ChatMessageRepository {
	return m.chatMessage
}

func (m *Memory) UserMemory() interfaces.UserMemoryRepository {
	return m.userMemory
}

func (m *Memory) Close() error {
	return nil
}
