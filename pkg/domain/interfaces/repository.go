package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	ChatSession() ChatSessionRepository
	ChatMessage() ChatMessageRepository
	UserMemory() UserMemoryRepository

	Close() error
}
