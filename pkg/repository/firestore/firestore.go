package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tickerchat/pkg/domain/interfaces"
)

// ErrNotFound is returned when a keyed document does not exist
var ErrNotFound = interfaces.ErrNotFound

const (
	chatSessionsCollection = "chat_sessions"
	chatMessagesCollection = "messages"
	userMemoriesCollection = "user_memories"
)

type Firestore struct {
	client      *firestore.Client
	chatSession *chatSessionRepository
	chatMessage *chatMessageRepository
	userMemory  *userMemoryRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix prefixes every top level collection name
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.chatSession.collectionPrefix = prefix
		f.chatMessage.collectionPrefix = prefix
		f.userMemory.collectionPrefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	var client *firestore.Client
	var err error
	if databaseID == "" {
		client, err = firestore.NewClient(ctx, projectID)
	} else {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	f := &Firestore{
		client:      client,
		chatSession: newChatSessionRepository(client),
		chatMessage: newChatMessageRepository(client),
		userMemory:  newUserMemoryRepository(client),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) ChatSession() interfaces.ChatSessionRepository {
	return f.chatSession
}

func (f *Firestore) ChatMessage() interfaces.ChatMessageRepository {
	return f.chatMessage
}

func (f *Firestore) UserMemory() interfaces.UserMemoryRepository {
	return f.userMemory
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
