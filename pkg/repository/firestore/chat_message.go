package firestore

import (
	"context"
	"slices"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tickerchat/pkg/domain/interfaces"
	"github.com/secmon-lab/tickerchat/pkg/domain/model"
	"github.com/secmon-lab/tickerchat/pkg/domain/types"
	"google.golang.org/api/iterator"
)

type chatMessageDoc struct {
	ID        string    `firestore:"ID"`
	OwnerID   string    `firestore:"OwnerID"`
	SessionID string    `firestore:"SessionID"`
	Role      string    `firestore:"Role"`
	Content   string    `firestore:"Content"`
	CreatedAt time.Time `firestore:"CreatedAt"`
}

func toChatMessageDoc(m *model.ChatMessage) *chatMessageDoc {
	return &chatMessageDoc{
		ID:        string(m.ID),
		OwnerID:   string(m.OwnerID),
		SessionID: string(m.SessionID),
		Role:      m.Role.String(),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func fromChatMessageDoc(d *chatMessageDoc) *model.ChatMessage {
	return &model.ChatMessage{
		ID:        model.ChatMessageID(d.ID),
		OwnerID:   model.OwnerID(d.OwnerID),
		SessionID: model.ChatSessionID(d.SessionID),
		Role:      types.Role(d.Role),
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
	}
}

type chatMessageRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.ChatMessageRepository = &chatMessageRepository{}

func newChatMessageRepository(client *firestore.Client) *chatMessageRepository {
	return &chatMessageRepository{client: client}
}

// messages returns the subcollection path: chat_sessions/{sessionID}/messages
func (r *chatMessageRepository) messages(sessionID model.ChatSessionID) *firestore.CollectionRef {
	return r.client.Collection(r.collectionPrefix + chatSessionsCollection).
		Doc(string(sessionID)).
		Collection(chatMessagesCollection)
}

func (r *chatMessageRepository) PutPair(ctx context.Context, sessionID model.ChatSessionID, user, assistant *model.ChatMessage) error {
	if user == nil || assistant == nil {
		return goerr.New("both messages of a pair are required", goerr.V("session_id", sessionID))
	}

	now := time.Now().UTC()
	pair := make([]*model.ChatMessage, 0, 2)
	for _, m := range []*model.ChatMessage{user, assistant} {
		prepared := *m
		if prepared.ID == "" {
			prepared.ID = model.NewChatMessageID()
		}
		prepared.SessionID = sessionID
		if prepared.CreatedAt.IsZero() {
			prepared.CreatedAt = now
		}
		pair = append(pair, &prepared)
	}
	if !pair[1].CreatedAt.After(pair[0].CreatedAt) {
		pair[1].CreatedAt = pair[0].CreatedAt.Add(time.Microsecond)
	}

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, m := range pair {
			if err := tx.Create(r.messages(sessionID).Doc(string(m.ID)), toChatMessageDoc(m)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return goerr.Wrap(err, "failed to save chat message pair", goerr.V("session_id", sessionID))
	}
	return nil
}

func (r *chatMessageRepository) ListRecent(ctx context.Context, sessionID model.ChatSessionID, limit int) ([]*model.ChatMessage, error) {
	query := r.messages(sessionID).OrderBy("CreatedAt", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	messages := make([]*model.ChatMessage, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate chat messages", goerr.V("session_id", sessionID))
		}

		var d chatMessageDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal chat message", goerr.V("doc_id", doc.Ref.ID))
		}
		messages = append(messages, fromChatMessageDoc(&d))
	}

	slices.Reverse(messages)
	return messages, nil
}

func (r *chatMessageRepository) DeleteBySession(ctx context.Context, sessionID model.ChatSessionID) (int, error) {
	const batchSize = 500
	totalDeleted := 0

	for {
		iter := r.messages(sessionID).Limit(batchSize).Documents(ctx)
		bulkWriter := r.client.BulkWriter(ctx)
		count := 0

		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				bulkWriter.End()
				return totalDeleted, goerr.Wrap(err, "failed to iterate messages for deletion", goerr.V("session_id", sessionID))
			}

			if _, err := bulkWriter.Delete(doc.Ref); err != nil {
				iter.Stop()
				bulkWriter.End()
				return totalDeleted, goerr.Wrap(err, "failed to delete chat message", goerr.V("session_id", sessionID))
			}
			count++
		}
		iter.Stop()
		bulkWriter.End()

		totalDeleted += count
		if count < batchSize {
			break
		}
	}

	return totalDeleted, nil
}
