package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tickerchat/pkg/domain/interfaces"
	"github.com/secmon-lab/tickerchat/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type chatSessionDoc struct {
	ID        string    `firestore:"ID"`
	OwnerID   string    `firestore:"OwnerID"`
	Title     string    `firestore:"Title"`
	CreatedAt time.Time `firestore:"CreatedAt"`
	UpdatedAt time.Time `firestore:"UpdatedAt"`
}

func toChatSessionDoc(s *model.ChatSession) *chatSessionDoc {
	return &chatSessionDoc{
		ID:        string(s.ID),
		OwnerID:   string(s.OwnerID),
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func fromChatSessionDoc(d *chatSessionDoc) *model.ChatSession {
	return &model.ChatSession{
		ID:        model.ChatSessionID(d.ID),
		OwnerID:   model.OwnerID(d.OwnerID),
		Title:     d.Title,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type chatSessionRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.ChatSessionRepository = &chatSessionRepository{}

func newChatSessionRepository(client *firestore.Client) *chatSessionRepository {
	return &chatSessionRepository{client: client}
}

func (r *chatSessionRepository) sessions() *firestore.CollectionRef {
	return r.client.Collection(r.collectionPrefix + chatSessionsCollection)
}

func (r *chatSessionRepository) Create(ctx context.Context, session *model.ChatSession) (*model.ChatSession, error) {
	if session == nil {
		return nil, goerr.New("session is nil")
	}

	created := *session
	if created.ID == "" {
		created.ID = model.NewChatSessionID()
	}
	now := time.Now().UTC()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	if created.UpdatedAt.IsZero() {
		created.UpdatedAt = created.CreatedAt
	}

	if _, err := r.sessions().Doc(string(created.ID)).Create(ctx, toChatSessionDoc(&created)); err != nil {
		return nil, goerr.Wrap(err, "failed to create chat session", goerr.V("session_id", created.ID))
	}

	return &created, nil
}

func (r *chatSessionRepository) Get(ctx context.Context, id model.ChatSessionID) (*model.ChatSession, error) {
	doc, err := r.sessions().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "chat session not found", goerr.V("session_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get chat session", goerr.V("session_id", id))
	}

	var d chatSessionDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal chat session", goerr.V("session_id", id))
	}
	return fromChatSessionDoc(&d), nil
}

func (r *chatSessionRepository) Touch(ctx context.Context, id model.ChatSessionID, at time.Time, fallback *model.ChatSession) error {
	ref := r.sessions().Doc(string(id))

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			if status.Code(err) != codes.NotFound {
				return goerr.Wrap(err, "failed to get chat session")
			}
			if fallback == nil {
				return goerr.Wrap(ErrNotFound, "chat session not found")
			}

			created := *fallback
			created.ID = id
			if created.CreatedAt.IsZero() {
				created.CreatedAt = at
			}
			created.UpdatedAt = at
			return tx.Create(ref, toChatSessionDoc(&created))
		}

		return tx.Update(ref, []firestore.Update{
			{Path: "UpdatedAt", Value: at},
		})
	})
	if err != nil {
		return goerr.Wrap(err, "failed to touch chat session", goerr.V("session_id", id))
	}
	return nil
}

func (r *chatSessionRepository) ListByOwner(ctx context.Context, ownerID model.OwnerID) ([]*model.ChatSession, error) {
	iter := r.sessions().
		Where("OwnerID", "==", string(ownerID)).
		OrderBy("UpdatedAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	sessions := make([]*model.ChatSession, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate chat sessions", goerr.V("owner_id", ownerID))
		}

		var d chatSessionDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal chat session", goerr.V("doc_id", doc.Ref.ID))
		}
		sessions = append(sessions, fromChatSessionDoc(&d))
	}

	return sessions, nil
}

func (r *chatSessionRepository) Delete(ctx context.Context, id model.ChatSessionID) error {
	ref := r.sessions().Doc(string(id))

	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "chat session not found", goerr.V("session_id", id))
		}
		return goerr.Wrap(err, "failed to get chat session", goerr.V("session_id", id))
	}

	if _, err := ref.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete chat session", goerr.V("session_id", id))
	}
	return nil
}
