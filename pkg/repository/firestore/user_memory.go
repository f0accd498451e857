package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tickerchat/pkg/domain/interfaces"
	"github.com/secmon-lab/tickerchat/pkg/domain/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type userMemoryDoc struct {
	OwnerID   string    `firestore:"OwnerID"`
	Facts     string    `firestore:"Facts"`
	UpdatedAt time.Time `firestore:"UpdatedAt"`
}

type userMemoryRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.UserMemoryRepository = &userMemoryRepository{}

func newUserMemoryRepository(client *firestore.Client) *userMemoryRepository {
	return &userMemoryRepository{client: client}
}

// doc is keyed by owner ID so there is exactly one record per user
func (r *userMemoryRepository) doc(ownerID model.OwnerID) *firestore.DocumentRef {
	return r.client.Collection(r.collectionPrefix + userMemoriesCollection).Doc(string(ownerID))
}

func (r *userMemoryRepository) Get(ctx context.Context, ownerID model.OwnerID) (*model.UserMemory, error) {
	snap, err := r.doc(ownerID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "user memory not found", goerr.V("owner_id", ownerID))
		}
		return nil, goerr.Wrap(err, "failed to get user memory", goerr.V("owner_id", ownerID))
	}

	var d userMemoryDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal user memory", goerr.V("owner_id", ownerID))
	}

	return &model.UserMemory{
		OwnerID:   model.OwnerID(d.OwnerID),
		Facts:     d.Facts,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

func (r *userMemoryRepository) Put(ctx context.Context, memory *model.UserMemory) error {
	if memory == nil || memory.OwnerID == "" {
		return goerr.New("user memory requires an owner")
	}

	updatedAt := memory.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	// Set without merge replaces the whole document
	if _, err := r.doc(memory.OwnerID).Set(ctx, &userMemoryDoc{
		OwnerID:   string(memory.OwnerID),
		Facts:     memory.Facts,
		UpdatedAt: updatedAt,
	}); err != nil {
		return goerr.Wrap(err, "failed to put user memory", goerr.V("owner_id", memory.OwnerID))
	}
	return nil
}
