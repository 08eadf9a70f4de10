package storages

import (
	"context"
	"errors"

	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/domain/entities"
)

var (
	ErrSagaNotFound    = errors.New("saga not found")
	ErrSagaExists      = errors.New("saga already exists")
	ErrVersionConflict = errors.New("saga version conflict")
)

// Storage is the durability boundary of the orchestrator. Once Replace
// returns nil the transition is committed; the consumption loop must not
// acknowledge the inbound message before that.
type Storage interface {
	// Create inserts a fresh record and fails with ErrSagaExists on a
	// duplicate id.
	Create(ctx context.Context, sg *entities.Saga) error
	Get(ctx context.Context, id string) (*entities.Saga, error)
	// Replace overwrites the stored record if its version still matches
	// sg.Version, then bumps sg.Version. ErrVersionConflict means another
	// instance got there first.
	Replace(ctx context.Context, sg *entities.Saga) error
	Delete(ctx context.Context, id string) error
	// FetchExpired returns non-terminal sagas whose deadline passed.
	FetchExpired(ctx context.Context, now int64, limit int64) ([]entities.Saga, error)
	Close(ctx context.Context) error
}
