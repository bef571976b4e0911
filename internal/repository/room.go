package repository

import (
	"context"
	"time"

	"github.com/Muchai14/code-collab-hub/internal/domain"
)

// RoomStore is the authoritative mapping from room id to room state.
// Implementations must serialize mutations per room: two concurrent joins
// against the same id must both land with no lost update.
type RoomStore interface {
	// Save creates or replaces the room keyed by its id.
	Save(ctx context.Context, room *domain.Room) error

	// FindByID returns a copy of the room, or ErrRoomNotFound.
	FindByID(ctx context.Context, id string) (*domain.Room, error)

	// Update applies fn to the current room state atomically and persists
	// the result. fn runs under the store's per-room exclusivity; returning
	// an error aborts the update without mutating anything. Returns the
	// updated room, or ErrRoomNotFound if the id is absent.
	Update(ctx context.Context, id string, fn func(*domain.Room) error) (*domain.Room, error)

	// Delete removes the room. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error

	// FindInactiveSince lists ids of rooms whose LastActiveAt is before
	// cutoff. Used by the idle-room sweeper.
	FindInactiveSince(ctx context.Context, cutoff time.Time) ([]string, error)
}
