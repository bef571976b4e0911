package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Muchai14/code-collab-hub/internal/domain"
	"github.com/Muchai14/code-collab-hub/internal/repository"
)

func newTestRoom(id string) *domain.Room {
	now := time.Now()
	return &domain.Room{
		ID:       id,
		Code:     domain.LanguageJavaScript.Boilerplate(),
		Language: domain.LanguageJavaScript,
		Participants: []domain.Participant{
			{ID: "host-1", Name: "Alice", IsHost: true},
		},
		CreatedAt:    now,
		HostID:       "host-1",
		LastActiveAt: now,
	}
}

func TestSaveAndFindByID(t *testing.T) {
	store := NewRoomStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newTestRoom("abc12345")))

	got, err := store.FindByID(ctx, "abc12345")
	require.NoError(t, err)
	assert.Equal(t, "abc12345", got.ID)
	assert.Equal(t, "host-1", got.HostID)
}

func TestSaveOverwritesExisting(t *testing.T) {
	// Save is an upsert: a second save with the same id replaces the room
	// wholesale. Every backend honors this contract.
	store := NewRoomStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, newTestRoom("abc12345")))

	replacement := newTestRoom("abc12345")
	replacement.Code = "replaced"
	require.NoError(t, store.Save(ctx, replacement))

	got, err := store.FindByID(ctx, "abc12345")
	require.NoError(t, err)
	assert.Equal(t, "replaced", got.Code)
}

func TestFindByIDNotFound(t *testing.T) {
	store := NewRoomStore()
	_, err := store.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrRoomNotFound)
}

func TestFindByIDReturnsCopy(t *testing.T) {
	store := NewRoomStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, newTestRoom("abc12345")))

	first, err := store.FindByID(ctx, "abc12345")
	require.NoError(t, err)
	first.Code = "mutated outside the store"
	first.Participants[0].Name = "Mallory"

	second, err := store.FindByID(ctx, "abc12345")
	require.NoError(t, err)
	assert.NotEqual(t, "mutated outside the store", second.Code)
	assert.Equal(t, "Alice", second.Participants[0].Name)
}

func TestUpdateAppliesClosureAndBumpsActivity(t *testing.T) {
	store := NewRoomStore()
	ctx := context.Background()
	room := newTestRoom("abc12345")
	room.LastActiveAt = time.Now().Add(-time.Hour)
	require.NoError(t, store.Save(ctx, room))

	updated, err := store.Update(ctx, "abc12345", func(r *domain.Room) error {
		r.Code = "new code"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "new code", updated.Code)
	assert.WithinDuration(t, time.Now(), updated.LastActiveAt, time.Minute)
}

func TestUpdateErrorLeavesRoomIntact(t *testing.T) {
	store := NewRoomStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, newTestRoom("abc12345")))

	_, err := store.Update(ctx, "abc12345", func(r *domain.Room) error {
		r.Code = "half-applied"
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	got, err := store.FindByID(ctx, "abc12345")
	require.NoError(t, err)
	assert.NotEqual(t, "half-applied", got.Code)
}

func TestUpdateNotFound(t *testing.T) {
	store := NewRoomStore()
	_, err := store.Update(context.Background(), "missing", func(r *domain.Room) error { return nil })
	assert.ErrorIs(t, err, repository.ErrRoomNotFound)
}

func TestConcurrentJoinsLoseNoUpdates(t *testing.T) {
	store := NewRoomStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, newTestRoom("abc12345")))

	const joiners = 50
	var wg sync.WaitGroup
	wg.Add(joiners)
	for i := 0; i < joiners; i++ {
		go func(n int) {
			defer wg.Done()
			_, err := store.Update(ctx, "abc12345", func(r *domain.Room) error {
				r.AddParticipant(domain.Participant{ID: fmt.Sprintf("user-%d", n)})
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := store.FindByID(ctx, "abc12345")
	require.NoError(t, err)
	assert.Len(t, got.Participants, joiners+1)
}

func TestDelete(t *testing.T) {
	store := NewRoomStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, newTestRoom("abc12345")))
	require.NoError(t, store.Delete(ctx, "abc12345"))

	_, err := store.FindByID(ctx, "abc12345")
	assert.ErrorIs(t, err, repository.ErrRoomNotFound)

	// Deleting a missing room is not an error.
	assert.NoError(t, store.Delete(ctx, "abc12345"))
}

func TestFindInactiveSince(t *testing.T) {
	store := NewRoomStore()
	ctx := context.Background()

	stale := newTestRoom("stale001")
	stale.LastActiveAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, store.Save(ctx, stale))

	fresh := newTestRoom("fresh001")
	require.NoError(t, store.Save(ctx, fresh))

	ids, err := store.FindInactiveSince(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"stale001"}, ids)
}
