package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Muchai14/code-collab-hub/internal/domain"
	"github.com/Muchai14/code-collab-hub/internal/repository"
)

// RoomStore is the in-process RoomStore used by default. A single lock
// covers the whole map; mutation closures run under it, which gives the
// per-room serialization the store contract requires. All reads hand out
// deep copies.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*domain.Room
}

// NewRoomStore creates an empty in-memory store.
func NewRoomStore() *RoomStore {
	return &RoomStore{rooms: make(map[string]*domain.Room)}
}

func (s *RoomStore) Save(ctx context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = room.Clone()
	return nil
}

func (s *RoomStore) FindByID(ctx context.Context, id string) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (s *RoomStore) Update(ctx context.Context, id string, fn func(*domain.Room) error) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	// fn works on a copy so a failed update leaves the stored room intact.
	next := room.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.LastActiveAt = time.Now()
	s.rooms[id] = next
	return next.Clone(), nil
}

func (s *RoomStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, id)
	return nil
}

func (s *RoomStore) FindInactiveSince(ctx context.Context, cutoff time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, room := range s.rooms {
		if room.LastActiveAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
