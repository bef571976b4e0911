package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Muchai14/code-collab-hub/internal/domain"
)

// RoomStore is a testify mock of repository.RoomStore.
type RoomStore struct {
	mock.Mock
}

func (m *RoomStore) Save(ctx context.Context, room *domain.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *RoomStore) FindByID(ctx context.Context, id string) (*domain.Room, error) {
	args := m.Called(ctx, id)
	if room, ok := args.Get(0).(*domain.Room); ok {
		return room, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoomStore) Update(ctx context.Context, id string, fn func(*domain.Room) error) (*domain.Room, error) {
	args := m.Called(ctx, id, fn)
	if room, ok := args.Get(0).(*domain.Room); ok {
		return room, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoomStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *RoomStore) FindInactiveSince(ctx context.Context, cutoff time.Time) ([]string, error) {
	args := m.Called(ctx, cutoff)
	if ids, ok := args.Get(0).([]string); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}
