package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Muchai14/code-collab-hub/internal/domain"
	"github.com/Muchai14/code-collab-hub/internal/infra/persistence/memory"
	"github.com/Muchai14/code-collab-hub/internal/repository"
	"github.com/Muchai14/code-collab-hub/internal/repository/mocks"
)

func newTestService() *RoomService {
	return NewRoomService(memory.NewRoomStore())
}

func TestCreateRoom(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	room, host, err := svc.CreateRoom(ctx, "Alice", domain.LanguageJavaScript)
	require.NoError(t, err)

	assert.Len(t, room.ID, 8)
	assert.Equal(t, domain.LanguageJavaScript, room.Language)
	assert.Equal(t, domain.LanguageJavaScript.Boilerplate(), room.Code)
	require.Len(t, room.Participants, 1)
	assert.True(t, room.Participants[0].IsHost)
	assert.Equal(t, "Alice", room.Participants[0].Name)
	assert.Equal(t, host.ID, room.HostID)
	assert.NotEmpty(t, host.Color)
}

func TestCreateRoomDefaultsLanguage(t *testing.T) {
	svc := newTestService()
	room, _, err := svc.CreateRoom(context.Background(), "Alice", "")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultLanguage, room.Language)
}

func TestCreateRoomInvalidLanguage(t *testing.T) {
	svc := newTestService()
	_, _, err := svc.CreateRoom(context.Background(), "Alice", "cobol")
	assert.ErrorIs(t, err, ErrInvalidLanguage)
}

func TestCreateRoomStoreFailure(t *testing.T) {
	store := new(mocks.RoomStore)
	store.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	svc := NewRoomService(store)

	_, _, err := svc.CreateRoom(context.Background(), "Alice", domain.LanguagePython)
	assert.ErrorIs(t, err, ErrInternalServer)
	store.AssertExpectations(t)
}

func TestJoinRoom(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	room, _, err := svc.CreateRoom(ctx, "Alice", domain.LanguageJavaScript)
	require.NoError(t, err)

	joined, bob, err := svc.JoinRoom(ctx, room.ID, "Bob")
	require.NoError(t, err)
	require.Len(t, joined.Participants, 2)
	assert.False(t, bob.IsHost)
	assert.Equal(t, "Bob", joined.Participants[1].Name)
	assert.Equal(t, room.HostID, joined.HostID)
}

func TestJoinRoomNotFound(t *testing.T) {
	svc := newTestService()
	_, _, err := svc.JoinRoom(context.Background(), "missing1", "Bob")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestGetRoomNotFound(t *testing.T) {
	svc := newTestService()
	_, err := svc.GetRoom(context.Background(), "missing1")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestLeaveRoomReassignsHost(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	room, host, err := svc.CreateRoom(ctx, "Alice", domain.LanguageJavaScript)
	require.NoError(t, err)
	_, bob, err := svc.JoinRoom(ctx, room.ID, "Bob")
	require.NoError(t, err)

	require.NoError(t, svc.LeaveRoom(ctx, room.ID, host.ID))

	got, err := svc.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, got.Participants, 1)
	assert.Equal(t, bob.ID, got.HostID)
	assert.True(t, got.Participants[0].IsHost)
}

func TestLastLeaveDeletesRoom(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	room, host, err := svc.CreateRoom(ctx, "Alice", domain.LanguageJavaScript)
	require.NoError(t, err)

	require.NoError(t, svc.LeaveRoom(ctx, room.ID, host.ID))

	_, err = svc.GetRoom(ctx, room.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestLeaveRoomUnknownUserIsIdempotent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	room, _, err := svc.CreateRoom(ctx, "Alice", domain.LanguageJavaScript)
	require.NoError(t, err)

	require.NoError(t, svc.LeaveRoom(ctx, room.ID, "never-joined"))

	got, err := svc.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, got.Participants, 1)
}

func TestUpdateCode(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	room, _, err := svc.CreateRoom(ctx, "Alice", domain.LanguageJavaScript)
	require.NoError(t, err)

	updated, err := svc.UpdateCode(ctx, room.ID, "console.log(42)")
	require.NoError(t, err)
	assert.Equal(t, "console.log(42)", updated.Code)
}

func TestUpdateLanguageResetsBoilerplate(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	room, _, err := svc.CreateRoom(ctx, "Alice", domain.LanguageJavaScript)
	require.NoError(t, err)
	_, err = svc.UpdateCode(ctx, room.ID, "some half-written solution")
	require.NoError(t, err)

	updated, err := svc.UpdateLanguage(ctx, room.ID, domain.LanguagePython)
	require.NoError(t, err)
	assert.Equal(t, domain.LanguagePython, updated.Language)
	assert.Equal(t, domain.LanguagePython.Boilerplate(), updated.Code)
}

func TestUpdateLanguageInvalid(t *testing.T) {
	svc := newTestService()
	_, err := svc.UpdateLanguage(context.Background(), "abc12345", "brainfuck")
	assert.ErrorIs(t, err, ErrInvalidLanguage)
}

func TestUpdateCodeStoreFailure(t *testing.T) {
	store := new(mocks.RoomStore)
	store.On("Update", mock.Anything, "abc12345", mock.Anything).
		Return(nil, errors.New("connection reset"))
	svc := NewRoomService(store)

	_, err := svc.UpdateCode(context.Background(), "abc12345", "x")
	assert.ErrorIs(t, err, ErrInternalServer)
}

func TestLeaveRoomMapsNotFound(t *testing.T) {
	store := new(mocks.RoomStore)
	store.On("Update", mock.Anything, "missing1", mock.Anything).
		Return(nil, repository.ErrRoomNotFound)
	svc := NewRoomService(store)

	err := svc.LeaveRoom(context.Background(), "missing1", "u1")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}
