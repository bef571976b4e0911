package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Muchai14/code-collab-hub/internal/domain"
	"github.com/Muchai14/code-collab-hub/internal/repository"
)

// participantColors is the display palette. Colors are picked at random
// independently per participant; collisions are allowed.
var participantColors = []string{
	"#22c55e", // green
	"#3b82f6", // blue
	"#f59e0b", // amber
	"#ec4899", // pink
	"#8b5cf6", // violet
	"#06b6d4", // cyan
}

func randomColor() string {
	return participantColors[rand.Intn(len(participantColors))]
}

// newRoomID returns an 8-character slice of a random UUID. Unguessable
// enough to serve as a shareable token; collision probability is treated
// as negligible, not guaranteed.
func newRoomID() string {
	return uuid.NewString()[:8]
}

// RoomService owns room lifecycle and buffer/language mutations. The
// RoomStore it wraps stays the single source of truth for getRoom.
type RoomService struct {
	store repository.RoomStore
}

// NewRoomService creates a RoomService.
func NewRoomService(store repository.RoomStore) *RoomService {
	if store == nil {
		panic("RoomStore cannot be nil for RoomService")
	}
	return &RoomService{store: store}
}

// CreateRoom allocates a fresh room seeded with the language boilerplate
// and registers the host as its only participant.
func (s *RoomService) CreateRoom(ctx context.Context, hostName string, language domain.Language) (*domain.Room, *domain.Participant, error) {
	if language == "" {
		language = domain.DefaultLanguage
	}
	if !language.Valid() {
		return nil, nil, ErrInvalidLanguage
	}

	host := domain.Participant{
		ID:     uuid.NewString(),
		Name:   hostName,
		Color:  randomColor(),
		IsHost: true,
	}
	now := time.Now()
	room := &domain.Room{
		ID:           newRoomID(),
		Code:         language.Boilerplate(),
		Language:     language,
		Participants: []domain.Participant{host},
		CreatedAt:    now,
		HostID:       host.ID,
		LastActiveAt: now,
	}

	if err := s.store.Save(ctx, room); err != nil {
		logrus.WithError(err).WithField("room_id", room.ID).Error("Failed to save new room")
		return nil, nil, ErrInternalServer
	}
	logrus.WithFields(logrus.Fields{
		"room_id":  room.ID,
		"host":     hostName,
		"language": language,
	}).Info("Room created")
	return room, &host, nil
}

// JoinRoom appends a new non-host participant and returns the updated room.
func (s *RoomService) JoinRoom(ctx context.Context, roomID, userName string) (*domain.Room, *domain.Participant, error) {
	user := domain.Participant{
		ID:    uuid.NewString(),
		Name:  userName,
		Color: randomColor(),
	}
	room, err := s.store.Update(ctx, roomID, func(r *domain.Room) error {
		r.AddParticipant(user)
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, nil, ErrRoomNotFound
		}
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to join room")
		return nil, nil, ErrInternalServer
	}
	logrus.WithFields(logrus.Fields{
		"room_id": roomID,
		"user_id": user.ID,
		"name":    userName,
	}).Info("Participant joined room")
	return room, &user, nil
}

// GetRoom is the read-only lookup backing re-fetch reconciliation.
func (s *RoomService) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	room, err := s.store.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to load room")
		return nil, ErrInternalServer
	}
	return room, nil
}

// LeaveRoom removes the participant. A departing host hands the role to
// the earliest remaining joiner; the last leave deletes the room
// immediately (no grace period).
func (s *RoomService) LeaveRoom(ctx context.Context, roomID, userID string) error {
	room, err := s.store.Update(ctx, roomID, func(r *domain.Room) error {
		r.RemoveParticipant(userID)
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return ErrRoomNotFound
		}
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to leave room")
		return ErrInternalServer
	}
	if room.Empty() {
		if err := s.store.Delete(ctx, roomID); err != nil {
			logrus.WithError(err).WithField("room_id", roomID).Error("Failed to delete empty room")
			return ErrInternalServer
		}
		logrus.WithField("room_id", roomID).Info("Last participant left, room deleted")
		return nil
	}
	logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID}).Info("Participant left room")
	return nil
}

// UpdateCode replaces the buffer verbatim (last-writer-wins).
func (s *RoomService) UpdateCode(ctx context.Context, roomID, code string) (*domain.Room, error) {
	room, err := s.store.Update(ctx, roomID, func(r *domain.Room) error {
		r.Code = code
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to update code")
		return nil, ErrInternalServer
	}
	return room, nil
}

// UpdateLanguage switches the room language and resets the buffer to the
// new language's boilerplate.
func (s *RoomService) UpdateLanguage(ctx context.Context, roomID string, language domain.Language) (*domain.Room, error) {
	if !language.Valid() {
		return nil, ErrInvalidLanguage
	}
	room, err := s.store.Update(ctx, roomID, func(r *domain.Room) error {
		r.Language = language
		r.Code = language.Boilerplate()
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to update language")
		return nil, ErrInternalServer
	}
	logrus.WithFields(logrus.Fields{"room_id": roomID, "language": language}).Info("Room language changed")
	return room, nil
}
