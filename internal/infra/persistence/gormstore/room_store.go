package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Muchai14/code-collab-hub/internal/domain"
	"github.com/Muchai14/code-collab-hub/internal/repository"
)

// roomRecord is the table mapping for a room. Participants are stored as a
// JSON column: the roster is always read and written as a whole, so a
// join table would only buy contention.
type roomRecord struct {
	ID           string `gorm:"primaryKey;size:36"`
	Code         string `gorm:"type:text"`
	Language     string `gorm:"size:16"`
	Participants string `gorm:"type:json"`
	HostID       string `gorm:"size:36"`
	CreatedAt    time.Time
	LastActiveAt time.Time `gorm:"index"`
}

func (roomRecord) TableName() string { return "rooms" }

func toRecord(room *domain.Room) (*roomRecord, error) {
	parts, err := json.Marshal(room.Participants)
	if err != nil {
		return nil, fmt.Errorf("gorm: encode participants for room %s: %w", room.ID, err)
	}
	return &roomRecord{
		ID:           room.ID,
		Code:         room.Code,
		Language:     string(room.Language),
		Participants: string(parts),
		HostID:       room.HostID,
		CreatedAt:    room.CreatedAt,
		LastActiveAt: room.LastActiveAt,
	}, nil
}

func (rec *roomRecord) toDomain() (*domain.Room, error) {
	var parts []domain.Participant
	if rec.Participants != "" {
		if err := json.Unmarshal([]byte(rec.Participants), &parts); err != nil {
			return nil, fmt.Errorf("gorm: decode participants for room %s: %w", rec.ID, err)
		}
	}
	return &domain.Room{
		ID:           rec.ID,
		Code:         rec.Code,
		Language:     domain.Language(rec.Language),
		Participants: parts,
		CreatedAt:    rec.CreatedAt,
		HostID:       rec.HostID,
		LastActiveAt: rec.LastActiveAt,
	}, nil
}

// RoomStore is the MySQL-backed RoomStore. Update serializes per room with
// a SELECT ... FOR UPDATE row lock inside a transaction.
type RoomStore struct {
	db *gorm.DB
}

// NewRoomStore creates a gorm-backed RoomStore.
func NewRoomStore(db *gorm.DB) *RoomStore {
	if db == nil {
		panic("database connection cannot be nil for RoomStore")
	}
	return &RoomStore{db: db}
}

// Migrate creates or updates the rooms table.
func (s *RoomStore) Migrate() error {
	return s.db.AutoMigrate(&roomRecord{})
}

func (s *RoomStore) Save(ctx context.Context, room *domain.Room) error {
	rec, err := toRecord(room)
	if err != nil {
		return err
	}
	// Upsert: Save is a full replace, same contract as the other backends.
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(rec).Error
	if err != nil {
		return fmt.Errorf("gorm: save room %s: %w", room.ID, err)
	}
	return nil
}

func (s *RoomStore) FindByID(ctx context.Context, id string) (*domain.Room, error) {
	var rec roomRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room %s: %w", id, err)
	}
	return rec.toDomain()
}

func (s *RoomStore) Update(ctx context.Context, id string, fn func(*domain.Room) error) (*domain.Room, error) {
	var updated *domain.Room
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec roomRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&rec, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrRoomNotFound
			}
			return err
		}
		room, err := rec.toDomain()
		if err != nil {
			return err
		}
		if err := fn(room); err != nil {
			return err
		}
		room.LastActiveAt = time.Now()
		next, err := toRecord(room)
		if err != nil {
			return err
		}
		if err := tx.Save(next).Error; err != nil {
			return err
		}
		updated = room
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (s *RoomStore) Delete(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Delete(&roomRecord{}, "id = ?", id).Error
	if err != nil {
		return fmt.Errorf("gorm: delete room %s: %w", id, err)
	}
	return nil
}

func (s *RoomStore) FindInactiveSince(ctx context.Context, cutoff time.Time) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&roomRecord{}).
		Where("last_active_at < ?", cutoff).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list inactive rooms: %w", err)
	}
	return ids, nil
}
