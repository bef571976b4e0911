package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Muchai14/code-collab-hub/internal/domain"
	"github.com/Muchai14/code-collab-hub/internal/repository"
)

// maxTxRetries bounds the optimistic-lock retry loop in Update.
const maxTxRetries = 10

// RoomStore keeps rooms as JSON values in Redis. Update uses WATCH/MULTI
// so concurrent mutations of the same room serialize instead of losing
// writes. A ZSET scored by LastActiveAt backs the idle sweep.
type RoomStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRoomStore creates a redis-backed RoomStore.
func NewRoomStore(client *redis.Client, keyPrefix string) *RoomStore {
	if client == nil {
		panic("redis client cannot be nil for RoomStore")
	}
	if keyPrefix == "" {
		keyPrefix = "cch:"
	}
	return &RoomStore{client: client, keyPrefix: keyPrefix}
}

func (s *RoomStore) roomKey(id string) string {
	return fmt.Sprintf("%sroom:%s", s.keyPrefix, id)
}

func (s *RoomStore) activityKey() string {
	return s.keyPrefix + "rooms:by_activity"
}

func (s *RoomStore) Save(ctx context.Context, room *domain.Room) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.roomKey(room.ID), *room, 0)
	pipe.ZAdd(ctx, s.activityKey(), &redis.Z{
		Score:  float64(room.LastActiveAt.Unix()),
		Member: room.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: save room %s: %w", room.ID, err)
	}
	return nil
}

func (s *RoomStore) FindByID(ctx context.Context, id string) (*domain.Room, error) {
	data, err := s.client.Get(ctx, s.roomKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("redis: find room %s: %w", id, err)
	}
	var room domain.Room
	if err := room.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("redis: decode room %s: %w", id, err)
	}
	return &room, nil
}

func (s *RoomStore) Update(ctx context.Context, id string, fn func(*domain.Room) error) (*domain.Room, error) {
	key := s.roomKey(id)
	var updated *domain.Room

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return repository.ErrRoomNotFound
			}
			return err
		}
		var room domain.Room
		if err := room.UnmarshalBinary(data); err != nil {
			return err
		}
		if err := fn(&room); err != nil {
			return err
		}
		room.LastActiveAt = time.Now()
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, room, 0)
			pipe.ZAdd(ctx, s.activityKey(), &redis.Z{
				Score:  float64(room.LastActiveAt.Unix()),
				Member: room.ID,
			})
			return nil
		})
		if err == nil {
			updated = &room
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue // another writer raced us, retry on fresh state
		}
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("redis: update room %s: %w", id, err)
	}
	return nil, fmt.Errorf("redis: update room %s: too many tx conflicts", id)
}

func (s *RoomStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.roomKey(id))
	pipe.ZRem(ctx, s.activityKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: delete room %s: %w", id, err)
	}
	return nil
}

func (s *RoomStore) FindInactiveSince(ctx context.Context, cutoff time.Time) ([]string, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.activityKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list inactive rooms: %w", err)
	}
	return ids, nil
}
