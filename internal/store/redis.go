// internal/store/redis.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bcrescitelli/stir-the-pot-sub000/internal/models"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces room documents in Redis.
const KeyPrefix = "stirthepot:rooms:"

// RedisStore keeps each room as a JSON document under KeyPrefix+code.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration // 0 keeps rooms forever
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func roomKey(code string) string {
	return KeyPrefix + code
}

func (s *RedisStore) Create(ctx context.Context, room *models.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, roomKey(room.Code), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		return ErrExists
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, code string) (*models.Room, error) {
	data, err := s.rdb.Get(ctx, roomKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var room models.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("decode room %s: %w", code, err)
	}
	return &room, nil
}

// Update swaps the document inside a WATCH/MULTI transaction so a writer
// racing on the same key loses with ErrConflict.
func (s *RedisStore) Update(ctx context.Context, room *models.Room) error {
	key := roomKey(room.Code)
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}

	txf := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var stored struct {
			Version int64 `json:"version"`
		}
		if err := json.Unmarshal(cur, &stored); err != nil {
			return fmt.Errorf("decode room %s: %w", room.Code, err)
		}
		if stored.Version != room.Version-1 {
			return ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}

	err = s.rdb.Watch(ctx, txf, key)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return ErrConflict
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict):
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// Close is a no-op; the client is shared with the event queue and owned by the caller.
func (s *RedisStore) Close() error { return nil }
