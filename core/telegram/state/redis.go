package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "fsm"

// RedisOptions tunes key layout and lifetimes of RedisStorage.
type RedisOptions struct {
	Prefix   string
	StateTTL time.Duration
	DataTTL  time.Duration
}

// RedisStorage keeps FSM records in Redis under <prefix>:<bot>:<chat>:<user>:{state,data}.
// Data is stored as JSON, so numbers come back as float64.
type RedisStorage struct {
	client *redis.Client
	opts   RedisOptions
}

// NewRedisStorage wraps an existing client. The client stays owned by the caller.
func NewRedisStorage(client *redis.Client, opts RedisOptions) *RedisStorage {
	if opts.Prefix == "" {
		opts.Prefix = defaultRedisPrefix
	}
	return &RedisStorage{client: client, opts: opts}
}

func (s *RedisStorage) key(k Key, part string) string {
	return fmt.Sprintf("%s:%d:%d:%d:%s", s.opts.Prefix, k.BotID, k.ChatID, k.UserID, part)
}

// SetState stores st for key, or deletes the key when st is StateIdle.
func (s *RedisStorage) SetState(ctx context.Context, key Key, st State) error {
	if st == StateIdle {
		return s.client.Del(ctx, s.key(key, "state")).Err()
	}
	return s.client.Set(ctx, s.key(key, "state"), string(st), s.opts.StateTTL).Err()
}

// GetState returns the stored state, or StateIdle if the key is missing.
func (s *RedisStorage) GetState(ctx context.Context, key Key) (State, error) {
	raw, err := s.client.Get(ctx, s.key(key, "state")).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return StateIdle, nil
		}
		return StateIdle, fmt.Errorf("state: get state %s: %w", key, err)
	}
	return State(raw), nil
}

// SetData stores data as JSON, or deletes the key when data is empty.
func (s *RedisStorage) SetData(ctx context.Context, key Key, data map[string]any) error {
	if len(data) == 0 {
		return s.client.Del(ctx, s.key(key, "data")).Err()
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("state: encode data %s: %w", key, err)
	}
	return s.client.Set(ctx, s.key(key, "data"), raw, s.opts.DataTTL).Err()
}

// GetData returns the stored data; a missing key yields an empty map.
func (s *RedisStorage) GetData(ctx context.Context, key Key) (map[string]any, error) {
	raw, err := s.client.Get(ctx, s.key(key, "data")).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("state: get data %s: %w", key, err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("state: decode data %s: %w", key, err)
	}
	return out, nil
}

// Close is a no-op: the Redis client is shared and closed by its owner.
func (s *RedisStorage) Close() error {
	return nil
}
