package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long an idle session survives in Redis.
const DefaultTTL = 12 * time.Hour

// RedisStore keeps session state in Redis as JSON, one key per session.
// Every Save extends the key's expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, prefix: "backoffice:session:", ttl: ttl}, nil
}

func (r *RedisStore) key(id string) string {
	return r.prefix + id
}

// Load returns the stored state or ErrNotFound.
func (r *RedisStore) Load(ctx context.Context, id string) (State, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, ErrNotFound
	}
	if err != nil {
		return State{}, fmt.Errorf("loading session %s: %w", id, err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return state, nil
}

// Save stores state under its id.
func (r *RedisStore) Save(ctx context.Context, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", state.ID, err)
	}
	if err := r.client.Set(ctx, r.key(state.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("saving session %s: %w", state.ID, err)
	}
	return nil
}

// Touch extends the key's expiry. An expired or deleted key yields
// ErrNotFound.
func (r *RedisStore) Touch(ctx context.Context, id string) error {
	ok, err := r.client.Expire(ctx, r.key(id), r.ttl).Result()
	if err != nil {
		return fmt.Errorf("touching session %s: %w", id, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Delete removes the state.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
