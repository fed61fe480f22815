package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Update when the device has no session.
var ErrNotFound = errors.New("session: not found")

// RedisStore keeps one JSON-encoded session per device. Keys expire
// together with the session.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "device-session:",
		now:    time.Now,
	}
}

func (r *RedisStore) key(deviceID string) string {
	return r.prefix + deviceID
}

// Create stores s, replacing any session the device had.
func (r *RedisStore) Create(ctx context.Context, s Session) error {
	if s.SessionID == "" || s.Identity.UID == "" {
		return errors.New("session: device id and uid are required")
	}

	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("session: %s expires in the past", s.SessionID)
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}

	if err := r.client.Set(ctx, r.key(s.SessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("session: create: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, deviceID string) (*Session, error) {
	data, err := r.client.Get(ctx, r.key(deviceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: get: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}

	// Redis expiry is second-grained; never hand out a session past its end.
	if !s.ExpiresAt.After(r.now()) {
		return nil, nil
	}

	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, deviceID string) error {
	if err := r.client.Del(ctx, r.key(deviceID)).Err(); err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}

// Update rewrites an existing session and keeps its remaining lifetime.
// A session that is gone is not recreated; Update returns ErrNotFound.
func (r *RedisStore) Update(ctx context.Context, s Session) error {
	if s.SessionID == "" {
		return errors.New("session: device id is required")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}

	err = r.client.SetArgs(ctx, r.key(s.SessionID), data, redis.SetArgs{
		Mode:    "XX",
		KeepTTL: true,
	}).Err()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("session: update: %w", err)
	}
	return nil
}
