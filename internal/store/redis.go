// redis.go
package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"otm.relay/internal/models"
)

var _ Store = (*RedisStore)(nil)

// defaultRedisGrace keeps an expired key around long enough for a reader to
// be told it expired rather than that it never existed.
const defaultRedisGrace = 24 * time.Hour

type RedisStore struct {
	client *redis.Client
	now    Clock
	grace  time.Duration
}

func NewRedisStore(options *redis.Options, opts Options) (*RedisStore, error) {
	opts = opts.withDefaults()
	client := redis.NewClient(options)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	grace := opts.PurgeAfter
	if grace <= 0 {
		grace = defaultRedisGrace
	}

	return &RedisStore{client: client, now: opts.Clock, grace: grace}, nil
}

func (r *RedisStore) Create(ctx context.Context, encryptedData string, expiresAt *time.Time) (string, error) {
	if encryptedData == "" {
		return "", ErrInvalidMessage
	}

	msg := &models.Message{
		ID:            newID(),
		EncryptedData: encryptedData,
		ExpiresAt:     copyTime(expiresAt),
		CreatedAt:     r.now(),
	}

	data, err := encode(msg)
	if err != nil {
		return "", err
	}

	if err := r.client.Set(ctx, messageKey(msg.ID), data, r.keyTTL(msg)).Err(); err != nil {
		return "", fmt.Errorf("redis set: %w", err)
	}
	return msg.ID, nil
}

func (r *RedisStore) Fetch(ctx context.Context, id string) (*models.Message, error) {
	data, err := r.client.Get(ctx, messageKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	msg, err := decode(data)
	if err != nil {
		return nil, err
	}

	if msg.ExpiredAt(r.now()) {
		if err := r.client.Del(ctx, messageKey(id)).Err(); err != nil {
			return nil, fmt.Errorf("redis del expired: %w", err)
		}
		return nil, ErrExpired
	}

	return msg, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, messageKey(id)).Result()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// keyTTL is zero (no expiry) for messages without one.
func (r *RedisStore) keyTTL(msg *models.Message) time.Duration {
	if msg.ExpiresAt == nil {
		return 0
	}
	ttl := msg.ExpiresAt.Sub(r.now()) + r.grace
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

// Helpers

func messageKey(id string) string {
	return "message:" + id
}

func encode(msg *models.Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(msg); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (*models.Message, error) {
	var msg models.Message
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return &msg, nil
}
