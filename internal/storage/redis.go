package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis stores the slot under a single Redis key.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis returns a slot backed by client. The slot owns the client.
func NewRedis(client *redis.Client, key string) *Redis {
	return &Redis{client: client, key: key}
}

func (r *Redis) Load(ctx context.Context) (string, bool, error) {
	text, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("loading slot %s: %w", r.key, err)
	}
	return text, true, nil
}

func (r *Redis) Save(ctx context.Context, text string) error {
	if err := r.client.Set(ctx, r.key, text, 0).Err(); err != nil {
		return fmt.Errorf("saving slot %s: %w", r.key, err)
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("clearing slot %s: %w", r.key, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
