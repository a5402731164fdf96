package blocklist

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultKey = "riskengine:blocklist"

// Redis is a Blocklist backed by a redis set, for deployments where several
// engine instances must share one blocklist. SADD/SREM are idempotent, which
// gives the concurrent-duplicate-add guarantee for free.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis creates a redis-backed blocklist on the given client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, key: defaultKey}
}

func (r *Redis) Add(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := r.client.SAdd(ctx, r.key, id).Err(); err != nil {
		return fmt.Errorf("failed to add %q to blocklist: %w", id, err)
	}
	return nil
}

func (r *Redis) Remove(ctx context.Context, id string) error {
	if err := r.client.SRem(ctx, r.key, id).Err(); err != nil {
		return fmt.Errorf("failed to remove %q from blocklist: %w", id, err)
	}
	return nil
}

func (r *Redis) Contains(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	ok, err := r.client.SIsMember(ctx, r.key, id).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check blocklist membership: %w", err)
	}
	return ok, nil
}

func (r *Redis) Size(ctx context.Context) (int, error) {
	n, err := r.client.SCard(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read blocklist size: %w", err)
	}
	return int(n), nil
}
