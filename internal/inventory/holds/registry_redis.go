package holds

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "hemobank/pkg/domain"
)

// RedisRegistry keeps holds as TTL'd keys so the grace window survives process
// restarts and is shared across instances.
type RedisRegistry struct {
	client *redis.Client
}

func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client}
}

func holdKey(unitID id.UnitID) string {
	return "hold:unit:" + unitID.String()
}

func (r *RedisRegistry) Place(ctx context.Context, unitID id.UnitID, requestID id.RequestID, ttl time.Duration) error {
	if err := r.client.Set(ctx, holdKey(unitID), requestID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("place hold: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Live(ctx context.Context, unitID id.UnitID) (bool, error) {
	n, err := r.client.Exists(ctx, holdKey(unitID)).Result()
	if err != nil {
		return false, fmt.Errorf("check hold: %w", err)
	}
	return n > 0, nil
}

func (r *RedisRegistry) Release(ctx context.Context, unitID id.UnitID) error {
	if err := r.client.Del(ctx, holdKey(unitID)).Err(); err != nil {
		return fmt.Errorf("release hold: %w", err)
	}
	return nil
}
