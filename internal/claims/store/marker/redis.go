// Package marker provides a fast-path duplicate-claim check. Markers are
// advisory only: the Postgres unique index remains the authoritative
// at-most-once guarantee, so a missing or stale marker is never incorrect,
// just slower.
package marker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cafeteria/internal/claims/models"
)

// Redis key prefix for claim markers.
const claimMarkerKeyPrefix = "claim:"

// Redis marks completed claims with a key that expires after the claim day
// is over. This is the production-recommended implementation when multiple
// instances share claim state.
type Redis struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed claim marker store.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// AlreadyClaimed reports whether a claim marker exists for
// (code, service, day).
func (m *Redis) AlreadyClaimed(ctx context.Context, code string, service models.Service, day string) (bool, error) {
	_, err := m.client.Get(ctx, markerKey(code, service, day)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check claim marker: %w", err)
	}
	return true, nil
}

// MarkClaimed records a claim marker with TTL. Uses SET NX so concurrent
// workers never extend an existing marker.
func (m *Redis) MarkClaimed(ctx context.Context, code string, service models.Service, day string, ttl time.Duration) error {
	// Store "1" as a simple marker; the key existence is what matters
	if err := m.client.SetNX(ctx, markerKey(code, service, day), "1", ttl).Err(); err != nil {
		return fmt.Errorf("set claim marker: %w", err)
	}
	return nil
}

func markerKey(code string, service models.Service, day string) string {
	return claimMarkerKeyPrefix + day + ":" + string(service) + ":" + code
}
