package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/marketplace-service/internal/domain"
)

// InvalidationRepository stores, per principal, the time its moderation state
// last changed. Tokens issued at or before that time carry stale claims.
type InvalidationRepository struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
}

// NewInvalidationRepository builds the store. ttl should match the refresh
// token lifetime; older tokens are expired anyway.
func NewInvalidationRepository(client *redis.Client, ttl time.Duration) *InvalidationRepository {
	return &InvalidationRepository{client: client, ttl: ttl, keyPrefix: "principal:invalidated:"}
}

func (r *InvalidationRepository) key(kind domain.Kind, id string) string {
	return r.keyPrefix + string(kind) + ":" + id
}

// Invalidate records at as the latest moderation change of the principal.
// The marker keeps millisecond precision.
func (r *InvalidationRepository) Invalidate(ctx context.Context, kind domain.Kind, id string, at time.Time) error {
	if err := r.client.Set(ctx, r.key(kind, id), strconv.FormatInt(at.UnixMilli(), 10), r.ttl).Err(); err != nil {
		return fmt.Errorf("set invalidation marker: %w", err)
	}
	return nil
}

// InvalidatedAt returns the marker, if any.
func (r *InvalidationRepository) InvalidatedAt(ctx context.Context, kind domain.Kind, id string) (time.Time, bool, error) {
	raw, err := r.client.Get(ctx, r.key(kind, id)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get invalidation marker: %w", err)
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse invalidation marker: %w", err)
	}
	return time.UnixMilli(ms), true, nil
}
