package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/marketplace-service/internal/domain"
)

func newTestInvalidations(t *testing.T) (*InvalidationRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewInvalidationRepository(client, time.Hour), mr
}

func TestInvalidationRepository_RoundTrip(t *testing.T) {
	repo, _ := newTestInvalidations(t)
	ctx := context.Background()

	_, found, err := repo.InvalidatedAt(ctx, domain.KindUser, "u1")
	require.NoError(t, err)
	assert.False(t, found)

	at := time.UnixMilli(1_700_000_000_250)
	require.NoError(t, repo.Invalidate(ctx, domain.KindUser, "u1", at))

	got, found, err := repo.InvalidatedAt(ctx, domain.KindUser, "u1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, got.Equal(at))
}

func TestInvalidationRepository_KindsAreDisjoint(t *testing.T) {
	repo, _ := newTestInvalidations(t)
	ctx := context.Background()

	require.NoError(t, repo.Invalidate(ctx, domain.KindCompany, "same-id", time.Now()))

	_, found, err := repo.InvalidatedAt(ctx, domain.KindUser, "same-id")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidationRepository_Expires(t *testing.T) {
	repo, mr := newTestInvalidations(t)
	ctx := context.Background()

	require.NoError(t, repo.Invalidate(ctx, domain.KindUser, "u1", time.Now()))
	mr.FastForward(2 * time.Hour)

	_, found, err := repo.InvalidatedAt(ctx, domain.KindUser, "u1")
	require.NoError(t, err)
	assert.False(t, found)
}
