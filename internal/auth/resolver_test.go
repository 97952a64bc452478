package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/marketplace-service/internal/config"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/repository"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

type fakeMarkers struct {
	at    map[string]time.Time
	err   error
	calls int
}

func (f *fakeMarkers) InvalidatedAt(_ context.Context, kind domain.Kind, id string) (time.Time, bool, error) {
	f.calls++
	if f.err != nil {
		return time.Time{}, false, f.err
	}
	at, ok := f.at[string(kind)+":"+id]
	return at, ok, nil
}

func newResolver(t *testing.T, deps ResolverDependencies) *Resolver {
	t.Helper()
	r, err := NewResolver(deps)
	require.NoError(t, err)
	return r
}

func seedUser(t *testing.T, store *repository.MemoryStore) *domain.Account {
	t.Helper()
	a := &domain.Account{Kind: domain.KindUser, Username: "seller", Email: "seller@example.com", Role: domain.RoleUser, Active: true}
	require.NoError(t, store.Accounts().Create(context.Background(), a))
	return a
}

func TestResolver_ValidAccessToken(t *testing.T) {
	codec := codecAt(testNow)
	r := newResolver(t, ResolverDependencies{Codec: codec})
	p := bannedCompany()
	access, err := codec.IssueAccess(p)
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(), access.Value, "")
	require.NoError(t, err)
	assert.Equal(t, p.ID, res.Principal.ID)
	assert.Equal(t, domain.KindCompany, res.Principal.Kind)
	assert.Nil(t, res.Rotated)
}

func TestResolver_RotatesFromRefresh(t *testing.T) {
	issuer := codecAt(testNow)
	p := bannedCompany()
	access, err := issuer.IssueAccess(p)
	require.NoError(t, err)
	refresh, err := issuer.IssueRefresh(p)
	require.NoError(t, err)

	later := codecAt(testNow.Add(2 * time.Hour))
	r := newResolver(t, ResolverDependencies{Codec: later})

	first, err := r.Resolve(context.Background(), access.Value, refresh.Value)
	require.NoError(t, err)
	require.NotNil(t, first.Rotated)
	assert.Equal(t, p.ID, first.Principal.ID)
	assert.Equal(t, testNow.Add(3*time.Hour), first.Rotated.ExpiresAt)

	rotated, ok := later.Verify(first.Rotated.Value, TokenUseAccess)
	require.True(t, ok)
	assert.Equal(t, p.ID, rotated.ID)
	assert.True(t, rotated.IsBanned)

	// A second request with the same refresh token yields an independent
	// access token for the same principal.
	second, err := r.Resolve(context.Background(), "", refresh.Value)
	require.NoError(t, err)
	require.NotNil(t, second.Rotated)
	assert.NotEqual(t, first.Rotated.ID, second.Rotated.ID)
	assert.Equal(t, first.Principal, second.Principal)

	again, ok := later.Verify(second.Rotated.Value, TokenUseAccess)
	require.True(t, ok)
	assert.Equal(t, p.ID, again.ID)
	assert.True(t, again.IsBanned)

	res, err := r.Resolve(context.Background(), first.Rotated.Value, refresh.Value)
	require.NoError(t, err)
	assert.Nil(t, res.Rotated)
}

func TestResolver_Unauthenticated(t *testing.T) {
	codec := codecAt(testNow)
	r := newResolver(t, ResolverDependencies{Codec: codec})
	access, err := codec.IssueAccess(bannedCompany())
	require.NoError(t, err)

	tests := map[string][2]string{
		"no cookies":               {"", ""},
		"garbage":                  {"x", "y"},
		"access used as refresh":   {"", access.Value},
		"expired refresh and none": {"", mustExpiredRefresh(t)},
	}
	for name, cookies := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), cookies[0], cookies[1])
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthenticated))
		})
	}
}

func mustExpiredRefresh(t *testing.T) string {
	t.Helper()
	old, err := codecAt(testNow.Add(-8 * 24 * time.Hour)).IssueRefresh(bannedCompany())
	require.NoError(t, err)
	return old.Value
}

func TestResolver_StrictPolicyReloads(t *testing.T) {
	store := repository.NewMemoryStore()
	user := seedUser(t, store)
	codec := codecAt(testNow)
	access, err := codec.IssueAccess(user.Principal())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Accounts().WithTransaction(ctx, func(tx repository.AccountTx) error {
		_, err := tx.AppendBan(ctx, domain.KindUser, user.ID, domain.BanEntry{
			Titles: []string{"spam"}, Reasons: []string{"spam"}, ActorID: "m", ActorUsername: "mod",
			EndDate: testNow.Add(24 * time.Hour),
		})
		return err
	}))

	tokenOnly := newResolver(t, ResolverDependencies{Codec: codec})
	res, err := tokenOnly.Resolve(ctx, access.Value, "")
	require.NoError(t, err)
	assert.False(t, res.Principal.IsBanned, "default policy trusts the snapshot")

	strict := newResolver(t, ResolverDependencies{Codec: codec, Policy: config.ClaimsPolicyStrict, Accounts: store.Accounts()})
	res, err = strict.Resolve(ctx, access.Value, "")
	require.NoError(t, err)
	assert.True(t, res.Principal.IsBanned)
	assert.Equal(t, []string{"spam"}, res.Principal.BanReason)
	assert.Nil(t, res.Rotated)

	ghost, err := codec.IssueAccess(domain.Principal{ID: "gone", Kind: domain.KindUser, Active: true})
	require.NoError(t, err)
	_, err = strict.Resolve(ctx, ghost.Value, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthenticated))
}

func TestResolver_MarkerPolicy(t *testing.T) {
	store := repository.NewMemoryStore()
	user := seedUser(t, store)
	codec := codecAt(testNow)
	access, err := codec.IssueAccess(user.Principal())
	require.NoError(t, err)
	key := "USER:" + user.ID
	ctx := context.Background()

	t.Run("no marker trusts token", func(t *testing.T) {
		markers := &fakeMarkers{at: map[string]time.Time{}}
		r := newResolver(t, ResolverDependencies{Codec: codec, Policy: config.ClaimsPolicyMarker, Accounts: store.Accounts(), Markers: markers})
		res, err := r.Resolve(ctx, access.Value, "")
		require.NoError(t, err)
		assert.Nil(t, res.Rotated)
		assert.Equal(t, 1, markers.calls)
	})

	t.Run("older marker trusts token", func(t *testing.T) {
		markers := &fakeMarkers{at: map[string]time.Time{key: testNow.Add(-time.Minute)}}
		r := newResolver(t, ResolverDependencies{Codec: codec, Policy: config.ClaimsPolicyMarker, Accounts: store.Accounts(), Markers: markers})
		res, err := r.Resolve(ctx, access.Value, "")
		require.NoError(t, err)
		assert.Nil(t, res.Rotated)
	})

	t.Run("sub-second marker before issue time reloads", func(t *testing.T) {
		markers := &fakeMarkers{at: map[string]time.Time{key: testNow.Add(-500 * time.Millisecond)}}
		r := newResolver(t, ResolverDependencies{Codec: codec, Policy: config.ClaimsPolicyMarker, Accounts: store.Accounts(), Markers: markers})
		res, err := r.Resolve(ctx, access.Value, "")
		require.NoError(t, err)
		assert.Equal(t, user.ID, res.Principal.ID)
		assert.NotNil(t, res.Rotated)
	})

	t.Run("marker at issue time reloads and rotates", func(t *testing.T) {
		inactive := false
		_, err := store.Accounts().Update(ctx, domain.KindUser, user.ID, repository.AccountPatch{Active: &inactive})
		require.NoError(t, err)
		t.Cleanup(func() {
			active := true
			_, _ = store.Accounts().Update(ctx, domain.KindUser, user.ID, repository.AccountPatch{Active: &active})
		})

		markers := &fakeMarkers{at: map[string]time.Time{key: testNow}}
		r := newResolver(t, ResolverDependencies{Codec: codec, Policy: config.ClaimsPolicyMarker, Accounts: store.Accounts(), Markers: markers})
		res, err := r.Resolve(ctx, access.Value, "")
		require.NoError(t, err)
		assert.False(t, res.Principal.Active)
		require.NotNil(t, res.Rotated)

		fresh, ok := codec.Verify(res.Rotated.Value, TokenUseAccess)
		require.True(t, ok)
		assert.False(t, fresh.Active)
	})

	t.Run("marker lookup failure reloads", func(t *testing.T) {
		markers := &fakeMarkers{err: errors.New("redis down")}
		r := newResolver(t, ResolverDependencies{Codec: codec, Policy: config.ClaimsPolicyMarker, Accounts: store.Accounts(), Markers: markers})
		res, err := r.Resolve(ctx, access.Value, "")
		require.NoError(t, err)
		assert.Equal(t, user.ID, res.Principal.ID)
		assert.NotNil(t, res.Rotated)
	})
}

func TestNewResolver_PolicyRequirements(t *testing.T) {
	codec := codecAt(testNow)

	_, err := NewResolver(ResolverDependencies{})
	assert.Error(t, err)
	_, err = NewResolver(ResolverDependencies{Codec: codec, Policy: config.ClaimsPolicyStrict})
	assert.Error(t, err)
	_, err = NewResolver(ResolverDependencies{Codec: codec, Policy: config.ClaimsPolicyMarker, Accounts: repository.NewMemoryStore().Accounts()})
	assert.Error(t, err)
	_, err = NewResolver(ResolverDependencies{Codec: codec, Policy: "sometimes"})
	assert.Error(t, err)
}
