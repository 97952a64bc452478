package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/marketplace-service/internal/domain"
)

func seedAccount(t *testing.T, repo AccountRepository, kind domain.Kind, email string) *domain.Account {
	t.Helper()
	a := &domain.Account{Kind: kind, Username: email, Email: email, Role: domain.RoleUser, Active: true}
	require.NoError(t, repo.Create(context.Background(), a))
	return a
}

func TestMemoryStore_EmailUniquePerKind(t *testing.T) {
	store := NewMemoryStore()
	accounts := store.Accounts()

	seedAccount(t, accounts, domain.KindUser, "a@example.com")
	seedAccount(t, accounts, domain.KindCompany, "a@example.com")

	err := accounts.Create(context.Background(), &domain.Account{Kind: domain.KindUser, Email: "A@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryStore_TransactionRollsBack(t *testing.T) {
	store := NewMemoryStore()
	accounts := store.Accounts()
	ctx := context.Background()
	user := seedAccount(t, accounts, domain.KindUser, "u@example.com")

	offer := &domain.Offer{OwnerKind: domain.KindUser, OwnerID: user.ID, Category: domain.OfferCategoryVehicle, Title: "car", Active: true}
	require.NoError(t, store.Offers().Create(ctx, offer))

	boom := errors.New("boom")
	err := accounts.WithTransaction(ctx, func(tx AccountTx) error {
		_, err := tx.AppendBan(ctx, domain.KindUser, user.ID, domain.BanEntry{
			Titles: []string{"spam"}, Reasons: []string{"r"}, ActorID: "m", ActorUsername: "mod",
			EndDate: time.Now().Add(time.Hour),
		})
		require.NoError(t, err)
		_, err = tx.SetOffersOwnerBanned(ctx, domain.KindUser, user.ID, true)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	reloaded, err := accounts.FindByID(ctx, domain.KindUser, user.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Ledger.IsBanned)
	assert.Zero(t, reloaded.Ledger.BanCount)

	listed, err := store.Offers().ListPublic(ctx, OfferFilter{})
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestMemoryStore_OfferInheritsOwnerBan(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	company := seedAccount(t, store.Accounts(), domain.KindCompany, "c@example.com")

	require.NoError(t, store.Accounts().WithTransaction(ctx, func(tx AccountTx) error {
		_, err := tx.AppendBan(ctx, domain.KindCompany, company.ID, domain.BanEntry{
			Titles: []string{"fraud"}, Reasons: []string{"r"}, ActorID: "m", ActorUsername: "mod",
			EndDate: time.Now().Add(time.Hour),
		})
		return err
	}))

	offer := &domain.Offer{OwnerKind: domain.KindCompany, OwnerID: company.ID, Category: domain.OfferCategoryCommercial, Active: true}
	require.NoError(t, store.Offers().Create(ctx, offer))
	assert.True(t, offer.UserIsBanned)

	listed, err := store.Offers().ListPublic(ctx, OfferFilter{})
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestMemoryStore_OfferIgnoresExpiredOwnerBan(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	user := seedAccount(t, store.Accounts(), domain.KindUser, "u@example.com")

	require.NoError(t, store.Accounts().WithTransaction(ctx, func(tx AccountTx) error {
		_, err := tx.AppendBan(ctx, domain.KindUser, user.ID, domain.BanEntry{
			Titles: []string{"spam"}, Reasons: []string{"r"}, ActorID: "m", ActorUsername: "mod",
			EndDate: time.Now().Add(-time.Hour),
		})
		return err
	}))

	offer := &domain.Offer{OwnerKind: domain.KindUser, OwnerID: user.ID, Category: domain.OfferCategoryVehicle, Active: true}
	require.NoError(t, store.Offers().Create(ctx, offer))
	assert.False(t, offer.UserIsBanned)

	listed, err := store.Offers().ListPublic(ctx, OfferFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, offer.ID, listed[0].ID)
}

func TestMemoryStore_UnknownKind(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Accounts().FindByID(context.Background(), domain.Kind("ROBOT"), "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ResetTokenSingleUse(t *testing.T) {
	resets := NewMemoryStore().Resets()
	ctx := context.Background()

	token := &PasswordResetToken{
		Kind:        domain.KindCompany,
		PrincipalID: "c-1",
		Token:       "secret",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	require.NoError(t, resets.Create(ctx, token))
	require.NotEmpty(t, token.ID)

	found, err := resets.GetByToken(ctx, "secret")
	require.NoError(t, err)
	assert.Equal(t, domain.KindCompany, found.Kind)
	assert.Nil(t, found.UsedAt)

	require.NoError(t, resets.MarkUsed(ctx, token.ID))
	assert.ErrorIs(t, resets.MarkUsed(ctx, token.ID), ErrNotFound)

	_, err = resets.GetByToken(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ResetTokenSweep(t *testing.T) {
	resets := NewMemoryStore().Resets()
	ctx := context.Background()
	now := time.Now()

	stale := &PasswordResetToken{Kind: domain.KindUser, PrincipalID: "u-1", Token: "stale", ExpiresAt: now.Add(-time.Minute)}
	live := &PasswordResetToken{Kind: domain.KindUser, PrincipalID: "u-1", Token: "live", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, resets.Create(ctx, stale))
	require.NoError(t, resets.Create(ctx, live))

	n, err := resets.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = resets.GetByToken(ctx, "stale")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = resets.GetByToken(ctx, "live")
	assert.NoError(t, err)
}
