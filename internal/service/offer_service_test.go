package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/repository"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

func newOfferService(store *repository.MemoryStore) *OfferService {
	svc := NewOfferService(store.Offers(), NewBanGate(nil))
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestOfferService_OwnerLifecycle(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newOfferService(store)
	ctx := context.Background()
	owner := domain.Principal{ID: "owner-1", Kind: domain.KindUser, Active: true}

	offer, err := svc.Create(ctx, owner, OfferCreateInput{
		Category: domain.OfferCategoryRealEstate, Title: " Flat ", PriceCents: 1500000,
	})
	require.NoError(t, err)
	assert.Equal(t, "Flat", offer.Title)
	assert.True(t, offer.Active)

	title := "Bright flat"
	updated, err := svc.Update(ctx, owner, offer.ID, OfferUpdateInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)

	listed, err := svc.ListPublic(ctx, repository.OfferFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, svc.Delete(ctx, owner, offer.ID))
	err = svc.Delete(ctx, owner, offer.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestOfferService_OwnershipIsPerKind(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newOfferService(store)
	ctx := context.Background()
	user := domain.Principal{ID: "same-id", Kind: domain.KindUser, Active: true}
	company := domain.Principal{ID: "same-id", Kind: domain.KindCompany, Active: true}

	offer, err := svc.Create(ctx, user, OfferCreateInput{Category: domain.OfferCategoryVehicle, Title: "car"})
	require.NoError(t, err)

	err = svc.Delete(ctx, company, offer.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestOfferService_GateRunsBeforeStore(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newOfferService(store)
	ctx := context.Background()
	end := fixedNow.Add(time.Hour)
	banned := domain.Principal{ID: "b", Kind: domain.KindCompany, Active: true, IsBanned: true, BanReason: []string{"fraud"}, BanEndDate: &end}

	_, err := svc.Create(ctx, banned, OfferCreateInput{Category: domain.OfferCategoryCommercial, Title: "shop"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBanned))

	_, err = svc.Update(ctx, banned, "missing", OfferUpdateInput{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBanned), "gate must answer before the lookup")

	inactive := domain.Principal{ID: "i", Kind: domain.KindUser}
	err = svc.Delete(ctx, inactive, "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInactive))
}

func TestOfferService_Validation(t *testing.T) {
	svc := newOfferService(repository.NewMemoryStore())
	owner := domain.Principal{ID: "o", Kind: domain.KindUser, Active: true}

	_, err := svc.Create(context.Background(), owner, OfferCreateInput{Category: "BOAT", Title: "", PriceCents: -1})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidArgument))
}

func TestOfferService_CreateAfterBanExpiry(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()
	mod := f.account(t, domain.KindUser, "mod", domain.RoleModerator)
	seller := f.account(t, domain.KindUser, "seller", domain.RoleUser)

	_, err := f.service.ApplyBan(ctx, mod.Principal(), BanInput{
		TargetID: seller.ID, TargetKind: domain.KindUser,
		BannTitle: []string{"spam"}, BanReason: []string{"r"}, DurationDays: 1,
	})
	require.NoError(t, err)

	svc := newOfferService(f.store)
	svc.now = func() time.Time { return fixedNow.Add(48 * time.Hour) }
	offer, err := svc.Create(ctx, f.reload(t, seller).Principal(), OfferCreateInput{
		Category: domain.OfferCategoryVehicle, Title: "sedan",
	})
	require.NoError(t, err)
	assert.False(t, offer.UserIsBanned)

	listed, err := svc.ListPublic(ctx, repository.OfferFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, offer.ID, listed[0].ID)
}
