package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/events"
	"github.com/spec-kit/marketplace-service/internal/repository"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

func testCodec() *auth.TokenCodec {
	return auth.NewTokenCodec(map[domain.Kind]auth.KindSecrets{
		domain.KindUser:    {Access: []byte("user-access"), Refresh: []byte("user-refresh")},
		domain.KindCompany: {Access: []byte("company-access"), Refresh: []byte("company-refresh")},
	}, time.Hour, 7*24*time.Hour)
}

func newAuthService(store *repository.MemoryStore) *AuthService {
	return NewAuthService(AuthDependencies{
		Accounts:   store.Accounts(),
		Resets:     store.Resets(),
		Codec:      testCodec(),
		BcryptCost: 4,
		Now:        func() time.Time { return fixedNow },
	})
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newAuthService(store)
	ctx := context.Background()

	registered, err := svc.RegisterCompany(ctx, "Acme Motors", " Sales@Acme.test ", "password123")
	require.NoError(t, err)
	assert.Equal(t, domain.KindCompany, registered.Account.Kind)
	assert.Equal(t, "sales@acme.test", registered.Account.Email)
	assert.Equal(t, domain.RoleUser, registered.Account.Role)
	assert.True(t, registered.Account.Active)
	assert.Zero(t, registered.Account.Ledger.BanCount)

	p, ok := svc.Codec().Verify(registered.Tokens.AccessToken, auth.TokenUseAccess)
	require.True(t, ok)
	assert.Equal(t, registered.Account.ID, p.ID)
	assert.Equal(t, domain.KindCompany, p.Kind)

	loggedIn, err := svc.Login(ctx, domain.KindCompany, "sales@acme.test", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.Account.ID, loggedIn.Account.ID)

	_, err = svc.Login(ctx, domain.KindUser, "sales@acme.test", "password123")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthenticated), "kinds do not share credentials")

	_, err = svc.Login(ctx, domain.KindCompany, "sales@acme.test", "wrong-password")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthenticated))
}

func TestAuthService_RegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newAuthService(store)
	ctx := context.Background()

	_, err := svc.RegisterUser(ctx, "alice", "alice@example.com", "password123")
	require.NoError(t, err)

	_, err = svc.RegisterUser(ctx, "alice2", "ALICE@example.com", "password123")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	_, err = svc.RegisterUser(ctx, "", "bob@example.com", "short")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidArgument))
}

func TestAuthService_LoginInactive(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newAuthService(store)
	ctx := context.Background()

	res, err := svc.RegisterUser(ctx, "carol", "carol@example.com", "password123")
	require.NoError(t, err)
	inactive := false
	_, err = store.Accounts().Update(ctx, domain.KindUser, res.Account.ID, repository.AccountPatch{Active: &inactive})
	require.NoError(t, err)

	_, err = svc.Login(ctx, domain.KindUser, "carol@example.com", "password123")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInactive))
}

func TestAuthService_BannedPrincipalCanLoginButNotWrite(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newAuthService(store)
	ctx := context.Background()

	res, err := svc.RegisterUser(ctx, "dave", "dave@example.com", "password123")
	require.NoError(t, err)
	require.NoError(t, store.Accounts().WithTransaction(ctx, func(tx repository.AccountTx) error {
		_, err := tx.AppendBan(ctx, domain.KindUser, res.Account.ID, domain.BanEntry{
			Titles: []string{"spam"}, Reasons: []string{"spam"}, ActorID: "m", ActorUsername: "mod",
			EndDate: fixedNow.Add(24 * time.Hour),
		})
		return err
	}))

	loggedIn, err := svc.Login(ctx, domain.KindUser, "dave@example.com", "password123")
	require.NoError(t, err)
	p, ok := svc.Codec().Verify(loggedIn.Tokens.AccessToken, auth.TokenUseAccess)
	require.True(t, ok)
	assert.True(t, p.IsBanned)

	err = svc.ChangePassword(ctx, *p, "password123", "another-password")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBanned))

	name := "dave2"
	_, err = svc.UpdateProfile(ctx, *p, ProfileInput{Username: &name})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBanned))
}

func TestAuthService_ChangePassword(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newAuthService(store)
	ctx := context.Background()

	res, err := svc.RegisterUser(ctx, "erin", "erin@example.com", "password123")
	require.NoError(t, err)
	p := res.Account.Principal()

	err = svc.ChangePassword(ctx, p, "not-current", "new-password")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthenticated))

	require.NoError(t, svc.ChangePassword(ctx, p, "password123", "new-password"))

	_, err = svc.Login(ctx, domain.KindUser, "erin@example.com", "password123")
	assert.Error(t, err)
	_, err = svc.Login(ctx, domain.KindUser, "erin@example.com", "new-password")
	assert.NoError(t, err)
}

func TestAuthService_UpdateProfileReissuesTokens(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newAuthService(store)
	ctx := context.Background()

	first, err := svc.RegisterUser(ctx, "frank", "frank@example.com", "password123")
	require.NoError(t, err)
	_, err = svc.RegisterUser(ctx, "gina", "gina@example.com", "password123")
	require.NoError(t, err)

	taken := "gina@example.com"
	_, err = svc.UpdateProfile(ctx, first.Account.Principal(), ProfileInput{Email: &taken})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	_, err = svc.UpdateProfile(ctx, first.Account.Principal(), ProfileInput{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidArgument))

	email := "frank@new.example.com"
	updated, err := svc.UpdateProfile(ctx, first.Account.Principal(), ProfileInput{Email: &email})
	require.NoError(t, err)
	p, ok := svc.Codec().Verify(updated.Tokens.AccessToken, auth.TokenUseAccess)
	require.True(t, ok)
	assert.Equal(t, email, p.Email)
}

func TestAuthService_PasswordResetFlow(t *testing.T) {
	store := repository.NewMemoryStore()
	dispatcher := events.NewInMemoryDispatcher()
	var published []events.Event
	dispatcher.Subscribe(events.EventPasswordResetRequested, func(_ context.Context, e events.Event) error {
		published = append(published, e)
		return nil
	})
	svc := NewAuthService(AuthDependencies{
		Accounts:         store.Accounts(),
		Resets:           store.Resets(),
		Codec:            testCodec(),
		Publisher:        dispatcher,
		BcryptCost:       4,
		PasswordResetTTL: 15 * time.Minute,
		Now:              func() time.Time { return fixedNow },
	})
	ctx := context.Background()

	res, err := svc.RegisterCompany(ctx, "Acme Motors", "sales@acme.test", "password123")
	require.NoError(t, err)

	token, err := svc.RequestPasswordReset(ctx, domain.KindCompany, " SALES@acme.test ")
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, res.Account.ID, token.PrincipalID)
	assert.True(t, fixedNow.Add(15*time.Minute).Equal(token.ExpiresAt))

	require.Len(t, published, 1)
	payload, ok := published[0].Payload.(events.PasswordResetRequestedPayload)
	require.True(t, ok)
	assert.Equal(t, token.Token, payload.Token)
	assert.Equal(t, domain.KindCompany, published[0].Subject.Kind)

	err = svc.ConfirmPasswordReset(ctx, token.Token, "short")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidArgument))

	require.NoError(t, svc.ConfirmPasswordReset(ctx, token.Token, "brand-new-pass"))
	_, err = svc.Login(ctx, domain.KindCompany, "sales@acme.test", "brand-new-pass")
	require.NoError(t, err)

	err = svc.ConfirmPasswordReset(ctx, token.Token, "another-pass")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidArgument), "tokens are single use")
}

func TestAuthService_PasswordResetUnknownEmail(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newAuthService(store)
	ctx := context.Background()

	_, err := svc.RegisterUser(ctx, "hank", "hank@example.com", "password123")
	require.NoError(t, err)

	token, err := svc.RequestPasswordReset(ctx, domain.KindCompany, "hank@example.com")
	require.NoError(t, err)
	assert.Nil(t, token, "email lookups are per kind")

	err = svc.ConfirmPasswordReset(ctx, "not-a-token", "password123")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidArgument))
}

func TestAuthService_PasswordResetExpiredAndBanned(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newAuthService(store)
	ctx := context.Background()

	res, err := svc.RegisterUser(ctx, "ivy", "ivy@example.com", "password123")
	require.NoError(t, err)

	expired, err := svc.RequestPasswordReset(ctx, domain.KindUser, "ivy@example.com")
	require.NoError(t, err)
	later := NewAuthService(AuthDependencies{
		Accounts:   store.Accounts(),
		Resets:     store.Resets(),
		Codec:      testCodec(),
		BcryptCost: 4,
		Now:        func() time.Time { return fixedNow.Add(time.Hour) },
	})
	err = later.ConfirmPasswordReset(ctx, expired.Token, "password456")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidArgument))

	fresh, err := svc.RequestPasswordReset(ctx, domain.KindUser, "ivy@example.com")
	require.NoError(t, err)
	require.NoError(t, store.Accounts().WithTransaction(ctx, func(tx repository.AccountTx) error {
		_, err := tx.AppendBan(ctx, domain.KindUser, res.Account.ID, domain.BanEntry{
			Titles: []string{"spam"}, Reasons: []string{"spam"}, ActorID: "m", ActorUsername: "mod",
			EndDate: fixedNow.Add(24 * time.Hour),
		})
		return err
	}))
	err = svc.ConfirmPasswordReset(ctx, fresh.Token, "password456")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBanned))
}
