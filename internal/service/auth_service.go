package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/events"
	"github.com/spec-kit/marketplace-service/internal/repository"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

const (
	minPasswordLength       = 8
	defaultPasswordResetTTL = 30 * time.Minute
)

// AuthResult is an account together with freshly issued tokens.
type AuthResult struct {
	Account *domain.Account
	Tokens  *domain.TokenPair
}

// ProfileInput lists the profile fields a principal may change. Username is
// the company name for company accounts.
type ProfileInput struct {
	Username *string
	Email    *string
}

// AuthService coordinates registration, login and self-service account flows
// for both principal kinds.
type AuthService struct {
	accounts   repository.AccountRepository
	resets     repository.PasswordResetRepository
	codec      *auth.TokenCodec
	gate       *BanGate
	publisher  events.Publisher
	bcryptCost int
	resetTTL   time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	Accounts         repository.AccountRepository
	Resets           repository.PasswordResetRepository
	Codec            *auth.TokenCodec
	Gate             *BanGate
	Publisher        events.Publisher
	BcryptCost       int
	PasswordResetTTL time.Duration
	Logger           *zap.Logger
	Now              func() time.Time
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	gate := deps.Gate
	if gate == nil {
		gate = NewBanGate(nil)
	}
	resetTTL := deps.PasswordResetTTL
	if resetTTL <= 0 {
		resetTTL = defaultPasswordResetTTL
	}
	return &AuthService{
		accounts:   deps.Accounts,
		resets:     deps.Resets,
		codec:      deps.Codec,
		gate:       gate,
		publisher:  deps.Publisher,
		bcryptCost: deps.BcryptCost,
		resetTTL:   resetTTL,
		logger:     logger,
		now:        now,
	}
}

// RegisterUser creates a user account.
func (s *AuthService) RegisterUser(ctx context.Context, username, email, password string) (*AuthResult, error) {
	return s.Register(ctx, domain.KindUser, username, email, password)
}

// RegisterCompany creates a company account.
func (s *AuthService) RegisterCompany(ctx context.Context, companyName, email, password string) (*AuthResult, error) {
	return s.Register(ctx, domain.KindCompany, companyName, email, password)
}

// Register creates an active account of the given kind with an empty ban
// ledger and signs it in.
func (s *AuthService) Register(ctx context.Context, kind domain.Kind, name, email, password string) (*AuthResult, error) {
	if !kind.Valid() {
		return nil, apperrors.NewInvalidArgument("invalid principal kind", map[string]any{"kind": kind})
	}
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	details := map[string]any{}
	if name == "" {
		details["name"] = "is required"
	}
	if email == "" {
		details["email"] = "is required"
	}
	if len(password) < minPasswordLength {
		details["password"] = "must be at least 8 characters"
	}
	if len(details) > 0 {
		return nil, apperrors.NewInvalidArgument("invalid registration", details)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	account := &domain.Account{
		Kind:         kind,
		Username:     name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Active:       true,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
		}
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("account registered",
		zap.String("principal_id", account.ID),
		zap.String("kind", string(kind)))
	return s.signIn(account)
}

// Login authenticates by email and password. Banned principals may still
// sign in; the ban snapshot travels in their tokens and the gate refuses
// their writes.
func (s *AuthService) Login(ctx context.Context, kind domain.Kind, email, password string) (*AuthResult, error) {
	if !kind.Valid() {
		return nil, apperrors.NewInvalidArgument("invalid principal kind", map[string]any{"kind": kind})
	}
	account, err := s.accounts.FindByEmail(ctx, kind, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			auth.BurnPasswordCheck(password)
			return nil, apperrors.NewUnauthenticated("invalid credentials")
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		if auth.IsPasswordMismatch(err) {
			return nil, apperrors.NewUnauthenticated("invalid credentials")
		}
		return nil, apperrors.NewInternalError(err)
	}
	if !account.Active {
		return nil, apperrors.NewInactive()
	}
	return s.signIn(account)
}

// Me returns the stored account behind p.
func (s *AuthService) Me(ctx context.Context, p domain.Principal) (*domain.Account, error) {
	account, err := s.accounts.FindByID(ctx, p.Kind, p.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthenticated("principal no longer exists")
		}
		return nil, apperrors.NewInternalError(err)
	}
	return account, nil
}

// ChangePassword verifies the current password before storing the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, p domain.Principal, currentPassword, newPassword string) error {
	if err := s.gate.CheckWriteAllowed(p, s.now()); err != nil {
		return err
	}
	if len(newPassword) < minPasswordLength {
		return apperrors.NewInvalidArgument("invalid password", map[string]any{"new_password": "must be at least 8 characters"})
	}
	account, err := s.Me(ctx, p)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(account.PasswordHash, currentPassword); err != nil {
		if auth.IsPasswordMismatch(err) {
			return apperrors.NewUnauthenticated("invalid credentials")
		}
		return apperrors.NewInternalError(err)
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if _, err := s.accounts.Update(ctx, p.Kind, p.ID, repository.AccountPatch{PasswordHash: &hash}); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// UpdateProfile changes the username or email and reissues tokens so the
// embedded snapshot matches the store.
func (s *AuthService) UpdateProfile(ctx context.Context, p domain.Principal, input ProfileInput) (*AuthResult, error) {
	if err := s.gate.CheckWriteAllowed(p, s.now()); err != nil {
		return nil, err
	}

	patch := repository.AccountPatch{}
	details := map[string]any{}
	if input.Username != nil {
		name := strings.TrimSpace(*input.Username)
		if name == "" {
			details["username"] = "must not be empty"
		}
		patch.Username = &name
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if email == "" {
			details["email"] = "must not be empty"
		}
		patch.Email = &email
	}
	if len(details) > 0 {
		return nil, apperrors.NewInvalidArgument("invalid profile update", details)
	}
	if patch.Empty() {
		return nil, apperrors.NewInvalidArgument("nothing to update", nil)
	}

	account, err := s.accounts.Update(ctx, p.Kind, p.ID, patch)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperrors.NewConflict("email already registered", nil)
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NewUnauthenticated("principal no longer exists")
		default:
			return nil, apperrors.NewInternalError(err)
		}
	}
	return s.signIn(account)
}

// RequestPasswordReset stores a one-time reset token for the account with
// the given email and publishes it for delivery. An unknown email returns a
// nil token and no error so callers cannot probe for registered addresses.
func (s *AuthService) RequestPasswordReset(ctx context.Context, kind domain.Kind, email string) (*repository.PasswordResetToken, error) {
	if !kind.Valid() {
		return nil, apperrors.NewInvalidArgument("invalid principal kind", map[string]any{"kind": kind})
	}
	if s.resets == nil {
		return nil, apperrors.NewInternalError(errors.New("password reset store not configured"))
	}
	email = normalizeEmail(email)
	account, err := s.accounts.FindByEmail(ctx, kind, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewInternalError(err)
	}
	if !account.Active {
		return nil, nil
	}

	now := s.now()
	token := &repository.PasswordResetToken{
		Kind:        kind,
		PrincipalID: account.ID,
		Token:       uuid.NewString(),
		ExpiresAt:   now.Add(s.resetTTL).UTC(),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	if s.publisher != nil {
		subject := events.Ref{Kind: kind, ID: account.ID}
		event := events.NewEvent(events.EventPasswordResetRequested, subject, subject, now, events.PasswordResetRequestedPayload{
			Email:     account.Email,
			Token:     token.Token,
			ExpiresAt: token.ExpiresAt,
		})
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("password reset publish failed",
				zap.String("principal_id", account.ID),
				zap.Error(err))
		}
	}
	return token, nil
}

// ConfirmPasswordReset redeems a reset token. The new password is a write
// on the account, so a banned or inactive account is refused.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	if s.resets == nil {
		return apperrors.NewInternalError(errors.New("password reset store not configured"))
	}
	if len(newPassword) < minPasswordLength {
		return apperrors.NewInvalidArgument("invalid password", map[string]any{"new_password": "must be at least 8 characters"})
	}
	invalid := apperrors.NewInvalidArgument("reset token is invalid or expired", nil)

	token, err := s.resets.GetByToken(ctx, strings.TrimSpace(tokenStr))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalid
		}
		return apperrors.NewInternalError(err)
	}
	now := s.now()
	if token.UsedAt != nil || !now.Before(token.ExpiresAt) {
		return invalid
	}

	account, err := s.accounts.FindByID(ctx, token.Kind, token.PrincipalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalid
		}
		return apperrors.NewInternalError(err)
	}
	if err := s.gate.CheckWriteAllowed(account.Principal(), now); err != nil {
		return err
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.resets.MarkUsed(ctx, token.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalid
		}
		return apperrors.NewInternalError(err)
	}
	if _, err := s.accounts.Update(ctx, token.Kind, token.PrincipalID, repository.AccountPatch{PasswordHash: &hash}); err != nil {
		return apperrors.NewInternalError(err)
	}

	s.logger.Info("password reset",
		zap.String("principal_id", account.ID),
		zap.String("kind", string(account.Kind)))
	return nil
}

// Codec exposes the token codec for middleware wiring.
func (s *AuthService) Codec() *auth.TokenCodec {
	return s.codec
}

func (s *AuthService) signIn(account *domain.Account) (*AuthResult, error) {
	tokens, err := s.codec.IssuePair(account.Principal())
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{Account: account, Tokens: tokens}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
