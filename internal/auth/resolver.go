package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-service/internal/config"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/observability"
	"github.com/spec-kit/marketplace-service/internal/repository"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

// AccountSource loads the persisted record behind a principal.
type AccountSource interface {
	FindByID(ctx context.Context, kind domain.Kind, id string) (*domain.Account, error)
}

// InvalidationMarkers reports when the moderation state of a principal last
// changed.
type InvalidationMarkers interface {
	InvalidatedAt(ctx context.Context, kind domain.Kind, id string) (time.Time, bool, error)
}

// Resolution is the outcome of resolving a request's credentials. Rotated is
// set when a new access token was issued and must be sent back as a cookie.
type Resolution struct {
	Principal domain.Principal
	Rotated   *IssuedToken
}

// ResolverDependencies bundles the collaborators of the resolver. Accounts is
// required for the marker and strict policies, Markers for the marker policy.
type ResolverDependencies struct {
	Codec    *TokenCodec
	Policy   config.ClaimsPolicy
	Accounts AccountSource
	Markers  InvalidationMarkers
	Logger   *zap.Logger
	Metrics  *observability.Metrics
}

// markerGrace widens the marker window. Token issue times are truncated to
// the second and a token may be signed from a read that predates the commit
// the marker follows.
const markerGrace = time.Second

// Resolver turns credential cookies into a principal, rotating the access
// token from the refresh token when needed.
type Resolver struct {
	codec    *TokenCodec
	policy   config.ClaimsPolicy
	accounts AccountSource
	markers  InvalidationMarkers
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewResolver constructs a resolver.
func NewResolver(deps ResolverDependencies) (*Resolver, error) {
	if deps.Codec == nil {
		return nil, errors.New("resolver requires a token codec")
	}
	policy := deps.Policy
	if policy == "" {
		policy = config.ClaimsPolicyToken
	}
	switch policy {
	case config.ClaimsPolicyToken:
	case config.ClaimsPolicyStrict:
		if deps.Accounts == nil {
			return nil, errors.New("strict claims policy requires an account source")
		}
	case config.ClaimsPolicyMarker:
		if deps.Accounts == nil || deps.Markers == nil {
			return nil, errors.New("marker claims policy requires accounts and markers")
		}
	default:
		return nil, fmt.Errorf("unknown claims policy %q", policy)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		codec:    deps.Codec,
		policy:   policy,
		accounts: deps.Accounts,
		markers:  deps.Markers,
		logger:   logger,
		metrics:  deps.Metrics,
	}, nil
}

// Resolve authenticates the caller from the raw cookie values. Either value
// may be empty.
func (r *Resolver) Resolve(ctx context.Context, accessToken, refreshToken string) (*Resolution, error) {
	if claims, ok := r.codec.VerifyClaims(accessToken, TokenUseAccess); ok {
		principal, reloaded, err := r.revalidate(ctx, claims)
		if err != nil {
			return nil, err
		}
		res := &Resolution{Principal: principal}
		// A marker newer than the token means the snapshot is stale; hand out
		// a fresh one so the next request skips the store.
		if reloaded && r.policy == config.ClaimsPolicyMarker {
			if err := r.rotate(res); err != nil {
				return nil, err
			}
		}
		return res, nil
	}

	if claims, ok := r.codec.VerifyClaims(refreshToken, TokenUseRefresh); ok {
		principal, _, err := r.revalidate(ctx, claims)
		if err != nil {
			return nil, err
		}
		res := &Resolution{Principal: principal}
		if err := r.rotate(res); err != nil {
			return nil, err
		}
		return res, nil
	}

	return nil, apperrors.NewUnauthenticated("authentication required")
}

func (r *Resolver) rotate(res *Resolution) error {
	issued, err := r.codec.IssueAccess(res.Principal)
	if err != nil {
		return apperrors.NewInternalError(fmt.Errorf("issue access token: %w", err))
	}
	res.Rotated = &issued
	r.metrics.RecordRotation(string(res.Principal.Kind))
	r.logger.Debug("access token rotated",
		zap.String("principal_id", res.Principal.ID),
		zap.String("kind", string(res.Principal.Kind)))
	return nil
}

// revalidate applies the claims policy. reloaded reports whether the
// principal came from the store instead of the token.
func (r *Resolver) revalidate(ctx context.Context, claims *Claims) (domain.Principal, bool, error) {
	switch r.policy {
	case config.ClaimsPolicyStrict:
		p, err := r.load(ctx, claims.Kind, claims.PrincipalID)
		return p, true, err
	case config.ClaimsPolicyMarker:
		at, found, err := r.markers.InvalidatedAt(ctx, claims.Kind, claims.PrincipalID)
		if err != nil {
			r.logger.Warn("invalidation marker lookup failed; reloading principal", zap.Error(err))
			p, loadErr := r.load(ctx, claims.Kind, claims.PrincipalID)
			return p, true, loadErr
		}
		if found && (claims.IssuedAt == nil || !claims.IssuedAt.Time.After(at.Add(markerGrace))) {
			p, err := r.load(ctx, claims.Kind, claims.PrincipalID)
			return p, true, err
		}
		return claims.Principal(), false, nil
	default:
		return claims.Principal(), false, nil
	}
}

func (r *Resolver) load(ctx context.Context, kind domain.Kind, id string) (domain.Principal, error) {
	account, err := r.accounts.FindByID(ctx, kind, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Principal{}, apperrors.NewUnauthenticated("principal no longer exists")
		}
		return domain.Principal{}, apperrors.NewInternalError(err)
	}
	return account.Principal(), nil
}
