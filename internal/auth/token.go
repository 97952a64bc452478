package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/marketplace-service/internal/domain"
)

// TokenUse separates access tokens from refresh tokens.
type TokenUse string

const (
	TokenUseAccess  TokenUse = "access"
	TokenUseRefresh TokenUse = "refresh"
)

// KindSecrets holds the signing secrets of one principal kind.
type KindSecrets struct {
	Access  []byte
	Refresh []byte
}

// TokenCodec handles issuing and validating JWT tokens.
type TokenCodec struct {
	secrets    map[domain.Kind]KindSecrets
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenCodec builds a codec. Non-positive lifetimes fall back to one hour
// for access tokens and seven days for refresh tokens.
func NewTokenCodec(secrets map[domain.Kind]KindSecrets, accessTTL, refreshTTL time.Duration) *TokenCodec {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenCodec{secrets: secrets, accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}
}

// WithClock returns a copy of the codec that reads time from now.
func (tc *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	clone := *tc
	clone.now = now
	return &clone
}

// Claims describes the JWT payload: a point-in-time copy of the principal.
type Claims struct {
	PrincipalID string      `json:"pid"`
	Kind        domain.Kind `json:"kind"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	Role        domain.Role `json:"role"`
	Active      bool        `json:"active"`
	IsBanned    bool        `json:"is_banned"`
	BanReason   []string    `json:"ban_reason,omitempty"`
	BanEndDate  *time.Time  `json:"ban_end_date,omitempty"`
	BanCount    int         `json:"ban_count"`
	Use         TokenUse    `json:"use"`
	jwt.RegisteredClaims
}

// Principal rebuilds the principal snapshot carried by the claims.
func (c *Claims) Principal() domain.Principal {
	p := domain.Principal{
		ID:        c.PrincipalID,
		Kind:      c.Kind,
		Username:  c.Username,
		Email:     c.Email,
		Role:      c.Role,
		Active:    c.Active,
		IsBanned:  c.IsBanned,
		BanReason: domain.CloneStrings(c.BanReason),
		BanCount:  c.BanCount,
	}
	if c.BanEndDate != nil {
		end := *c.BanEndDate
		p.BanEndDate = &end
	}
	return p
}

// IssuedToken is a signed token and its expiry.
type IssuedToken struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// IssueAccess signs a short-lived access token for p.
func (tc *TokenCodec) IssueAccess(p domain.Principal) (IssuedToken, error) {
	return tc.issue(p, TokenUseAccess, tc.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for p.
func (tc *TokenCodec) IssueRefresh(p domain.Principal) (IssuedToken, error) {
	return tc.issue(p, TokenUseRefresh, tc.refreshTTL)
}

// IssuePair issues both tokens for p.
func (tc *TokenCodec) IssuePair(p domain.Principal) (*domain.TokenPair, error) {
	access, err := tc.IssueAccess(p)
	if err != nil {
		return nil, err
	}
	refresh, err := tc.IssueRefresh(p)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{
		AccessToken:      access.Value,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshToken:     refresh.Value,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

// AccessTTL exposes the access token lifetime.
func (tc *TokenCodec) AccessTTL() time.Duration { return tc.accessTTL }

// RefreshTTL exposes the refresh token lifetime.
func (tc *TokenCodec) RefreshTTL() time.Duration { return tc.refreshTTL }

func (tc *TokenCodec) issue(p domain.Principal, use TokenUse, ttl time.Duration) (IssuedToken, error) {
	secret, err := tc.secretFor(p.Kind, use)
	if err != nil {
		return IssuedToken{}, err
	}

	now := tc.now()
	expiresAt := now.Add(ttl)
	jti := uuid.NewString()
	var banEnd *time.Time
	if p.BanEndDate != nil {
		end := p.BanEndDate.UTC()
		banEnd = &end
	}
	claims := &Claims{
		PrincipalID: p.ID,
		Kind:        p.Kind,
		Username:    p.Username,
		Email:       p.Email,
		Role:        p.Role,
		Active:      p.Active,
		IsBanned:    p.IsBanned,
		BanReason:   p.BanReason,
		BanEndDate:  banEnd,
		BanCount:    p.BanCount,
		Use:         use,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   p.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = string(p.Kind)
	signed, err := token.SignedString(secret)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Value: signed, ID: jti, ExpiresAt: expiresAt}, nil
}

// Verify returns the principal embedded in a valid token of the given use.
// Any failure (signature, expiry, wrong use or kind) yields false.
func (tc *TokenCodec) Verify(tokenStr string, use TokenUse) (*domain.Principal, bool) {
	claims, ok := tc.VerifyClaims(tokenStr, use)
	if !ok {
		return nil, false
	}
	p := claims.Principal()
	return &p, true
}

// VerifyClaims is Verify returning the raw claims, for callers that need the
// issue time or token id.
func (tc *TokenCodec) VerifyClaims(tokenStr string, use TokenUse) (*Claims, bool) {
	if tokenStr == "" {
		return nil, false
	}
	claims, err := tc.parse(tokenStr, use)
	if err != nil {
		return nil, false
	}
	return claims, true
}

func (tc *TokenCodec) parse(tokenStr string, use TokenUse) (*Claims, error) {
	var headerKind domain.Kind
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		headerKind = domain.Kind(kid)
		return tc.secretFor(headerKind, use)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tc.now),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Use != use {
		return nil, errors.New("unexpected token use")
	}
	if claims.Kind != headerKind || claims.PrincipalID == "" {
		return nil, errors.New("token kind mismatch")
	}
	return claims, nil
}

func (tc *TokenCodec) secretFor(kind domain.Kind, use TokenUse) ([]byte, error) {
	if !kind.Valid() {
		return nil, errors.New("unknown principal kind")
	}
	secrets, ok := tc.secrets[kind]
	if !ok {
		return nil, errors.New("no secrets configured for kind")
	}
	var secret []byte
	switch use {
	case TokenUseAccess:
		secret = secrets.Access
	case TokenUseRefresh:
		secret = secrets.Refresh
	default:
		return nil, errors.New("unknown token use")
	}
	if len(secret) == 0 {
		return nil, errors.New("empty secret")
	}
	return secret, nil
}
