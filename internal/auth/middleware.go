package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/observability"
)

// AuthMiddleware resolves the principal from the credential cookies.
type AuthMiddleware struct {
	resolver *Resolver
	cookies  CookieFactory
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(resolver *Resolver, cookies CookieFactory) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver, cookies: cookies}
}

// Handle enforces authentication for protected routes. When the access token
// was rotated the new cookie is attached to the response and the request
// proceeds.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	res, err := m.resolver.Resolve(c.UserContext(), c.Cookies(AccessTokenCookie), c.Cookies(RefreshTokenCookie))
	if err != nil {
		return err
	}
	if res.Rotated != nil {
		c.Cookie(m.cookies.Access(res.Rotated.Value))
	}

	principal := res.Principal
	c.Locals(observability.PrincipalLocalsKey, &principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Principal, bool) {
	val := c.Locals(observability.PrincipalLocalsKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*domain.Principal)
	return principal, ok
}
