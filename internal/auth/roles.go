package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-service/internal/domain"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

// RequireRole ensures the principal holds at least min.
func RequireRole(min domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		if !principal.Role.AtLeast(min) {
			return apperrors.NewForbidden("insufficient role", string(min))
		}
		return c.Next()
	}
}

// WriteChecker decides whether a principal may perform a write at now.
type WriteChecker interface {
	CheckWriteAllowed(p domain.Principal, now time.Time) error
}

// RequireWriteAllowed refuses the request before the handler runs when the
// resolved principal is inactive or under an active ban.
func RequireWriteAllowed(checker WriteChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		if err := checker.CheckWriteAllowed(*principal, time.Now()); err != nil {
			return err
		}
		return c.Next()
	}
}
