package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-service/internal/api/dto"
	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/domain"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

func bindJSON(c *fiber.Ctx, v *dto.Validator, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	return v.Validate(out)
}

func currentPrincipal(c *fiber.Ctx) (domain.Principal, error) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok || p == nil {
		return domain.Principal{}, apperrors.NewUnauthenticated("authentication required")
	}
	return *p, nil
}

func kindParam(c *fiber.Ctx) (domain.Kind, error) {
	kind, err := domain.ParseKind(c.Params("kind"))
	if err != nil {
		return "", apperrors.NewInvalidArgument("invalid principal kind", map[string]any{"kind": c.Params("kind")})
	}
	return kind, nil
}
