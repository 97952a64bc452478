package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-service/internal/api/dto"
	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/service"
)

// AccountHandler exposes self-service account changes.
type AccountHandler struct {
	auth      *service.AuthService
	cookies   auth.CookieFactory
	validator *dto.Validator
}

// NewAccountHandler constructs handler.
func NewAccountHandler(authService *service.AuthService, cookies auth.CookieFactory, validator *dto.Validator) *AccountHandler {
	return &AccountHandler{auth: authService, cookies: cookies, validator: validator}
}

// ChangePassword handles POST /account/password.
func (h *AccountHandler) ChangePassword(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return err
	}
	if err := h.auth.ChangePassword(c.UserContext(), p, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// UpdateProfile handles PATCH /account/profile and refreshes both cookies.
func (h *AccountHandler) UpdateProfile(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateProfileRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return err
	}
	res, err := h.auth.UpdateProfile(c.UserContext(), p, service.ProfileInput{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		return err
	}
	c.Cookie(h.cookies.Access(res.Tokens.AccessToken))
	c.Cookie(h.cookies.Refresh(res.Tokens.RefreshToken))
	return c.JSON(fiber.Map{"data": dto.NewPrincipalResponse(res.Account.Principal())})
}
