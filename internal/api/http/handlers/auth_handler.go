package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-service/internal/api/dto"
	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/service"
)

// AuthHandler exposes registration, login and session endpoints for both
// users and companies.
type AuthHandler struct {
	auth      *service.AuthService
	cookies   auth.CookieFactory
	validator *dto.Validator
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, cookies auth.CookieFactory, validator *dto.Validator) *AuthHandler {
	return &AuthHandler{auth: authService, cookies: cookies, validator: validator}
}

// RegisterUser handles POST /auth/users/register.
func (h *AuthHandler) RegisterUser(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return err
	}
	res, err := h.auth.RegisterUser(c.UserContext(), req.Username, req.Email, req.Password)
	if err != nil {
		return err
	}
	return h.session(c, http.StatusCreated, res)
}

// RegisterCompany handles POST /auth/companies/register.
func (h *AuthHandler) RegisterCompany(c *fiber.Ctx) error {
	var req dto.CompanyRegisterRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return err
	}
	res, err := h.auth.RegisterCompany(c.UserContext(), req.CompanyName, req.Email, req.Password)
	if err != nil {
		return err
	}
	return h.session(c, http.StatusCreated, res)
}

// LoginUser handles POST /auth/users/login.
func (h *AuthHandler) LoginUser(c *fiber.Ctx) error {
	return h.login(c, domain.KindUser)
}

// LoginCompany handles POST /auth/companies/login.
func (h *AuthHandler) LoginCompany(c *fiber.Ctx) error {
	return h.login(c, domain.KindCompany)
}

// Logout handles POST /auth/logout by expiring both cookies.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(h.cookies.Expired(auth.AccessTokenCookie))
	c.Cookie(h.cookies.Expired(auth.RefreshTokenCookie))
	return c.SendStatus(http.StatusNoContent)
}

// Me handles GET /auth/me with the principal resolved for this request.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPrincipalResponse(p)})
}

// RequestUserPasswordReset handles POST /auth/users/password/reset.
func (h *AuthHandler) RequestUserPasswordReset(c *fiber.Ctx) error {
	return h.requestPasswordReset(c, domain.KindUser)
}

// RequestCompanyPasswordReset handles POST /auth/companies/password/reset.
func (h *AuthHandler) RequestCompanyPasswordReset(c *fiber.Ctx) error {
	return h.requestPasswordReset(c, domain.KindCompany)
}

// ConfirmPasswordReset handles POST /auth/password/reset/confirm.
func (h *AuthHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return err
	}
	if err := h.auth.ConfirmPasswordReset(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "password_reset"}})
}

// The response is the same whether or not the email is registered; the token
// is delivered out of band.
func (h *AuthHandler) requestPasswordReset(c *fiber.Ctx, kind domain.Kind) error {
	var req dto.PasswordResetRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return err
	}
	if _, err := h.auth.RequestPasswordReset(c.UserContext(), kind, req.Email); err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"status": "reset_requested"}})
}

func (h *AuthHandler) login(c *fiber.Ctx, kind domain.Kind) error {
	var req dto.LoginRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return err
	}
	res, err := h.auth.Login(c.UserContext(), kind, req.Email, req.Password)
	if err != nil {
		return err
	}
	return h.session(c, http.StatusOK, res)
}

func (h *AuthHandler) session(c *fiber.Ctx, status int, res *service.AuthResult) error {
	c.Cookie(h.cookies.Access(res.Tokens.AccessToken))
	c.Cookie(h.cookies.Refresh(res.Tokens.RefreshToken))
	return c.Status(status).JSON(fiber.Map{
		"data": fiber.Map{
			"principal": dto.NewPrincipalResponse(res.Account.Principal()),
			"auth": dto.AuthResponse{
				AccessExpiresAt:  res.Tokens.AccessExpiresAt,
				RefreshExpiresAt: res.Tokens.RefreshExpiresAt,
			},
		},
	})
}
