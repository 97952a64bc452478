package dto

import (
	"time"

	"github.com/spec-kit/marketplace-service/internal/domain"
)

// UserRegisterRequest payload for new users.
type UserRegisterRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// CompanyRegisterRequest payload for new companies.
type CompanyRegisterRequest struct {
	CompanyName string `json:"company_name" validate:"required,max=200"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest payload for login of either kind.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest payload for POST /account/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// UpdateProfileRequest payload for PATCH /account/profile.
type UpdateProfileRequest struct {
	Username *string `json:"username" validate:"omitempty,max=200"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

// PasswordResetRequest payload for requesting a reset token.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest payload for redeeming a reset token.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

// AuthResponse reports token expiries. The tokens themselves travel only in
// HttpOnly cookies.
type AuthResponse struct {
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// PrincipalResponse is the public view of a principal.
type PrincipalResponse struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	Active     bool       `json:"active"`
	IsBanned   bool       `json:"is_banned"`
	BanReason  []string   `json:"ban_reason"`
	BanEndDate *time.Time `json:"ban_end_date"`
	BanCount   int        `json:"ban_count"`
}

// NewPrincipalResponse maps a principal.
func NewPrincipalResponse(p domain.Principal) PrincipalResponse {
	reasons := p.BanReason
	if reasons == nil {
		reasons = []string{}
	}
	return PrincipalResponse{
		ID:         p.ID,
		Kind:       string(p.Kind),
		Username:   p.Username,
		Email:      p.Email,
		Role:       string(p.Role),
		Active:     p.Active,
		IsBanned:   p.IsBanned,
		BanReason:  reasons,
		BanEndDate: p.BanEndDate,
		BanCount:   p.BanCount,
	}
}
