package dto

import (
	"time"

	"github.com/spec-kit/marketplace-service/internal/domain"
)

// BanRequest payload for POST /moderation/bans.
type BanRequest struct {
	TargetID     string   `json:"target_id" validate:"required"`
	TargetKind   string   `json:"target_kind" validate:"required,oneof=USER COMPANY user company"`
	BannTitle    []string `json:"bann_title" validate:"required,min=1,dive,required,max=200"`
	BanReason    []string `json:"ban_reason" validate:"required,min=1,dive,required,max=2000"`
	DurationDays int      `json:"duration_days" validate:"required,gte=1,max=36500"`
}

// LedgerResponse exposes the full ban ledger of an account.
type LedgerResponse struct {
	ID               string     `json:"id"`
	Kind             string     `json:"kind"`
	Username         string     `json:"username"`
	Role             string     `json:"role"`
	Active           bool       `json:"active"`
	IsBanned         bool       `json:"is_banned"`
	BannTitle        []string   `json:"bann_title"`
	BanReason        []string   `json:"ban_reason"`
	BannedByUsername []string   `json:"banned_by_username"`
	BannedBy         *string    `json:"banned_by"`
	BanEndDate       *time.Time `json:"ban_end_date"`
	BanCount         int        `json:"ban_count"`
}

// NewLedgerResponse maps an account.
func NewLedgerResponse(a *domain.Account) LedgerResponse {
	return LedgerResponse{
		ID:               a.ID,
		Kind:             string(a.Kind),
		Username:         a.Username,
		Role:             string(a.Role),
		Active:           a.Active,
		IsBanned:         a.Ledger.IsBanned,
		BannTitle:        nonNil(a.Ledger.BannTitle),
		BanReason:        nonNil(a.Ledger.BanReason),
		BannedByUsername: nonNil(a.Ledger.BannedByUsername),
		BannedBy:         a.Ledger.BannedBy,
		BanEndDate:       a.Ledger.BanEndDate,
		BanCount:         a.Ledger.BanCount,
	}
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
