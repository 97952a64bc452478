package dto

import (
	"time"

	"github.com/spec-kit/marketplace-service/internal/domain"
)

// OfferCreateRequest payload for POST /offers.
type OfferCreateRequest struct {
	Category    string `json:"category" validate:"required,oneof=VEHICLE REAL_ESTATE COMMERCIAL"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	PriceCents  int64  `json:"price_cents" validate:"gte=0"`
}

// OfferUpdateRequest payload for PATCH /offers/:id.
type OfferUpdateRequest struct {
	Category    *string `json:"category" validate:"omitempty,oneof=VEHICLE REAL_ESTATE COMMERCIAL"`
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	PriceCents  *int64  `json:"price_cents" validate:"omitempty,gte=0"`
	Active      *bool   `json:"active"`
}

// OfferListQuery holds the GET /offers query string.
type OfferListQuery struct {
	Category  string `query:"category" validate:"omitempty,oneof=VEHICLE REAL_ESTATE COMMERCIAL"`
	OwnerKind string `query:"owner_kind" validate:"omitempty,oneof=USER COMPANY user company"`
	OwnerID   string `query:"owner_id" validate:"omitempty,max=64"`
	Limit     int    `query:"limit" validate:"omitempty,gte=1,max=100"`
	Offset    int    `query:"offset" validate:"omitempty,gte=0"`
}

// OfferResponse is the public view of an offer.
type OfferResponse struct {
	ID          string    `json:"id"`
	OwnerKind   string    `json:"owner_kind"`
	OwnerID     string    `json:"owner_id"`
	Category    string    `json:"category"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewOfferResponse maps an offer.
func NewOfferResponse(o domain.Offer) OfferResponse {
	return OfferResponse{
		ID:          o.ID,
		OwnerKind:   string(o.OwnerKind),
		OwnerID:     o.OwnerID,
		Category:    string(o.Category),
		Title:       o.Title,
		Description: o.Description,
		PriceCents:  o.PriceCents,
		Active:      o.Active,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}
