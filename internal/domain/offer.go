package domain

import "time"

// OfferCategory enumerates the marketplace verticals.
type OfferCategory string

const (
	OfferCategoryVehicle    OfferCategory = "VEHICLE"
	OfferCategoryRealEstate OfferCategory = "REAL_ESTATE"
	OfferCategoryCommercial OfferCategory = "COMMERCIAL"
)

// Offer is a listing owned by a user or a company. UserIsBanned mirrors the
// owner's ban flag so listings can be filtered without a join.
type Offer struct {
	ID           string
	OwnerKind    Kind
	OwnerID      string
	Category     OfferCategory
	Title        string
	Description  string
	PriceCents   int64
	Active       bool
	UserIsBanned bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
