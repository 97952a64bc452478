package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/repository"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

// OfferCreateInput describes offer creation payload.
type OfferCreateInput struct {
	Category    domain.OfferCategory
	Title       string
	Description string
	PriceCents  int64
}

// OfferUpdateInput describes a partial offer update.
type OfferUpdateInput struct {
	Category    *domain.OfferCategory
	Title       *string
	Description *string
	PriceCents  *int64
	Active      *bool
}

// OfferService coordinates offer workflows. Every write passes the ban gate
// before touching the store.
type OfferService struct {
	offers repository.OfferRepository
	gate   *BanGate
	now    func() time.Time
}

// NewOfferService builds the service.
func NewOfferService(offers repository.OfferRepository, gate *BanGate) *OfferService {
	if gate == nil {
		gate = NewBanGate(nil)
	}
	return &OfferService{offers: offers, gate: gate, now: time.Now}
}

// Create publishes a new offer owned by p.
func (s *OfferService) Create(ctx context.Context, p domain.Principal, input OfferCreateInput) (*domain.Offer, error) {
	if err := s.gate.CheckWriteAllowed(p, s.now()); err != nil {
		return nil, err
	}
	details := map[string]any{}
	if !validCategory(input.Category) {
		details["category"] = "must be VEHICLE, REAL_ESTATE or COMMERCIAL"
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		details["title"] = "is required"
	}
	if input.PriceCents < 0 {
		details["price_cents"] = "must not be negative"
	}
	if len(details) > 0 {
		return nil, apperrors.NewInvalidArgument("invalid offer", details)
	}

	offer := &domain.Offer{
		OwnerKind:   p.Kind,
		OwnerID:     p.ID,
		Category:    input.Category,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		PriceCents:  input.PriceCents,
		Active:      true,
	}
	if err := s.offers.Create(ctx, offer); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return offer, nil
}

// Update changes an offer owned by p.
func (s *OfferService) Update(ctx context.Context, p domain.Principal, id string, input OfferUpdateInput) (*domain.Offer, error) {
	if err := s.gate.CheckWriteAllowed(p, s.now()); err != nil {
		return nil, err
	}
	offer, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, err
	}

	details := map[string]any{}
	if input.Category != nil {
		if !validCategory(*input.Category) {
			details["category"] = "must be VEHICLE, REAL_ESTATE or COMMERCIAL"
		}
		offer.Category = *input.Category
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			details["title"] = "must not be empty"
		}
		offer.Title = title
	}
	if input.Description != nil {
		offer.Description = strings.TrimSpace(*input.Description)
	}
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			details["price_cents"] = "must not be negative"
		}
		offer.PriceCents = *input.PriceCents
	}
	if input.Active != nil {
		offer.Active = *input.Active
	}
	if len(details) > 0 {
		return nil, apperrors.NewInvalidArgument("invalid offer", details)
	}

	if err := s.offers.Update(ctx, offer); err != nil {
		return nil, mapOfferError(err, id)
	}
	return offer, nil
}

// Delete removes an offer owned by p.
func (s *OfferService) Delete(ctx context.Context, p domain.Principal, id string) error {
	if err := s.gate.CheckWriteAllowed(p, s.now()); err != nil {
		return err
	}
	if _, err := s.owned(ctx, p, id); err != nil {
		return err
	}
	if err := s.offers.Delete(ctx, id); err != nil {
		return mapOfferError(err, id)
	}
	return nil
}

// ListPublic lists active offers of principals that are not banned.
func (s *OfferService) ListPublic(ctx context.Context, filter repository.OfferFilter) ([]domain.Offer, error) {
	offers, err := s.offers.ListPublic(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return offers, nil
}

func (s *OfferService) owned(ctx context.Context, p domain.Principal, id string) (*domain.Offer, error) {
	offer, err := s.offers.GetByID(ctx, id)
	if err != nil {
		return nil, mapOfferError(err, id)
	}
	if offer.OwnerKind != p.Kind || offer.OwnerID != p.ID {
		return nil, apperrors.NewForbidden("offer belongs to another principal", "")
	}
	return offer, nil
}

func mapOfferError(err error, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("offer", map[string]any{"id": id})
	}
	return apperrors.NewInternalError(err)
}

func validCategory(c domain.OfferCategory) bool {
	switch c {
	case domain.OfferCategoryVehicle, domain.OfferCategoryRealEstate, domain.OfferCategoryCommercial:
		return true
	default:
		return false
	}
}
