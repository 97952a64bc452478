package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-service/internal/api/dto"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/repository"
	"github.com/spec-kit/marketplace-service/internal/service"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

// OffersHandler exposes offer endpoints.
type OffersHandler struct {
	offers    *service.OfferService
	validator *dto.Validator
}

// NewOffersHandler constructs handler.
func NewOffersHandler(offers *service.OfferService, validator *dto.Validator) *OffersHandler {
	return &OffersHandler{offers: offers, validator: validator}
}

// List handles GET /offers.
func (h *OffersHandler) List(c *fiber.Ctx) error {
	var q dto.OfferListQuery
	if err := c.QueryParser(&q); err != nil {
		return apperrors.NewInvalidArgument("invalid query", nil)
	}
	if err := h.validator.Validate(&q); err != nil {
		return err
	}

	filter := repository.OfferFilter{Limit: q.Limit, Offset: q.Offset}
	if q.Category != "" {
		category := domain.OfferCategory(q.Category)
		filter.Category = &category
	}
	if q.OwnerKind != "" {
		kind, err := domain.ParseKind(q.OwnerKind)
		if err != nil {
			return apperrors.NewInvalidArgument("invalid owner kind", nil)
		}
		filter.OwnerKind = &kind
	}
	if q.OwnerID != "" {
		filter.OwnerID = &q.OwnerID
	}

	offers, err := h.offers.ListPublic(c.UserContext(), filter)
	if err != nil {
		return err
	}
	data := make([]dto.OfferResponse, 0, len(offers))
	for _, o := range offers {
		data = append(data, dto.NewOfferResponse(o))
	}
	return c.JSON(fiber.Map{"data": data})
}

// Create handles POST /offers.
func (h *OffersHandler) Create(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.OfferCreateRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return err
	}
	offer, err := h.offers.Create(c.UserContext(), p, service.OfferCreateInput{
		Category:    domain.OfferCategory(req.Category),
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  req.PriceCents,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewOfferResponse(*offer)})
}

// Update handles PATCH /offers/:id.
func (h *OffersHandler) Update(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.OfferUpdateRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return err
	}
	input := service.OfferUpdateInput{
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Active:      req.Active,
	}
	if req.Category != nil {
		category := domain.OfferCategory(*req.Category)
		input.Category = &category
	}
	offer, err := h.offers.Update(c.UserContext(), p, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOfferResponse(*offer)})
}

// Delete handles DELETE /offers/:id.
func (h *OffersHandler) Delete(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.offers.Delete(c.UserContext(), p, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
