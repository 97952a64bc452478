package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-service/internal/api/dto"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/service"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

// ModerationHandler exposes the ban ledger to moderators.
type ModerationHandler struct {
	moderation *service.ModerationService
	validator  *dto.Validator
}

// NewModerationHandler constructs handler.
func NewModerationHandler(moderation *service.ModerationService, validator *dto.Validator) *ModerationHandler {
	return &ModerationHandler{moderation: moderation, validator: validator}
}

// Ban handles POST /moderation/bans.
func (h *ModerationHandler) Ban(c *fiber.Ctx) error {
	actor, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.BanRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return err
	}
	kind, err := domain.ParseKind(req.TargetKind)
	if err != nil {
		return apperrors.NewInvalidArgument("invalid target kind", nil)
	}
	res, err := h.moderation.ApplyBan(c.UserContext(), actor, service.BanInput{
		TargetID:     req.TargetID,
		TargetKind:   kind,
		BannTitle:    req.BannTitle,
		BanReason:    req.BanReason,
		DurationDays: req.DurationDays,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"principal":       dto.NewLedgerResponse(res.Account),
		"offers_affected": res.OffersAffected,
	}})
}

// Lift handles DELETE /moderation/bans/:kind/:id.
func (h *ModerationHandler) Lift(c *fiber.Ctx) error {
	actor, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	res, err := h.moderation.LiftBan(c.UserContext(), actor, kind, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"principal":       dto.NewLedgerResponse(res.Account),
		"offers_affected": res.OffersAffected,
	}})
}

// Inspect handles GET /moderation/principals/:kind/:id.
func (h *ModerationHandler) Inspect(c *fiber.Ctx) error {
	actor, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	account, err := h.moderation.Inspect(c.UserContext(), actor, kind, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewLedgerResponse(account)})
}
