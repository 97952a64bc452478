package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-service/internal/api/dto"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/service"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

// MessagesHandler exposes direct messaging.
type MessagesHandler struct {
	messages  *service.MessageService
	validator *dto.Validator
}

// NewMessagesHandler constructs handler.
func NewMessagesHandler(messages *service.MessageService, validator *dto.Validator) *MessagesHandler {
	return &MessagesHandler{messages: messages, validator: validator}
}

// Send handles POST /messages.
func (h *MessagesHandler) Send(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.SendMessageRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return err
	}
	kind, err := domain.ParseKind(req.RecipientKind)
	if err != nil {
		return apperrors.NewInvalidArgument("invalid recipient kind", nil)
	}
	event, err := h.messages.Send(c.UserContext(), p, service.SendMessageInput{
		RecipientKind: kind,
		RecipientID:   req.RecipientID,
		Body:          req.Body,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"data": fiber.Map{"id": event.ID, "sent_at": event.Timestamp},
	})
}
