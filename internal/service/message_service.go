package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/events"
	"github.com/spec-kit/marketplace-service/internal/repository"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

const maxMessageLength = 4000

// SendMessageInput describes a direct message between principals.
type SendMessageInput struct {
	RecipientKind domain.Kind
	RecipientID   string
	Body          string
}

// MessageService hands messages to the delivery publisher.
type MessageService struct {
	accounts  repository.AccountRepository
	gate      *BanGate
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewMessageService builds the service.
func NewMessageService(accounts repository.AccountRepository, gate *BanGate, publisher events.Publisher, logger *zap.Logger) *MessageService {
	if gate == nil {
		gate = NewBanGate(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{
		accounts:  accounts,
		gate:      gate,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Send publishes a message.sent event from p to an active recipient.
func (s *MessageService) Send(ctx context.Context, p domain.Principal, input SendMessageInput) (*events.Event, error) {
	now := s.now()
	if err := s.gate.CheckWriteAllowed(p, now); err != nil {
		return nil, err
	}

	body := strings.TrimSpace(input.Body)
	details := map[string]any{}
	if !input.RecipientKind.Valid() {
		details["recipient_kind"] = "must be USER or COMPANY"
	}
	if strings.TrimSpace(input.RecipientID) == "" {
		details["recipient_id"] = "is required"
	}
	if body == "" || len(body) > maxMessageLength {
		details["body"] = "must be between 1 and 4000 characters"
	}
	if len(details) > 0 {
		return nil, apperrors.NewInvalidArgument("invalid message", details)
	}
	if input.RecipientKind == p.Kind && input.RecipientID == p.ID {
		return nil, apperrors.NewInvalidArgument("cannot message yourself", nil)
	}

	recipient, err := s.accounts.FindByID(ctx, input.RecipientKind, input.RecipientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("recipient", map[string]any{"kind": input.RecipientKind, "id": input.RecipientID})
		}
		return nil, apperrors.NewInternalError(err)
	}
	if !recipient.Active {
		return nil, apperrors.NewInvalidArgument("recipient is not active", nil)
	}

	event := events.NewEvent(events.EventMessageSent,
		events.Ref{Kind: recipient.Kind, ID: recipient.ID},
		events.Ref{Kind: p.Kind, ID: p.ID},
		now,
		events.MessageSentPayload{Body: body})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("message delivery failed", zap.String("event_id", event.ID), zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}
	return &event, nil
}
