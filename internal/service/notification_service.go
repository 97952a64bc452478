package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-service/internal/config"
	"github.com/spec-kit/marketplace-service/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventPrincipalBanned, n.handlePrincipalBanned)
	n.dispatcher.Subscribe(events.EventPrincipalUnbanned, n.handlePrincipalUnbanned)
	n.dispatcher.Subscribe(events.EventMessageSent, n.handleMessageSent)
	n.dispatcher.Subscribe(events.EventPasswordResetRequested, n.handlePasswordResetRequested)
}

func (n *NotificationService) handlePrincipalBanned(ctx context.Context, event events.Event) error {
	n.logger.Info("PrincipalBanned", subjectFields(event, zap.Any("payload", event.Payload))...)
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handlePrincipalUnbanned(ctx context.Context, event events.Event) error {
	n.logger.Info("PrincipalUnbanned", subjectFields(event)...)
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleMessageSent(ctx context.Context, event events.Event) error {
	n.logger.Info("MessageSent", subjectFields(event, zap.String("sender_id", event.Actor.ID))...)
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handlePasswordResetRequested(ctx context.Context, event events.Event) error {
	n.logger.Info("PasswordResetRequested", subjectFields(event)...)
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("principal_id", event.Subject.ID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("principal_id", event.Subject.ID),
		zap.String("event_type", string(event.Type)))
}

func subjectFields(event events.Event, extra ...zap.Field) []zap.Field {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("principal_id", event.Subject.ID),
		zap.String("kind", string(event.Subject.Kind)),
	}
	return append(fields, extra...)
}
