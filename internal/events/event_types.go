package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/marketplace-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventPrincipalBanned        EventType = "principal.banned"
	EventPrincipalUnbanned      EventType = "principal.unbanned"
	EventMessageSent            EventType = "message.sent"
	EventPasswordResetRequested EventType = "password.reset_requested"
)

// Ref identifies a principal of either kind.
type Ref struct {
	Kind domain.Kind `json:"kind"`
	ID   string      `json:"id"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Subject   Ref         `json:"subject"`
	Actor     Ref         `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id.
func NewEvent(eventType EventType, subject, actor Ref, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Subject:   subject,
		Actor:     actor,
		Timestamp: at.UTC(),
		Payload:   payload,
	}
}

// PrincipalBannedPayload payload.
type PrincipalBannedPayload struct {
	BannTitle      []string  `json:"bann_title"`
	BanReason      []string  `json:"ban_reason"`
	BanEndDate     time.Time `json:"ban_end_date"`
	BanCount       int       `json:"ban_count"`
	OffersAffected int64     `json:"offers_affected"`
}

// PrincipalUnbannedPayload payload.
type PrincipalUnbannedPayload struct {
	OffersAffected int64 `json:"offers_affected"`
}

// MessageSentPayload payload.
type MessageSentPayload struct {
	Body string `json:"body"`
}

// PasswordResetRequestedPayload carries the one-time token to the delivery
// channel.
type PasswordResetRequestedPayload struct {
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
