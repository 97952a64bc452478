package dto

// SendMessageRequest payload for POST /messages.
type SendMessageRequest struct {
	RecipientKind string `json:"recipient_kind" validate:"required,oneof=USER COMPANY user company"`
	RecipientID   string `json:"recipient_id" validate:"required"`
	Body          string `json:"body" validate:"required,max=4000"`
}
