package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventVerificationRequested  EventType = "verification_requested"
	EventAccountPromoted        EventType = "account_promoted"
	EventRegistrationDeclined   EventType = "registration_declined"
	EventPasswordResetRequested EventType = "password_reset_requested"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Email     string      `json:"email"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// VerificationRequestedPayload carries what the verification email needs.
type VerificationRequestedPayload struct {
	FirstName  string `json:"first_name"`
	TokenValue string `json:"token_value"`
}

// AccountPromotedPayload carries what the welcome email needs.
type AccountPromotedPayload struct {
	AccountID             string `json:"account_id"`
	FirstName             string `json:"first_name"`
	UnsubscribeTokenValue string `json:"unsubscribe_token_value,omitempty"`
}

// PasswordResetRequestedPayload carries the reset credential.
type PasswordResetRequestedPayload struct {
	FirstName  string `json:"first_name"`
	TokenValue string `json:"token_value"`
}
