package events

import (
	"time"

	"github.com/spec-kit/intake-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventApplicationSubmitted     EventType = "application_submitted"
	EventApplicationStatusChanged EventType = "application_status_changed"
	EventUserRegistered           EventType = "user_registered"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID            string      `json:"id"`
	Type          EventType   `json:"type"`
	ApplicationID string      `json:"application_id,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
	Payload       interface{} `json:"payload"`
}

// ApplicationSubmittedPayload payload.
type ApplicationSubmittedPayload struct {
	FullName    string  `json:"full_name"`
	Email       string  `json:"email"`
	DocumentURL *string `json:"document_url,omitempty"`
}

// ApplicationStatusChangedPayload payload.
type ApplicationStatusChangedPayload struct {
	OldStatus domain.ApplicationStatus `json:"old_status"`
	NewStatus domain.ApplicationStatus `json:"new_status"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}
