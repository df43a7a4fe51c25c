package events

import (
	"time"

	"github.com/tarothouse/backend/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSubjectRegistered EventType = "subject_registered"
	EventSessionIssued     EventType = "session_issued"
	EventSessionRevoked    EventType = "session_revoked"
	EventAdminCommand      EventType = "admin_command"
)

// AllTypes lists every event type in publication order of a typical flow.
var AllTypes = []EventType{
	EventSubjectRegistered,
	EventSessionIssued,
	EventSessionRevoked,
	EventAdminCommand,
}

// Event represents an audit fact emitted by services.
type Event struct {
	ID        string              `json:"id"`
	Type      EventType           `json:"type"`
	SubjectID string              `json:"subject_id"`
	Class     domain.SubjectClass `json:"class"`
	Timestamp time.Time           `json:"timestamp"`
	Payload   interface{}         `json:"payload,omitempty"`
}

// SessionPayload accompanies session_issued and session_revoked.
type SessionPayload struct {
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
	// Reason names the operation that issued or revoked the token.
	Reason string `json:"reason"`
}

// RegisteredPayload accompanies subject_registered.
type RegisteredPayload struct {
	CredentialType string `json:"credential_type,omitempty"`
	Platform       int    `json:"platform,omitempty"`
}

// AdminCommandPayload accompanies admin_command.
type AdminCommandPayload struct {
	Command  domain.AdminCommand `json:"command"`
	Received string              `json:"received"`
}
