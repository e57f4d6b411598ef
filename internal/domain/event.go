package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event types published by the core.
const (
	EventActionCreated              = "action_created"
	EventActionApproved             = "action_approved"
	EventActionRejected             = "action_rejected"
	EventActionCompleted            = "action_completed"
	EventActionFailed               = "action_failed"
	EventQuoteCreated               = "quote_created"
	EventQuoteFollowupSent          = "quote_followup_sent"
	EventQuoteSecondaryFollowupSent = "quote_secondary_followup_sent"
	EventAgentError                 = "agent_error"
)

type Event struct {
	ID        uuid.UUID      `json:"id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"createdAt"`
}
