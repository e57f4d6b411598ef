package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ActionStatus string

const (
	ActionStatusPending   ActionStatus = "pending"
	ActionStatusApproved  ActionStatus = "approved"
	ActionStatusRejected  ActionStatus = "rejected"
	ActionStatusCompleted ActionStatus = "completed"
	ActionStatusFailed    ActionStatus = "failed"
)

func ValidActionStatus(s string) bool {
	switch ActionStatus(s) {
	case ActionStatusPending, ActionStatusApproved, ActionStatusRejected,
		ActionStatusCompleted, ActionStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition may leave the status.
func (s ActionStatus) Terminal() bool {
	switch s {
	case ActionStatusRejected, ActionStatusCompleted, ActionStatusFailed:
		return true
	}
	return false
}

// ActionKind is the closed set of action types this service knows how to execute.
// Action.Type stays a free-form tag on the wire; Kind maps it onto this set.
type ActionKind int

const (
	ActionKindUnknown ActionKind = iota
	ActionKindGenerateQuote
	ActionKindQuoteFollowup
	ActionKindQuoteSecondaryFollowup
)

const (
	ActionTypeGenerateQuote          = "generate_quote"
	ActionTypeQuoteFollowup          = "send_quote_followup"
	ActionTypeQuoteSecondaryFollowup = "send_quote_secondary_followup"
)

func ParseActionKind(t string) ActionKind {
	switch t {
	case ActionTypeGenerateQuote:
		return ActionKindGenerateQuote
	case ActionTypeQuoteFollowup:
		return ActionKindQuoteFollowup
	case ActionTypeQuoteSecondaryFollowup:
		return ActionKindQuoteSecondaryFollowup
	default:
		return ActionKindUnknown
	}
}

func (k ActionKind) String() string {
	switch k {
	case ActionKindGenerateQuote:
		return ActionTypeGenerateQuote
	case ActionKindQuoteFollowup:
		return ActionTypeQuoteFollowup
	case ActionKindQuoteSecondaryFollowup:
		return ActionTypeQuoteSecondaryFollowup
	default:
		return "unknown"
	}
}

type Action struct {
	ID             uuid.UUID      `json:"id"`
	Type           string         `json:"type"`
	Payload        map[string]any `json:"payload"`
	Status         ActionStatus   `json:"status"`
	CreatedBy      uuid.UUID      `json:"createdBy"`
	ApprovedBy     *uuid.UUID     `json:"approvedBy"`
	ApprovedAt     *time.Time     `json:"approvedAt"`
	IdempotencyKey *string        `json:"idempotencyKey,omitempty"`
	ClaimedBy      *string        `json:"claimedBy,omitempty"`
	ClaimedUntil   *time.Time     `json:"claimedUntil,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

func (a *Action) Kind() ActionKind {
	return ParseActionKind(a.Type)
}

// DecodePayload copies the free-form payload into a typed struct.
func (a *Action) DecodePayload(v any) error {
	raw, err := json.Marshal(a.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// GenerateQuotePayload is the payload of a generate_quote action.
type GenerateQuotePayload struct {
	ClientID    FlexInt64  `json:"clientId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Amount      FlexString `json:"amount"`
}

// FollowupPayload is the payload of both follow-up action types.
type FollowupPayload struct {
	QuoteID     FlexInt64 `json:"quoteId"`
	IsSecondary bool      `json:"isSecondary"`
	Message     string    `json:"message,omitempty"`
}
