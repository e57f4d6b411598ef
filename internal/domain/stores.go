package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EmployeeStore interface {
	Create(ctx context.Context, e *Employee) error
	GetByID(ctx context.Context, id uuid.UUID) (*Employee, error)
	GetByEmail(ctx context.Context, email string) (*Employee, error)
}

type AgentStore interface {
	Create(ctx context.Context, a *Agent) error
	GetByID(ctx context.Context, id uuid.UUID) (*Agent, error)
	GetByCodeName(ctx context.Context, codeName string) (*Agent, error)
	ListByOwner(ctx context.Context, ownerEmpID uuid.UUID) ([]Agent, error)
	// ListWithAnySkill returns agents whose skill list intersects skills.
	ListWithAnySkill(ctx context.Context, skills []string) ([]Agent, error)
}

// ActionFilter narrows ActionStore.List. Zero values match everything.
type ActionFilter struct {
	Status    *ActionStatus
	Statuses  []ActionStatus
	CreatedBy *uuid.UUID
}

// ActionStore persists actions. Every status change is a conditional update:
// the row only moves when its current status is one of from.
type ActionStore interface {
	Create(ctx context.Context, a *Action) error
	GetByID(ctx context.Context, id uuid.UUID) (*Action, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Action, error)
	List(ctx context.Context, f ActionFilter) ([]Action, error)

	// Decide moves a pending action to approved or rejected, stamping the
	// approver. extra is merged into the payload. Returns ErrConflict when the
	// action is no longer pending.
	Decide(ctx context.Context, id uuid.UUID, to ActionStatus, approver uuid.UUID, at time.Time, extra map[string]any) (*Action, error)

	// Resolve moves an action to a terminal processor outcome.
	Resolve(ctx context.Context, id uuid.UUID, to ActionStatus, from []ActionStatus) (*Action, error)

	// Claim sets a lease marker so only one processor instance executes the
	// action. Returns false when another live lease exists or the status moved.
	Claim(ctx context.Context, id uuid.UUID, owner string, until time.Time, from []ActionStatus) (bool, error)
}

type ClientStore interface {
	GetByID(ctx context.Context, id int64) (*Client, error)
}

type QuoteStore interface {
	Create(ctx context.Context, q *Quote) error
	GetByID(ctx context.Context, id int64) (*Quote, error)

	// ListNeedingFirstFollowup: status=sent, sent_at < cutoff, followup_count = 0.
	ListNeedingFirstFollowup(ctx context.Context, cutoff time.Time) ([]Quote, error)
	// ListNeedingSecondaryFollowup: status=sent, 1 <= followup_count < maxFollowups, updated_at < cutoff.
	ListNeedingSecondaryFollowup(ctx context.Context, cutoff time.Time, maxFollowups int) ([]Quote, error)

	// RecordFollowup inserts the follow-up action and increments the quote's
	// followup_count by one in a single transaction. It returns ErrConflict and
	// inserts nothing when the count no longer equals expectedCount.
	RecordFollowup(ctx context.Context, quoteID int64, expectedCount int, a *Action) error
}

// EventStore reads the event log written by the Postgres notifier.
type EventStore interface {
	List(ctx context.Context, eventType string, limit int) ([]Event, error)
}

// Notifier fans events out to downstream consumers. Delivery is best effort.
type Notifier interface {
	Publish(ctx context.Context, eventType string, payload map[string]any) error
}

// EstimateService creates a draft estimate in the external CRM.
type EstimateService interface {
	CreateDraftEstimate(ctx context.Context, customerExternalID string) (*Estimate, error)
}

// FollowupSender delivers a follow-up message for a quote.
type FollowupSender interface {
	SendFollowup(ctx context.Context, quoteID int64, message string, secondary bool) error
}
