package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xoslabs/workforce/internal/clock"
	"github.com/xoslabs/workforce/internal/domain"
	"github.com/xoslabs/workforce/internal/store"
	"go.uber.org/zap"
)

const defaultRejectionReason = "No reason provided"

var (
	ErrActionNotFound    = errors.New("action not found")
	ErrInvalidTransition = errors.New("invalid action transition")
	ErrClientNotFound    = errors.New("client not found")
)

// TransitionError reports a state change the action's current status does not
// allow. It matches ErrInvalidTransition under errors.Is.
type TransitionError struct {
	ActionID uuid.UUID
	Verb     string
	Required domain.ActionStatus
	Current  domain.ActionStatus
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("Only %s actions can be %s", e.Required, e.Verb)
	if e.Current != "" {
		msg += fmt.Sprintf(" (current status: %s)", e.Current)
	}
	return msg
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// ValidationError lists the fields a request or payload is missing.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// ActionQueue owns the action state machine:
//
//	pending -> approved | rejected
//	approved -> completed | failed
//
// Every transition is a conditional update in the store, so two concurrent
// decisions on the same action produce exactly one winner.
type ActionQueue struct {
	actions   domain.ActionStore
	employees domain.EmployeeStore
	agents    domain.AgentStore
	notifier  domain.Notifier
	logger    *zap.Logger

	requireApproval bool
}

func NewActionQueue(as domain.ActionStore, es domain.EmployeeStore, ags domain.AgentStore, notifier domain.Notifier, logger *zap.Logger) *ActionQueue {
	return &ActionQueue{
		actions:         as,
		employees:       es,
		agents:          ags,
		notifier:        notifier,
		logger:          logger,
		requireApproval: true,
	}
}

// SetRequireApproval controls whether pending actions may be executed and
// resolved without an approval. Enabled by default.
func (q *ActionQueue) SetRequireApproval(v bool) {
	q.requireApproval = v
}

// ExecutableStatuses returns the statuses the processor may pick up.
func (q *ActionQueue) ExecutableStatuses() []domain.ActionStatus {
	if q.requireApproval {
		return []domain.ActionStatus{domain.ActionStatusApproved}
	}
	return []domain.ActionStatus{domain.ActionStatusPending, domain.ActionStatusApproved}
}

// Create stores a new pending action. When a carries an idempotency key that
// was already used, the existing action is returned and created is false.
func (q *ActionQueue) Create(ctx context.Context, a *domain.Action) (action *domain.Action, created bool, err error) {
	var missing []string
	if strings.TrimSpace(a.Type) == "" {
		missing = append(missing, "type")
	}
	if a.CreatedBy == uuid.Nil {
		missing = append(missing, "createdBy")
	}
	if len(missing) > 0 {
		return nil, false, &ValidationError{Fields: missing}
	}
	if a.IdempotencyKey != nil && strings.TrimSpace(*a.IdempotencyKey) == "" {
		a.IdempotencyKey = nil
	}

	if _, err := q.agents.GetByID(ctx, a.CreatedBy); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, false, ErrAgentNotFound
		}
		return nil, false, err
	}

	a.Status = domain.ActionStatusPending
	a.ApprovedBy = nil
	a.ApprovedAt = nil
	if a.Payload == nil {
		a.Payload = map[string]any{}
	}

	if err := q.actions.Create(ctx, a); err != nil {
		switch {
		case errors.Is(err, store.ErrConflict) && a.IdempotencyKey != nil:
			existing, gerr := q.actions.GetByIdempotencyKey(ctx, *a.IdempotencyKey)
			if gerr != nil {
				return nil, false, fmt.Errorf("load action by idempotency key: %w", gerr)
			}
			return existing, false, nil
		case errors.Is(err, store.ErrInvalidReference):
			return nil, false, ErrAgentNotFound
		}
		return nil, false, err
	}

	q.publish(ctx, domain.EventActionCreated, map[string]any{
		"actionId":  a.ID.String(),
		"type":      a.Type,
		"createdBy": a.CreatedBy.String(),
	})
	return a, true, nil
}

func (q *ActionQueue) Get(ctx context.Context, id uuid.UUID) (*domain.Action, error) {
	a, err := q.actions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrActionNotFound
		}
		return nil, err
	}
	return a, nil
}

// Approve moves a pending action to approved and records who approved it.
func (q *ActionQueue) Approve(ctx context.Context, actionID, employeeID uuid.UUID) (*domain.Action, error) {
	a, err := q.decide(ctx, actionID, employeeID, domain.ActionStatusApproved, nil)
	if err != nil {
		return nil, err
	}
	q.publish(ctx, domain.EventActionApproved, map[string]any{
		"actionId":   a.ID.String(),
		"type":       a.Type,
		"createdBy":  a.CreatedBy.String(),
		"approvedBy": employeeID.String(),
	})
	return a, nil
}

// Reject moves a pending action to rejected. The reason is merged into the
// payload as rejectionReason.
func (q *ActionQueue) Reject(ctx context.Context, actionID, employeeID uuid.UUID, reason string) (*domain.Action, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultRejectionReason
	}
	a, err := q.decide(ctx, actionID, employeeID, domain.ActionStatusRejected, map[string]any{
		"rejectionReason": reason,
	})
	if err != nil {
		return nil, err
	}
	q.publish(ctx, domain.EventActionRejected, map[string]any{
		"actionId":   a.ID.String(),
		"type":       a.Type,
		"createdBy":  a.CreatedBy.String(),
		"rejectedBy": employeeID.String(),
		"reason":     reason,
	})
	return a, nil
}

func (q *ActionQueue) decide(ctx context.Context, actionID, employeeID uuid.UUID, to domain.ActionStatus, extra map[string]any) (*domain.Action, error) {
	verb := "approved"
	if to == domain.ActionStatusRejected {
		verb = "rejected"
	}

	if _, err := q.Get(ctx, actionID); err != nil {
		return nil, err
	}
	if _, err := q.employees.GetByID(ctx, employeeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}

	a, err := q.actions.Decide(ctx, actionID, to, employeeID, clock.Now().UTC(), extra)
	if err != nil {
		return nil, q.transitionErr(ctx, err, actionID, verb, domain.ActionStatusPending)
	}
	return a, nil
}

// Complete marks an executable action completed.
func (q *ActionQueue) Complete(ctx context.Context, actionID uuid.UUID) (*domain.Action, error) {
	return q.resolve(ctx, actionID, domain.ActionStatusCompleted, "completed", domain.EventActionCompleted)
}

// Fail marks an executable action failed.
func (q *ActionQueue) Fail(ctx context.Context, actionID uuid.UUID) (*domain.Action, error) {
	return q.resolve(ctx, actionID, domain.ActionStatusFailed, "failed", domain.EventActionFailed)
}

func (q *ActionQueue) resolve(ctx context.Context, actionID uuid.UUID, to domain.ActionStatus, verb, event string) (*domain.Action, error) {
	a, err := q.actions.Resolve(ctx, actionID, to, q.ExecutableStatuses())
	if err != nil {
		return nil, q.transitionErr(ctx, err, actionID, verb, domain.ActionStatusApproved)
	}
	q.publish(ctx, event, map[string]any{
		"actionId":  a.ID.String(),
		"type":      a.Type,
		"createdBy": a.CreatedBy.String(),
	})
	return a, nil
}

func (q *ActionQueue) transitionErr(ctx context.Context, err error, actionID uuid.UUID, verb string, required domain.ActionStatus) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrActionNotFound
	case errors.Is(err, store.ErrConflict):
		te := &TransitionError{ActionID: actionID, Verb: verb, Required: required}
		if cur, gerr := q.actions.GetByID(ctx, actionID); gerr == nil {
			te.Current = cur.Status
		}
		return te
	case errors.Is(err, store.ErrInvalidReference):
		return ErrEmployeeNotFound
	}
	return err
}

// List returns actions in creation order, optionally narrowed to one status.
func (q *ActionQueue) List(ctx context.Context, status *domain.ActionStatus) ([]domain.Action, error) {
	return q.actions.List(ctx, domain.ActionFilter{Status: status})
}

func (q *ActionQueue) ListPendingByAgent(ctx context.Context, agentID uuid.UUID) ([]domain.Action, error) {
	pending := domain.ActionStatusPending
	return q.actions.List(ctx, domain.ActionFilter{Status: &pending, CreatedBy: &agentID})
}

// ListExecutableByAgent returns the actions of an agent the processor may run.
func (q *ActionQueue) ListExecutableByAgent(ctx context.Context, agentID uuid.UUID) ([]domain.Action, error) {
	return q.actions.List(ctx, domain.ActionFilter{Statuses: q.ExecutableStatuses(), CreatedBy: &agentID})
}

// Claim takes a lease on an executable action for owner. It returns false
// when another owner holds a live lease or the action is no longer executable.
func (q *ActionQueue) Claim(ctx context.Context, actionID uuid.UUID, owner string, lease time.Duration) (bool, error) {
	return q.actions.Claim(ctx, actionID, owner, clock.Now().Add(lease), q.ExecutableStatuses())
}

func (q *ActionQueue) publish(ctx context.Context, eventType string, payload map[string]any) {
	if q.notifier == nil {
		return
	}
	if err := q.notifier.Publish(ctx, eventType, payload); err != nil {
		q.logger.Warn("failed to publish action event",
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}
