package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xoslabs/workforce/internal/domain"
	"github.com/xoslabs/workforce/internal/notify"
)

func TestActionQueue_Create(t *testing.T) {
	hub := notify.NewHub()
	f := newFixture(hub, domain.SkillQuoteGeneration)
	ctx := context.Background()

	a, created, err := f.queue.Create(ctx, &domain.Action{
		Type:      domain.ActionTypeGenerateQuote,
		Payload:   map[string]any{"clientId": 1, "title": "X", "amount": "5000.00"},
		Status:    domain.ActionStatusApproved,
		CreatedBy: f.agent.ID,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.Equal(t, domain.ActionStatusPending, a.Status, "new actions always start pending")
	assert.Nil(t, a.ApprovedBy)

	events := hub.Events(domain.EventActionCreated)
	require.Len(t, events, 1)
	assert.Equal(t, a.ID.String(), events[0].Payload["actionId"])
}

func TestActionQueue_CreateValidation(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	_, _, err := f.queue.Create(ctx, &domain.Action{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"type", "createdBy"}, verr.Fields)

	_, _, err = f.queue.Create(ctx, &domain.Action{Type: "x", CreatedBy: uuid.New()})
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestActionQueue_CreateDuplicatesWithoutKey(t *testing.T) {
	f := newFixture(nil)
	payload := map[string]any{"quoteId": 7}

	first := f.createAction(domain.ActionTypeQuoteFollowup, payload)
	second := f.createAction(domain.ActionTypeQuoteFollowup, payload)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestActionQueue_CreateIdempotencyKey(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	key := "req-42"

	first, created, err := f.queue.Create(ctx, &domain.Action{
		Type: domain.ActionTypeGenerateQuote, CreatedBy: f.agent.ID, IdempotencyKey: &key,
	})
	require.NoError(t, err)
	require.True(t, created)

	again := key
	second, created, err := f.queue.Create(ctx, &domain.Action{
		Type: domain.ActionTypeGenerateQuote, CreatedBy: f.agent.ID, IdempotencyKey: &again,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	all, err := f.queue.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestActionQueue_Approve(t *testing.T) {
	hub := notify.NewHub()
	f := newFixture(hub)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	freezeClock(t, at)
	a := f.createAction(domain.ActionTypeGenerateQuote, map[string]any{"clientId": 1})

	approved, err := f.queue.Approve(context.Background(), a.ID, f.employee.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, f.employee.ID, *approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)
	assert.True(t, approved.ApprovedAt.Equal(at))

	events := hub.Events(domain.EventActionApproved)
	require.Len(t, events, 1)
	assert.Equal(t, a.ID.String(), events[0].Payload["actionId"])
}

func TestActionQueue_ApproveNotFound(t *testing.T) {
	f := newFixture(nil)

	_, err := f.queue.Approve(context.Background(), uuid.New(), f.employee.ID)
	assert.ErrorIs(t, err, ErrActionNotFound)
}

func TestActionQueue_ApproveUnknownEmployee(t *testing.T) {
	f := newFixture(nil)
	a := f.createAction(domain.ActionTypeGenerateQuote, nil)

	_, err := f.queue.Approve(context.Background(), a.ID, uuid.New())
	assert.ErrorIs(t, err, ErrEmployeeNotFound)

	got, err := f.queue.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionStatusPending, got.Status)
	assert.Nil(t, got.ApprovedBy)
	assert.Nil(t, got.ApprovedAt)
}

func TestActionQueue_Reject(t *testing.T) {
	hub := notify.NewHub()
	f := newFixture(hub)
	a := f.createAction(domain.ActionTypeGenerateQuote, map[string]any{"clientId": 1, "title": "X"})

	rejected, err := f.queue.Reject(context.Background(), a.ID, f.employee.ID, "too expensive")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionStatusRejected, rejected.Status)
	assert.Equal(t, "too expensive", rejected.Payload["rejectionReason"])
	assert.Equal(t, "X", rejected.Payload["title"], "original payload is kept")
	require.NotNil(t, rejected.ApprovedBy)
	assert.Equal(t, f.employee.ID, *rejected.ApprovedBy)
	assert.Len(t, hub.Events(domain.EventActionRejected), 1)
}

func TestActionQueue_RejectDefaultReason(t *testing.T) {
	f := newFixture(nil)
	a := f.createAction(domain.ActionTypeGenerateQuote, nil)

	rejected, err := f.queue.Reject(context.Background(), a.ID, f.employee.ID, "  ")
	require.NoError(t, err)
	assert.Equal(t, "No reason provided", rejected.Payload["rejectionReason"])
}

func TestActionQueue_ApproveRejectedAction(t *testing.T) {
	f := newFixture(nil)
	a := f.createAction(domain.ActionTypeGenerateQuote, nil)
	_, err := f.queue.Reject(context.Background(), a.ID, f.employee.ID, "")
	require.NoError(t, err)

	_, err = f.queue.Approve(context.Background(), a.ID, f.employee.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "Only pending actions")

	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, domain.ActionStatusRejected, te.Current)
}

func TestActionQueue_TerminalStatesAreFinal(t *testing.T) {
	ctx := context.Background()
	drive := map[domain.ActionStatus]func(f *fixture, id uuid.UUID) error{
		domain.ActionStatusRejected: func(f *fixture, id uuid.UUID) error {
			_, err := f.queue.Reject(ctx, id, f.employee.ID, "")
			return err
		},
		domain.ActionStatusCompleted: func(f *fixture, id uuid.UUID) error {
			if _, err := f.queue.Approve(ctx, id, f.employee.ID); err != nil {
				return err
			}
			_, err := f.queue.Complete(ctx, id)
			return err
		},
		domain.ActionStatusFailed: func(f *fixture, id uuid.UUID) error {
			if _, err := f.queue.Approve(ctx, id, f.employee.ID); err != nil {
				return err
			}
			_, err := f.queue.Fail(ctx, id)
			return err
		},
	}

	for status, to := range drive {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(nil)
			f.queue.SetRequireApproval(false)
			a := f.createAction(domain.ActionTypeGenerateQuote, nil)
			require.NoError(t, to(f, a.ID))

			before, err := f.queue.Get(ctx, a.ID)
			require.NoError(t, err)
			require.Equal(t, status, before.Status)

			_, err = f.queue.Approve(ctx, a.ID, f.employee.ID)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			_, err = f.queue.Reject(ctx, a.ID, f.employee.ID, "again")
			assert.ErrorIs(t, err, ErrInvalidTransition)
			_, err = f.queue.Complete(ctx, a.ID)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			_, err = f.queue.Fail(ctx, a.ID)
			assert.ErrorIs(t, err, ErrInvalidTransition)

			after, err := f.queue.Get(ctx, a.ID)
			require.NoError(t, err)
			assert.Equal(t, status, after.Status)
			assert.Equal(t, before.ApprovedBy, after.ApprovedBy)
			assert.Equal(t, before.ApprovedAt, after.ApprovedAt)
		})
	}
}

func TestActionQueue_ConcurrentApprove(t *testing.T) {
	f := newFixture(nil)
	a := f.createAction(domain.ActionTypeGenerateQuote, nil)

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.queue.Approve(context.Background(), a.ID, f.employee.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrInvalidTransition):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, conflicts)
}

func TestActionQueue_NotificationFailureIsSwallowed(t *testing.T) {
	f := newFixture(failingNotifier{})
	a := f.createAction(domain.ActionTypeGenerateQuote, nil)

	approved, err := f.queue.Approve(context.Background(), a.ID, f.employee.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionStatusApproved, approved.Status)
}

func TestActionQueue_CompleteRequiresApproval(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	a := f.createAction(domain.ActionTypeGenerateQuote, nil)

	_, err := f.queue.Complete(ctx, a.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "Only approved actions can be completed")

	f.queue.SetRequireApproval(false)
	completed, err := f.queue.Complete(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionStatusCompleted, completed.Status)
	assert.Nil(t, completed.ApprovedBy)
}

func TestActionQueue_Listing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	other := domain.Agent{CodeName: "OTHER", OwnerEmpID: f.employee.ID}
	require.NoError(t, f.agents.Create(ctx, &other))

	a1 := f.createAction(domain.ActionTypeGenerateQuote, nil)
	a2 := f.createAction(domain.ActionTypeGenerateQuote, nil)
	_, _, err := f.queue.Create(ctx, &domain.Action{Type: "other", CreatedBy: other.ID})
	require.NoError(t, err)
	_, err = f.queue.Approve(ctx, a2.ID, f.employee.ID)
	require.NoError(t, err)

	pending, err := f.queue.ListPendingByAgent(ctx, f.agent.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, a1.ID, pending[0].ID)

	executable, err := f.queue.ListExecutableByAgent(ctx, f.agent.ID)
	require.NoError(t, err)
	require.Len(t, executable, 1)
	assert.Equal(t, a2.ID, executable[0].ID)

	status := domain.ActionStatusPending
	byStatus, err := f.queue.List(ctx, &status)
	require.NoError(t, err)
	assert.Len(t, byStatus, 2)

	all, err := f.queue.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestActionQueue_Claim(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	a := f.createAction(domain.ActionTypeGenerateQuote, nil)

	ok, err := f.queue.Claim(ctx, a.ID, "worker-a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "pending actions are not executable while approval is required")

	_, err = f.queue.Approve(ctx, a.ID, f.employee.ID)
	require.NoError(t, err)

	ok, err = f.queue.Claim(ctx, a.ID, "worker-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.queue.Claim(ctx, a.ID, "worker-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "live lease held by another worker")

	ok, err = f.queue.Claim(ctx, a.ID, "worker-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lease owner may renew")
}
