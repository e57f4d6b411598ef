package service

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/xoslabs/workforce/internal/clock"
	"github.com/xoslabs/workforce/internal/domain"
	"github.com/xoslabs/workforce/internal/storetest"
	"go.uber.org/zap"
)

// failingNotifier rejects every publish.
type failingNotifier struct{}

func (failingNotifier) Publish(ctx context.Context, eventType string, payload map[string]any) error {
	return errors.New("notification transport down")
}

// MockFollowupSender mocks the FollowupSender interface.
type MockFollowupSender struct {
	mock.Mock
}

func (m *MockFollowupSender) SendFollowup(ctx context.Context, quoteID int64, message string, secondary bool) error {
	args := m.Called(ctx, quoteID, message, secondary)
	return args.Error(0)
}

// panicEstimates panics on every call.
type panicEstimates struct{}

func (panicEstimates) CreateDraftEstimate(ctx context.Context, customerExternalID string) (*domain.Estimate, error) {
	panic("estimate client exploded")
}

// fixture wires an ActionQueue and its stores with one employee and one agent.
type fixture struct {
	employees *storetest.EmployeeStore
	agents    *storetest.AgentStore
	actions   *storetest.ActionStore
	quotes    *storetest.QuoteStore
	queue     *ActionQueue

	employee domain.Employee
	agent    domain.Agent
}

func newFixture(notifier domain.Notifier, skills ...string) *fixture {
	f := &fixture{
		employees: storetest.NewEmployeeStore(),
		agents:    storetest.NewAgentStore(),
		actions:   storetest.NewActionStore(),
	}
	f.quotes = storetest.NewQuoteStore(f.actions)
	f.employee = domain.Employee{FullName: "Test Approver", Email: "approver@example.com", Role: "manager"}
	_ = f.employees.Create(context.Background(), &f.employee)
	f.agent = domain.Agent{CodeName: "QUOTE-BOT", Skills: skills, OwnerEmpID: f.employee.ID}
	_ = f.agents.Create(context.Background(), &f.agent)
	f.queue = NewActionQueue(f.actions, f.employees, f.agents, notifier, zap.NewNop())
	return f
}

func (f *fixture) createAction(actionType string, payload map[string]any) *domain.Action {
	a, _, err := f.queue.Create(context.Background(), &domain.Action{
		Type:      actionType,
		Payload:   payload,
		CreatedBy: f.agent.ID,
	})
	if err != nil {
		panic(err)
	}
	return a
}

// freezeClock pins clock.Now for the duration of a test.
func freezeClock(t interface{ Cleanup(func()) }, at time.Time) {
	prev := clock.NowFunc
	clock.NowFunc = func() time.Time { return at }
	t.Cleanup(func() { clock.NowFunc = prev })
}
