// Package storetest provides in-memory implementations of the store
// interfaces for tests in other packages. They honour the same conditional
// update rules as the Postgres stores.
package storetest

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xoslabs/workforce/internal/clock"
	"github.com/xoslabs/workforce/internal/domain"
	"github.com/xoslabs/workforce/internal/store"
)

// EmployeeStore is an in-memory domain.EmployeeStore.
type EmployeeStore struct {
	mu        sync.Mutex
	employees map[uuid.UUID]*domain.Employee
}

func NewEmployeeStore() *EmployeeStore {
	return &EmployeeStore{employees: make(map[uuid.UUID]*domain.Employee)}
}

func (m *EmployeeStore) Create(ctx context.Context, e *domain.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.employees {
		if existing.Email == e.Email {
			return store.ErrConflict
		}
	}
	e.ID = uuid.New()
	e.CreatedAt = clock.Now()
	e.UpdatedAt = e.CreatedAt
	cp := *e
	m.employees[e.ID] = &cp
	return nil
}

func (m *EmployeeStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *EmployeeStore) GetByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.employees {
		if e.Email == email {
			cp := *e
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

// AgentStore is an in-memory domain.AgentStore.
type AgentStore struct {
	mu     sync.Mutex
	agents []*domain.Agent
}

func NewAgentStore() *AgentStore {
	return &AgentStore{}
}

func (m *AgentStore) Create(ctx context.Context, a *domain.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.agents {
		if existing.CodeName == a.CodeName {
			return store.ErrConflict
		}
	}
	a.ID = uuid.New()
	a.CreatedAt = clock.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.agents = append(m.agents, &cp)
	return nil
}

func (m *AgentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.agents {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *AgentStore) GetByCodeName(ctx context.Context, codeName string) (*domain.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.agents {
		if a.CodeName == codeName {
			cp := *a
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *AgentStore) ListByOwner(ctx context.Context, ownerEmpID uuid.UUID) ([]domain.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Agent{}
	for _, a := range m.agents {
		if a.OwnerEmpID == ownerEmpID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *AgentStore) ListWithAnySkill(ctx context.Context, skills []string) ([]domain.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Agent{}
	for _, a := range m.agents {
		if a.HasAnySkill(skills...) {
			out = append(out, *a)
		}
	}
	return out, nil
}

// ActionStore is an in-memory domain.ActionStore with the same conditional
// update semantics as the Postgres store.
type ActionStore struct {
	mu      sync.Mutex
	actions []*domain.Action
}

func NewActionStore() *ActionStore {
	return &ActionStore{}
}

func (m *ActionStore) Create(ctx context.Context, a *domain.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(a)
}

func (m *ActionStore) insertLocked(a *domain.Action) error {
	if a.IdempotencyKey != nil {
		for _, existing := range m.actions {
			if existing.IdempotencyKey != nil && *existing.IdempotencyKey == *a.IdempotencyKey {
				return store.ErrConflict
			}
		}
	}
	if a.Payload == nil {
		a.Payload = map[string]any{}
	}
	if a.Status == "" {
		a.Status = domain.ActionStatusPending
	}
	a.ID = uuid.New()
	a.CreatedAt = clock.Now()
	m.actions = append(m.actions, cloneAction(a))
	return nil
}

func (m *ActionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.findLocked(id)
	if a == nil {
		return nil, store.ErrNotFound
	}
	return cloneAction(a), nil
}

func (m *ActionStore) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.actions {
		if a.IdempotencyKey != nil && *a.IdempotencyKey == key {
			return cloneAction(a), nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *ActionStore) List(ctx context.Context, f domain.ActionFilter) ([]domain.Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Action{}
	for _, a := range m.actions {
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, a.Status) {
			continue
		}
		if f.CreatedBy != nil && a.CreatedBy != *f.CreatedBy {
			continue
		}
		out = append(out, *cloneAction(a))
	}
	return out, nil
}

func (m *ActionStore) Decide(ctx context.Context, id uuid.UUID, to domain.ActionStatus, approver uuid.UUID, at time.Time, extra map[string]any) (*domain.Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.findLocked(id)
	if a == nil {
		return nil, store.ErrNotFound
	}
	if a.Status != domain.ActionStatusPending {
		return nil, store.ErrConflict
	}
	a.Status = to
	a.ApprovedBy = &approver
	a.ApprovedAt = &at
	for k, v := range extra {
		a.Payload[k] = v
	}
	return cloneAction(a), nil
}

func (m *ActionStore) Resolve(ctx context.Context, id uuid.UUID, to domain.ActionStatus, from []domain.ActionStatus) (*domain.Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.findLocked(id)
	if a == nil {
		return nil, store.ErrNotFound
	}
	if !slices.Contains(from, a.Status) {
		return nil, store.ErrConflict
	}
	a.Status = to
	a.ClaimedUntil = nil
	return cloneAction(a), nil
}

func (m *ActionStore) Claim(ctx context.Context, id uuid.UUID, owner string, until time.Time, from []domain.ActionStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.findLocked(id)
	if a == nil || !slices.Contains(from, a.Status) {
		return false, nil
	}
	live := a.ClaimedUntil != nil && a.ClaimedUntil.After(clock.Now())
	if live && a.ClaimedBy != nil && *a.ClaimedBy != owner {
		return false, nil
	}
	a.ClaimedBy = &owner
	a.ClaimedUntil = &until
	return true, nil
}

func (m *ActionStore) findLocked(id uuid.UUID) *domain.Action {
	for _, a := range m.actions {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// ByType returns copies of every stored action of the given type.
func (m *ActionStore) ByType(actionType string) []domain.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Action
	for _, a := range m.actions {
		if a.Type == actionType {
			out = append(out, *cloneAction(a))
		}
	}
	return out
}

func cloneAction(a *domain.Action) *domain.Action {
	cp := *a
	cp.Payload = make(map[string]any, len(a.Payload))
	for k, v := range a.Payload {
		cp.Payload[k] = v
	}
	return &cp
}

// ClientStore is an in-memory domain.ClientStore.
type ClientStore struct {
	clients map[int64]*domain.Client
}

func NewClientStore(clients ...domain.Client) *ClientStore {
	m := &ClientStore{clients: make(map[int64]*domain.Client)}
	for i := range clients {
		c := clients[i]
		m.clients[c.ID] = &c
	}
	return m
}

func (m *ClientStore) GetByID(ctx context.Context, id int64) (*domain.Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// QuoteStore is an in-memory domain.QuoteStore. RecordFollowup writes the
// action into the shared ActionStore under the quote lock.
type QuoteStore struct {
	mu      sync.Mutex
	quotes  []*domain.Quote
	nextID  int64
	actions *ActionStore
}

func NewQuoteStore(actions *ActionStore) *QuoteStore {
	return &QuoteStore{actions: actions}
}

func (m *QuoteStore) Create(ctx context.Context, q *domain.Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	q.ID = m.nextID
	if q.Status == "" {
		q.Status = domain.QuoteStatusDraft
	}
	now := clock.Now()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	if q.UpdatedAt.IsZero() {
		q.UpdatedAt = now
	}
	cp := *q
	m.quotes = append(m.quotes, &cp)
	return nil
}

func (m *QuoteStore) GetByID(ctx context.Context, id int64) (*domain.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.quotes {
		if q.ID == id {
			cp := *q
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *QuoteStore) ListNeedingFirstFollowup(ctx context.Context, cutoff time.Time) ([]domain.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Quote
	for _, q := range m.quotes {
		if q.Status == domain.QuoteStatusSent && q.SentAt != nil && q.SentAt.Before(cutoff) && q.FollowupCount == 0 {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (m *QuoteStore) ListNeedingSecondaryFollowup(ctx context.Context, cutoff time.Time, maxFollowups int) ([]domain.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Quote
	for _, q := range m.quotes {
		if q.Status == domain.QuoteStatusSent && q.FollowupCount >= 1 && q.FollowupCount < maxFollowups && q.UpdatedAt.Before(cutoff) {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (m *QuoteStore) RecordFollowup(ctx context.Context, quoteID int64, expectedCount int, a *domain.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var q *domain.Quote
	for _, candidate := range m.quotes {
		if candidate.ID == quoteID {
			q = candidate
		}
	}
	if q == nil {
		return store.ErrNotFound
	}
	if q.FollowupCount != expectedCount {
		return store.ErrConflict
	}
	m.actions.mu.Lock()
	err := m.actions.insertLocked(a)
	m.actions.mu.Unlock()
	if err != nil {
		return err
	}
	q.FollowupCount++
	q.UpdatedAt = clock.Now()
	return nil
}
