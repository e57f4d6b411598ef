package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xoslabs/workforce/internal/domain"
)

// Hub is an in-process Notifier. Subscribers are called synchronously in
// registration order. It also keeps every published event for inspection.
type Hub struct {
	mu     sync.RWMutex
	subs   []func(domain.Event)
	events []domain.Event
}

func NewHub() *Hub {
	return &Hub{}
}

func (h *Hub) Subscribe(fn func(domain.Event)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs = append(h.subs, fn)
}

func (h *Hub) Publish(ctx context.Context, eventType string, payload map[string]any) error {
	e := domain.Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	h.mu.Lock()
	h.events = append(h.events, e)
	h.mu.Unlock()

	h.dispatch(e)
	return nil
}

// Events returns published events, optionally filtered by type.
func (h *Hub) Events(eventType string) []domain.Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []domain.Event
	for _, e := range h.events {
		if eventType == "" || e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (h *Hub) dispatch(e domain.Event) {
	h.mu.RLock()
	subs := make([]func(domain.Event), len(h.subs))
	copy(subs, h.subs)
	h.mu.RUnlock()

	for _, fn := range subs {
		fn(e)
	}
}

// List returns the newest events first, optionally filtered by type, so the
// hub can stand in for the events table.
func (h *Hub) List(ctx context.Context, eventType string, limit int) ([]domain.Event, error) {
	events := h.Events(eventType)
	out := make([]domain.Event, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, events[i])
	}
	return out, nil
}
