package estimate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xoslabs/workforce/internal/domain"
)

// MockClient is a configurable estimate service for local runs and tests.
// Errors are returned in order, one per call, before any success.
type MockClient struct {
	mu         sync.Mutex
	Errors     []error
	AlwaysFail error

	// Call tracking for assertions
	Calls     []string
	CallTimes []time.Time
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) CreateDraftEstimate(ctx context.Context, customerExternalID string) (*domain.Estimate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, customerExternalID)
	m.CallTimes = append(m.CallTimes, time.Now())

	if m.AlwaysFail != nil {
		return nil, m.AlwaysFail
	}
	if len(m.Errors) > 0 {
		err := m.Errors[0]
		m.Errors = m.Errors[1:]
		if err != nil {
			return nil, err
		}
	}
	return &domain.Estimate{
		ID:         fmt.Sprintf("EST-%d", time.Now().UnixNano()),
		CustomerID: customerExternalID,
		Status:     "draft",
	}, nil
}

func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
