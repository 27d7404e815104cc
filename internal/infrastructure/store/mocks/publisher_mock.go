package mocks

import (
	"context"
	"sync"

	"github.com/example/ec-cart-pricing/internal/infrastructure/store"
)

// PublishCall records parameters passed to Publish
type PublishCall struct {
	Key   string
	Event any
}

// MockPublisher captures published events for assertions.
type MockPublisher struct {
	mu         sync.Mutex
	Calls      []PublishCall
	PublishErr error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, key string, event any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, PublishCall{Key: key, Event: event})
	return m.PublishErr
}

// EventTypes lists the event types of published store.Event values in order.
func (m *MockPublisher) EventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	types := make([]string, 0, len(m.Calls))
	for _, c := range m.Calls {
		if e, ok := c.Event.(store.Event); ok {
			types = append(types, e.EventType)
		}
	}
	return types
}
