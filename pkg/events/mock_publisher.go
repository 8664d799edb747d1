package events

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/urbanquest/quest-progression/pkg/domain"
)

// MockPublisher is a mock implementation of Publisher for testing.
// It uses testify/mock to allow test assertions on method calls.
type MockPublisher struct {
	mock.Mock
}

// Publish mocks publishing an event.
func (m *MockPublisher) Publish(ctx context.Context, event domain.ProgressEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}
