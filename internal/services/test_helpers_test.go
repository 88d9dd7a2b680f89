package services

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"erwpulse/pkg/contracts/events"
)

// MockBroadcaster records broadcast messages.
type MockBroadcaster struct {
	mock.Mock
	mu       sync.Mutex
	messages []events.Message
}

func (m *MockBroadcaster) Broadcast(msg events.Message) {
	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.mu.Unlock()
	m.Called(msg.Type)
}

func (m *MockBroadcaster) Messages() []events.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.Message(nil), m.messages...)
}

// MockPinger is a mock store probe.
type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockClientCounter is a mock websocket hub.
type MockClientCounter struct {
	mock.Mock
}

func (m *MockClientCounter) ClientCount() int {
	return m.Called().Int(0)
}
