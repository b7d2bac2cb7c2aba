// Package mock provides mock implementations of the mq package interfaces for testing.
package mock

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"citywatch.dev/sentinel/pkg/mq"
)

// MockClient is a mock implementation of ClientInterface for testing.
// It tracks method calls and allows configuring return values and behavior.
type MockClient struct {
	mu sync.Mutex

	// PushFunc is called when Push is invoked. If nil, returns PushError.
	PushFunc func(ctx context.Context, data []byte) error
	// PushError is returned by Push if PushFunc is nil.
	PushError error
	// PushCalls tracks all calls to Push with their arguments.
	PushCalls []PushCall

	// UnsafePushFunc is called when UnsafePush is invoked. If nil, returns UnsafePushError.
	UnsafePushFunc func(ctx context.Context, data []byte) error
	// UnsafePushError is returned by UnsafePush if UnsafePushFunc is nil.
	UnsafePushError error
	// UnsafePushCalls tracks all calls to UnsafePush with their arguments.
	UnsafePushCalls []PushCall

	// ConsumeFunc is called when Consume is invoked. If nil, returns ConsumeChannel and ConsumeError.
	ConsumeFunc func() (<-chan amqp.Delivery, error)
	// ConsumeChannel is returned by Consume if ConsumeFunc is nil.
	ConsumeChannel <-chan amqp.Delivery
	// ConsumeError is returned by Consume if ConsumeFunc is nil.
	ConsumeError error
	// ConsumeCalls tracks the number of times Consume was called.
	ConsumeCalls int

	// ConnectionState is returned by State. Defaults to StateConnected
	// via State() so tests exercise the connected paths by default.
	ConnectionState mq.ConnectionState
	// StateSet marks that ConnectionState was explicitly configured.
	StateSet bool

	// CloseFunc is called when Close is invoked. If nil, returns CloseError.
	CloseFunc func() error
	// CloseError is returned by Close if CloseFunc is nil.
	CloseError error
	// CloseCalls tracks the number of times Close was called.
	CloseCalls int
}

// NewMockClient creates a MockClient with default behavior: every
// operation succeeds and State reports connected.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// PushCall records the arguments to a push call.
type PushCall struct {
	Ctx  context.Context
	Data []byte
}

// Push records the call and returns the configured result.
func (m *MockClient) Push(ctx context.Context, data []byte) error {
	m.mu.Lock()
	m.PushCalls = append(m.PushCalls, PushCall{Ctx: ctx, Data: data})
	fn := m.PushFunc
	err := m.PushError
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, data)
	}
	return err
}

// UnsafePush records the call and returns the configured result.
func (m *MockClient) UnsafePush(ctx context.Context, data []byte) error {
	m.mu.Lock()
	m.UnsafePushCalls = append(m.UnsafePushCalls, PushCall{Ctx: ctx, Data: data})
	fn := m.UnsafePushFunc
	err := m.UnsafePushError
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, data)
	}
	return err
}

// Consume records the call and returns the configured channel and error.
func (m *MockClient) Consume() (<-chan amqp.Delivery, error) {
	m.mu.Lock()
	m.ConsumeCalls++
	fn := m.ConsumeFunc
	ch := m.ConsumeChannel
	err := m.ConsumeError
	m.mu.Unlock()

	if fn != nil {
		return fn()
	}
	return ch, err
}

// State returns the configured connection state, defaulting to connected.
func (m *MockClient) State() mq.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.StateSet {
		return mq.StateConnected
	}
	return m.ConnectionState
}

// SetState configures the state returned by State.
func (m *MockClient) SetState(s mq.ConnectionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConnectionState = s
	m.StateSet = true
}

// Close records the call and returns the configured result.
func (m *MockClient) Close() error {
	m.mu.Lock()
	m.CloseCalls++
	fn := m.CloseFunc
	err := m.CloseError
	m.mu.Unlock()

	if fn != nil {
		return fn()
	}
	return err
}

// Ensure MockClient implements ClientInterface.
var _ mq.ClientInterface = (*MockClient)(nil)
