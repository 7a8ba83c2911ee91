package mocks

import (
	"context"
	"sync"

	sharedDomain "github.com/davicafu/hexacourses/internal/shared/domain"
	sharedBus "github.com/davicafu/hexacourses/internal/shared/infra/platform/bus"
	"github.com/stretchr/testify/mock"
)

// MockOutboxRepository simula el lado de lectura de la outbox
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	evts, _ := args.Get(0).([]sharedDomain.OutboxEvent)
	return evts, args.Error(1)
}

func (m *MockOutboxRepository) SaveAll(ctx context.Context, evts []sharedDomain.OutboxEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

// MockPublisher simula un publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, msg sharedBus.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockLocker simula el lease entre instancias
type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) TryLock(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockLocker) Unlock(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// DummyPublisher registra en memoria los mensajes publicados.
type DummyPublisher struct {
	mu       sync.Mutex
	messages []sharedBus.Message
}

var _ sharedBus.EventPublisher = (*DummyPublisher)(nil)

func (p *DummyPublisher) Publish(ctx context.Context, msg sharedBus.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *DummyPublisher) Messages() []sharedBus.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sharedBus.Message(nil), p.messages...)
}
