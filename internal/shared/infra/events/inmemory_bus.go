package events

import (
	"context"
	"sync"

	sharedBus "github.com/davicafu/hexacourses/internal/shared/infra/platform/bus"
)

// InMemoryEventBus entrega los mensajes a los suscriptores de cada topic
// dentro del proceso. Publish bloquea hasta entregar o cancelar ctx.
type InMemoryEventBus struct {
	subscribers map[string][]chan sharedBus.Message
	mu          sync.RWMutex
}

// Verifica en tiempo de compilación que cumple la interfaz
var _ sharedBus.EventPublisher = (*InMemoryEventBus)(nil)

func NewInMemoryEventBus() *InMemoryEventBus {
	return &InMemoryEventBus{subscribers: make(map[string][]chan sharedBus.Message)}
}

func (b *InMemoryEventBus) Publish(ctx context.Context, msg sharedBus.Message) error {
	b.mu.RLock()
	subs := b.subscribers[msg.Topic]
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe devuelve un canal con los mensajes de los topics indicados.
func (b *InMemoryEventBus) Subscribe(bufferSize int, topics ...string) <-chan sharedBus.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan sharedBus.Message, bufferSize)
	for _, t := range topics {
		b.subscribers[t] = append(b.subscribers[t], ch)
	}
	return ch
}
