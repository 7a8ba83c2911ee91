package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	sharedBus "github.com/davicafu/hexacourses/internal/shared/infra/platform/bus"
)

// BreakerSettings configura el circuit breaker del publisher.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// BreakerPublisher corta las llamadas al broker tras fallos consecutivos para
// que el worker no bloquee cada tick esperando timeouts.
type BreakerPublisher struct {
	next    sharedBus.EventPublisher
	breaker *gobreaker.CircuitBreaker
}

func NewBreakerPublisher(next sharedBus.EventPublisher, cfg BreakerSettings, log *zap.Logger) *BreakerPublisher {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "event-publisher",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &BreakerPublisher{next: next, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (p *BreakerPublisher) Publish(ctx context.Context, msg sharedBus.Message) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.next.Publish(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("publisher unavailable: %w", err)
	}
	return err
}

func (p *BreakerPublisher) State() gobreaker.State {
	return p.breaker.State()
}

var _ sharedBus.EventPublisher = (*BreakerPublisher)(nil)
