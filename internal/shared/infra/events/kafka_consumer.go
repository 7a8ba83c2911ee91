package events

import (
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedBus "github.com/davicafu/hexacourses/internal/shared/infra/platform/bus"
)

// MessageHandler define la interfaz que debe cumplir cualquier consumidor de eventos.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg sharedBus.Message) error
}

// MessageReader es la parte de *kafka.Reader que usa el adaptador.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ MessageReader = (*kafka.Reader)(nil)

// Espera entre reintentos de un mensaje fallido.
const (
	DefaultRetryBackoff = 200 * time.Millisecond
	maxRetryBackoff     = 10 * time.Second
)

// ConsumerAdapter es el "oído" que escucha en Kafka. Los commits son por
// offset, así que un mensaje fallido se reintenta en el sitio: avanzar y
// confirmar el siguiente lo saltaría para siempre.
type ConsumerAdapter struct {
	reader  MessageReader
	handler MessageHandler
	log     *zap.Logger
	backoff time.Duration
	done    chan struct{}
	started bool
}

// NewKafkaReader crea un reader de grupo suscrito a varios topics.
func NewKafkaReader(brokers []string, groupID string, topics []string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		GroupTopics: topics,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
	})
}

func NewConsumerAdapter(reader MessageReader, handler MessageHandler, log *zap.Logger) *ConsumerAdapter {
	return &ConsumerAdapter{
		reader:  reader,
		handler: handler,
		log:     log,
		backoff: DefaultRetryBackoff,
		done:    make(chan struct{}),
	}
}

// WithRetryBackoff cambia la espera inicial entre reintentos.
func (c *ConsumerAdapter) WithRetryBackoff(d time.Duration) *ConsumerAdapter {
	if d > 0 {
		c.backoff = d
	}
	return c
}

// ToBusMessage traduce un mensaje Kafka al formato del bus. Si no llega la
// cabecera event_id se usa topic/partición/offset como identificador.
func ToBusMessage(msg kafka.Message) sharedBus.Message {
	id := HeaderValue(msg.Headers, sharedBus.HeaderEventID)
	if id == "" {
		id = msg.Topic + "/" + strconv.Itoa(msg.Partition) + "/" + strconv.FormatInt(msg.Offset, 10)
	}
	return sharedBus.Message{
		ID:      id,
		Topic:   msg.Topic,
		Key:     string(msg.Key),
		Payload: string(msg.Value),
	}
}

// Start inicia el bucle de consumo de mensajes en una goroutine.
func (c *ConsumerAdapter) Start(ctx context.Context) {
	c.started = true
	fields := []zap.Field{}
	if kr, ok := c.reader.(*kafka.Reader); ok {
		cfg := kr.Config()
		fields = append(fields,
			zap.Strings("topics", cfg.GroupTopics),
			zap.String("group", cfg.GroupID),
			zap.Strings("brokers", cfg.Brokers))
	}
	c.log.Info("🎧 Iniciando consumidor de Kafka...", fields...)

	go func() {
		defer close(c.done)
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				// Si el contexto se cancela, el error es normal y salimos limpiamente.
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					c.log.Info("Consumidor de Kafka detenido.")
					return
				}
				c.log.Error("Error al leer mensaje de Kafka", zap.Error(err))
				continue
			}

			if !c.handleUntilDone(ctx, msg) {
				c.log.Info("Consumidor de Kafka detenido.")
				return
			}

			if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
				c.log.Error("Error al confirmar offset", zap.Int64("offset", msg.Offset), zap.Error(err))
			}
		}
	}()
}

// handleUntilDone reintenta el mismo mensaje con espera creciente. Devuelve
// false si ctx termina antes de procesarlo; en ese caso no hay commit.
func (c *ConsumerAdapter) handleUntilDone(ctx context.Context, msg kafka.Message) bool {
	wait := c.backoff
	for attempt := 1; ; attempt++ {
		msgCtx := ExtractTraceContext(ctx, msg.Headers)
		err := c.handler.HandleMessage(msgCtx, ToBusMessage(msg))
		if err == nil {
			return true
		}

		c.log.Warn("Mensaje no procesado, se reintenta",
			zap.String("topic", msg.Topic),
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return false
		}
		if wait *= 2; wait > maxRetryBackoff {
			wait = maxRetryBackoff
		}
	}
}

// Close cierra el reader y espera a que termine el bucle.
func (c *ConsumerAdapter) Close() error {
	err := c.reader.Close()
	if c.started {
		<-c.done
	}
	return err
}
