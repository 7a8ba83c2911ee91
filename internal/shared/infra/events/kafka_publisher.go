package events

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/segmentio/kafka-go"

	sharedBus "github.com/davicafu/hexacourses/internal/shared/infra/platform/bus"
)

// KafkaPublisher publica mensajes outbox con segmentio/kafka-go. El topic va
// en cada mensaje, así que el writer no debe fijar uno propio.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

// NewKafkaWriter crea un writer síncrono que reparte por hash de la clave y
// espera confirmación de todas las réplicas.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
}

func NewKafkaPublisher(writer *kafka.Writer, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, log: log}
}

// BuildKafkaMessage traduce un mensaje del bus a kafka.Message con las
// cabeceras event_id, topic y de traza.
func BuildKafkaMessage(ctx context.Context, msg sharedBus.Message) kafka.Message {
	headers := []kafka.Header{
		{Key: sharedBus.HeaderEventID, Value: []byte(msg.ID)},
		{Key: sharedBus.HeaderTopic, Value: []byte(msg.Topic)},
	}
	return kafka.Message{
		Topic:   msg.Topic,
		Key:     []byte(msg.Key),
		Value:   []byte(msg.Payload),
		Headers: InjectTraceHeaders(ctx, headers),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, msg sharedBus.Message) error {
	if err := p.writer.WriteMessages(ctx, BuildKafkaMessage(ctx, msg)); err != nil {
		p.log.Error("Error publishing to Kafka", zap.String("topic", msg.Topic), zap.Error(err))
		return fmt.Errorf("kafka publish to %s: %w", msg.Topic, err)
	}

	p.log.Debug("Event published successfully",
		zap.String("topic", msg.Topic),
		zap.String("key", msg.Key),
		zap.String("event_id", msg.ID))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Verificación estática
var _ sharedBus.EventPublisher = (*KafkaPublisher)(nil)
