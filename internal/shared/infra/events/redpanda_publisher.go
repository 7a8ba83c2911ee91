package events

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	sharedBus "github.com/davicafu/hexacourses/internal/shared/infra/platform/bus"
)

// RedpandaPublisher publica con franz-go; alternativa a KafkaPublisher para
// clusters Redpanda o Kafka.
type RedpandaPublisher struct {
	client *kgo.Client
	log    *zap.Logger
}

// NewRedpandaPublisher crea el cliente franz-go.
func NewRedpandaPublisher(brokers []string, log *zap.Logger) (*RedpandaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redpanda client: %w", err)
	}

	return &RedpandaPublisher{
		client: client,
		log:    log.With(zap.String("component", "redpanda-producer")),
	}, nil
}

// BuildRecord traduce un mensaje del bus a un kgo.Record.
func BuildRecord(ctx context.Context, msg sharedBus.Message) *kgo.Record {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := []kgo.RecordHeader{
		{Key: sharedBus.HeaderEventID, Value: []byte(msg.ID)},
		{Key: sharedBus.HeaderTopic, Value: []byte(msg.Topic)},
	}
	for _, k := range carrier.Keys() {
		headers = append(headers, kgo.RecordHeader{Key: k, Value: []byte(carrier.Get(k))})
	}

	return &kgo.Record{
		Topic:   msg.Topic,
		Key:     []byte(msg.Key), // Partición por carrera para conservar el orden
		Value:   []byte(msg.Payload),
		Headers: headers,
	}
}

// Publish envía el mensaje de forma síncrona.
func (p *RedpandaPublisher) Publish(ctx context.Context, msg sharedBus.Message) error {
	results := p.client.ProduceSync(ctx, BuildRecord(ctx, msg))
	if err := results.FirstErr(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", msg.Topic, err)
	}

	p.log.Debug("event published to Redpanda",
		zap.String("topic", msg.Topic),
		zap.String("event_id", msg.ID))
	return nil
}

// Close cierra la conexión del productor.
func (p *RedpandaPublisher) Close() {
	p.client.Close()
	p.log.Info("Redpanda producer closed")
}

var _ sharedBus.EventPublisher = (*RedpandaPublisher)(nil)
