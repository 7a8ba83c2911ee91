package bus

import "context"

// Message es lo que viaja por el transporte: topic, clave de partición y
// payload JSON. ID es el id del registro outbox y permite deduplicar.
type Message struct {
	ID      string
	Topic   string
	Key     string
	Payload string
}

// EventPublisher entrega un mensaje al transporte. Devolver nil significa que
// el broker confirmó la escritura.
type EventPublisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Cabeceras comunes a todos los transportes.
const (
	HeaderEventID = "event_id"
	HeaderTopic   = "topic"
)
