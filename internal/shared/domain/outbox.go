package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutboxEvent representa un evento pendiente de publicar en el broker.
// Se escribe en la misma transacción que el cambio de estado que describe.
type OutboxEvent struct {
	ID            uuid.UUID `json:"id"`
	AggregateType string    `json:"aggregate_type"` // ej. "course"
	AggregateID   string    `json:"aggregate_id"`   // clave de partición del mensaje
	Topic         string    `json:"topic"`
	Payload       string    `json:"payload"` // JSON ya serializado
	CreatedAt     time.Time `json:"created_at"`
	Sent          bool      `json:"sent"`
}

// NewOutboxEvent serializa payload y construye un registro sin enviar.
func NewOutboxEvent(aggregateType, aggregateID, topic string, payload any) (OutboxEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return OutboxEvent{}, fmt.Errorf("marshal outbox payload for %s: %w", topic, err)
	}
	return OutboxEvent{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Topic:         topic,
		Payload:       string(raw),
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// OutboxRepository define el contrato para acceder a la tabla outbox.
// Es una interfaz más pequeña que la de un repositorio de dominio completo,
// conteniendo solo los métodos que el worker necesita.
type OutboxRepository interface {
	// FetchPendingOutbox devuelve hasta limit registros no enviados en orden de creación.
	FetchPendingOutbox(ctx context.Context, limit int) ([]OutboxEvent, error)

	// SaveAll persiste el estado Sent de los registros recibidos.
	SaveAll(ctx context.Context, evts []OutboxEvent) error
}
