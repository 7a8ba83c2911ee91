package events

import (
	"encoding/json"
	"time"
)

// IntegrationEvent es la forma normalizada con la que los consumidores
// registran un mensaje recibido, independiente del topic.
type IntegrationEvent struct {
	ID        string          `json:"id"`   // event_id de la cabecera, si existe
	Type      string          `json:"type"` // topic de origen
	Key       string          `json:"key"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"` // contenido específico del evento
}
