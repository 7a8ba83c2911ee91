package events

import (
	"context"

	"go.uber.org/zap"

	sharedEvents "github.com/davicafu/hexacourses/internal/shared/events"
)

// LogSink escribe los eventos en el log cuando no hay ClickHouse configurado.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Append(ctx context.Context, evt sharedEvents.IntegrationEvent) error {
	s.log.Info("📥 Evento recibido",
		zap.String("event_id", evt.ID),
		zap.String("type", evt.Type),
		zap.String("key", evt.Key),
		zap.ByteString("data", evt.Data))
	return nil
}

var _ EventSink = (*LogSink)(nil)
