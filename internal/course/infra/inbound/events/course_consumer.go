package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	courseDomain "github.com/davicafu/hexacourses/internal/course/domain"
	sharedEvents "github.com/davicafu/hexacourses/internal/shared/events"
	sharedBus "github.com/davicafu/hexacourses/internal/shared/infra/platform/bus"
	sharedCache "github.com/davicafu/hexacourses/internal/shared/infra/platform/cache"
	sharedUtils "github.com/davicafu/hexacourses/internal/shared/infra/utils"
)

// DefaultDedupTTL cubre de sobra la ventana de reintentos del publisher.
const DefaultDedupTTL = 24 * 60 * 60

var errUndecodable = errors.New("undecodable event payload")

// EventSink guarda los eventos recibidos (ClickHouse, log...).
type EventSink interface {
	Append(ctx context.Context, evt sharedEvents.IntegrationEvent) error
}

// CourseConsumer registra los eventos del agregado Course una sola vez por event_id.
type CourseConsumer struct {
	dedup   sharedCache.Deduper
	sink    EventSink
	log     *zap.Logger
	ttlSecs int
	timeout time.Duration
}

func NewCourseConsumer(dedup sharedCache.Deduper, sink EventSink, logger *zap.Logger) *CourseConsumer {
	return &CourseConsumer{
		dedup:   dedup,
		sink:    sink,
		log:     logger,
		ttlSecs: DefaultDedupTTL,
		timeout: 2 * time.Second,
	}
}

func dedupKey(eventID string) string {
	return "consumed:" + eventID
}

// HandleMessage devuelve error solo cuando el mensaje debe reintentarse.
// Los duplicados, los topics desconocidos y los payloads ilegibles se descartan.
func (c *CourseConsumer) HandleMessage(ctx context.Context, msg sharedBus.Message) error {
	if !courseDomain.IsCourseTopic(msg.Topic) {
		c.log.Warn("Unknown event type", zap.String("topic", msg.Topic))
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	claimed, err := c.dedup.SetIfAbsent(ctx, dedupKey(msg.ID), c.ttlSecs)
	if err != nil {
		return fmt.Errorf("claim event %s: %w", msg.ID, err)
	}
	if !claimed {
		c.log.Info("Evento duplicado ignorado", zap.String("event_id", msg.ID), zap.String("topic", msg.Topic))
		return nil
	}

	err = c.record(ctx, msg)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errUndecodable):
		c.log.Warn("Evento descartado", zap.String("event_id", msg.ID), zap.String("topic", msg.Topic))
		return nil
	}

	// Liberamos la reserva para que el reintento pueda procesarlo.
	if relErr := c.dedup.Delete(context.WithoutCancel(ctx), dedupKey(msg.ID)); relErr != nil {
		c.log.Warn("Failed to release dedup key", zap.String("event_id", msg.ID), zap.Error(relErr))
	}
	return err
}

func (c *CourseConsumer) record(ctx context.Context, msg sharedBus.Message) error {
	data := json.RawMessage(msg.Payload)
	var fields []zap.Field
	var decoded bool

	switch msg.Topic {
	case courseDomain.TopicCourseCreated:
		decoded = sharedUtils.UnmarshalAndHandle(c.log, data, func(evt sharedEvents.CourseCreated) {
			fields = []zap.Field{zap.Int64("course_id", evt.CourseID), zap.String("name", evt.Name), zap.String("date", evt.Date)}
		})
	case courseDomain.TopicCourseUpdated:
		decoded = sharedUtils.UnmarshalAndHandle(c.log, data, func(evt sharedEvents.CourseUpdated) {
			fields = []zap.Field{zap.Int64("course_id", evt.CourseID), zap.String("name", evt.Name), zap.String("date", evt.Date)}
		})
	case courseDomain.TopicCourseDeleted:
		decoded = sharedUtils.UnmarshalAndHandle(c.log, data, func(evt sharedEvents.CourseDeleted) {
			fields = []zap.Field{zap.Int64("course_id", evt.CourseID)}
		})
	case courseDomain.TopicParticipantAdded:
		decoded = sharedUtils.UnmarshalAndHandle(c.log, data, func(evt sharedEvents.ParticipantAdded) {
			fields = []zap.Field{zap.Int64("course_id", evt.CourseID), zap.Int64("participant_id", evt.ParticipantID), zap.Int("dossard", evt.Dossard)}
		})
	}
	if !decoded {
		return errUndecodable
	}

	evt := sharedEvents.IntegrationEvent{
		ID:        msg.ID,
		Type:      msg.Topic,
		Key:       msg.Key,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	if err := c.sink.Append(ctx, evt); err != nil {
		return fmt.Errorf("append event %s: %w", msg.ID, err)
	}

	c.log.Info("Course event recorded", append(fields, zap.String("topic", msg.Topic), zap.String("event_id", msg.ID))...)
	return nil
}

// BackgroundConsumerChan conecta el consumidor al bus en memoria.
func BackgroundConsumerChan(ctx context.Context, ch <-chan sharedBus.Message, consumer *CourseConsumer) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				consumer.log.Info("CourseConsumer stopped")
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if err := consumer.HandleMessage(ctx, msg); err != nil {
					consumer.log.Warn("Failed to process course event", zap.String("event_id", msg.ID), zap.Error(err))
				}
			}
		}
	}()
}
