package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/davicafu/hexacourses/internal/shared/infra/events"
	sharedBus "github.com/davicafu/hexacourses/internal/shared/infra/platform/bus"
	"github.com/davicafu/hexacourses/tests/mocks"
)

func sampleMessage() sharedBus.Message {
	return sharedBus.Message{
		ID:      "0b6f5a8e-8a4f-4a57-9a51-3c7f6b0b2a11",
		Topic:   "course-created",
		Key:     "42",
		Payload: `{"courseId":42}`,
	}
}

func tracedContext(t *testing.T) context.Context {
	t.Helper()
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestBuildKafkaMessage_CarriesHeadersAndKey(t *testing.T) {
	ctx := tracedContext(t)
	msg := events.BuildKafkaMessage(ctx, sampleMessage())

	assert.Equal(t, "course-created", msg.Topic)
	assert.Equal(t, []byte("42"), msg.Key)
	assert.Equal(t, `{"courseId":42}`, string(msg.Value))
	assert.Equal(t, sampleMessage().ID, events.HeaderValue(msg.Headers, sharedBus.HeaderEventID))
	assert.Equal(t, "course-created", events.HeaderValue(msg.Headers, sharedBus.HeaderTopic))
	assert.NotEmpty(t, events.HeaderValue(msg.Headers, "traceparent"))
}

func TestTraceContext_RoundTripThroughHeaders(t *testing.T) {
	ctx := tracedContext(t)
	headers := events.InjectTraceHeaders(ctx, nil)

	extracted := events.ExtractTraceContext(context.Background(), headers)
	sc := trace.SpanContextFromContext(extracted)

	assert.True(t, sc.IsValid())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", sc.TraceID().String())
}

func TestBuildRecord_CarriesHeaders(t *testing.T) {
	ctx := tracedContext(t)
	rec := events.BuildRecord(ctx, sampleMessage())

	assert.Equal(t, "course-created", rec.Topic)
	assert.Equal(t, []byte("42"), rec.Key)

	got := map[string]string{}
	for _, h := range rec.Headers {
		got[h.Key] = string(h.Value)
	}
	assert.Equal(t, sampleMessage().ID, got[sharedBus.HeaderEventID])
	assert.Equal(t, "course-created", got[sharedBus.HeaderTopic])
	assert.Contains(t, got, "traceparent")
}

func TestToBusMessage(t *testing.T) {
	t.Run("usa la cabecera event_id", func(t *testing.T) {
		msg := events.ToBusMessage(kafka.Message{
			Topic:   "participant-added",
			Key:     []byte("7"),
			Value:   []byte(`{}`),
			Headers: []kafka.Header{{Key: sharedBus.HeaderEventID, Value: []byte("evt-1")}},
		})
		assert.Equal(t, "evt-1", msg.ID)
		assert.Equal(t, "participant-added", msg.Topic)
		assert.Equal(t, "7", msg.Key)
	})

	t.Run("sin cabecera usa topic, partición y offset", func(t *testing.T) {
		msg := events.ToBusMessage(kafka.Message{Topic: "course-deleted", Partition: 2, Offset: 15})
		assert.Equal(t, "course-deleted/2/15", msg.ID)
	})
}

func TestInMemoryEventBus_DeliversByTopic(t *testing.T) {
	bus := events.NewInMemoryEventBus()
	created := bus.Subscribe(4, "course-created")
	all := bus.Subscribe(4, "course-created", "course-deleted")

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, sampleMessage()))
	require.NoError(t, bus.Publish(ctx, sharedBus.Message{ID: "2", Topic: "course-deleted", Key: "42"}))
	require.NoError(t, bus.Publish(ctx, sharedBus.Message{ID: "3", Topic: "nobody-listens"}))

	assert.Len(t, created, 1)
	assert.Len(t, all, 2)
	assert.Equal(t, sampleMessage().ID, (<-created).ID)
}

func TestInMemoryEventBus_PublishHonoursContext(t *testing.T) {
	bus := events.NewInMemoryEventBus()
	_ = bus.Subscribe(0, "course-created")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := bus.Publish(ctx, sampleMessage())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBreakerPublisher_OpensAfterConsecutiveFailures(t *testing.T) {
	brokerDown := errors.New("broker down")
	next := &mocks.MockPublisher{}
	next.On("Publish", mock.Anything, sampleMessage()).Return(brokerDown)

	p := events.NewBreakerPublisher(next, events.BreakerSettings{
		ConsecutiveFailures: 2,
		OpenTimeout:         time.Minute,
	}, zap.NewNop())

	ctx := context.Background()
	assert.ErrorIs(t, p.Publish(ctx, sampleMessage()), brokerDown)
	assert.ErrorIs(t, p.Publish(ctx, sampleMessage()), brokerDown)
	assert.Equal(t, gobreaker.StateOpen, p.State())

	err := p.Publish(ctx, sampleMessage())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	next.AssertNumberOfCalls(t, "Publish", 2)
}

func TestBreakerPublisher_PassesThroughOnSuccess(t *testing.T) {
	next := &mocks.DummyPublisher{}
	p := events.NewBreakerPublisher(next, events.BreakerSettings{}, zap.NewNop())

	require.NoError(t, p.Publish(context.Background(), sampleMessage()))
	assert.Equal(t, gobreaker.StateClosed, p.State())
	assert.Len(t, next.Messages(), 1)
}
