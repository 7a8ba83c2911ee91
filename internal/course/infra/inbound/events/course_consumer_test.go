package events_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	courseEvents "github.com/davicafu/hexacourses/internal/course/infra/inbound/events"
	sharedEvents "github.com/davicafu/hexacourses/internal/shared/events"
	sharedBus "github.com/davicafu/hexacourses/internal/shared/infra/platform/bus"
	"github.com/davicafu/hexacourses/tests/mocks"
)

type recordingSink struct {
	mu     sync.Mutex
	events []sharedEvents.IntegrationEvent
	fail   error
}

func (s *recordingSink) Append(ctx context.Context, evt sharedEvents.IntegrationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.events = append(s.events, evt)
	return nil
}

func (s *recordingSink) recorded() []sharedEvents.IntegrationEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sharedEvents.IntegrationEvent(nil), s.events...)
}

func participantAdded(id string) sharedBus.Message {
	return sharedBus.Message{
		ID:      id,
		Topic:   "participant-added",
		Key:     "3",
		Payload: `{"courseId":3,"participantId":11,"name":"Ana","dossard":4}`,
	}
}

func TestCourseConsumer_RecordsEventOnce(t *testing.T) {
	sink := &recordingSink{}
	consumer := courseEvents.NewCourseConsumer(mocks.NewDummyCache(), sink, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, consumer.HandleMessage(ctx, participantAdded("evt-1")))
	require.NoError(t, consumer.HandleMessage(ctx, participantAdded("evt-1")))

	got := sink.recorded()
	require.Len(t, got, 1)
	assert.Equal(t, "evt-1", got[0].ID)
	assert.Equal(t, "participant-added", got[0].Type)
	assert.Equal(t, "3", got[0].Key)
	assert.JSONEq(t, participantAdded("evt-1").Payload, string(got[0].Data))
}

func TestCourseConsumer_ReleasesClaimWhenSinkFails(t *testing.T) {
	dedup := mocks.NewDummyCache()
	sink := &recordingSink{fail: errors.New("clickhouse down")}
	consumer := courseEvents.NewCourseConsumer(dedup, sink, zap.NewNop())
	ctx := context.Background()

	err := consumer.HandleMessage(ctx, participantAdded("evt-2"))
	require.Error(t, err)
	assert.False(t, dedup.Has("consumed:evt-2"))

	sink.fail = nil
	require.NoError(t, consumer.HandleMessage(ctx, participantAdded("evt-2")))
	assert.Len(t, sink.recorded(), 1)
	assert.True(t, dedup.Has("consumed:evt-2"))
}

func TestCourseConsumer_DiscardsUnknownAndMalformed(t *testing.T) {
	sink := &recordingSink{}
	consumer := courseEvents.NewCourseConsumer(mocks.NewDummyCache(), sink, zap.NewNop())
	ctx := context.Background()

	assert.NoError(t, consumer.HandleMessage(ctx, sharedBus.Message{ID: "x", Topic: "user-created", Payload: `{}`}))
	assert.NoError(t, consumer.HandleMessage(ctx, sharedBus.Message{ID: "y", Topic: "course-created", Payload: `not json`}))
	assert.Empty(t, sink.recorded())
}

func TestCourseConsumer_AllCourseTopics(t *testing.T) {
	sink := &recordingSink{}
	consumer := courseEvents.NewCourseConsumer(mocks.NewDummyCache(), sink, zap.NewNop())
	ctx := context.Background()

	msgs := []sharedBus.Message{
		{ID: "1", Topic: "course-created", Key: "3", Payload: `{"courseId":3,"name":"Spring Gala","date":"2024-05-01","number":1}`},
		{ID: "2", Topic: "course-updated", Key: "3", Payload: `{"courseId":3,"name":"Spring Gala","date":"2024-05-02","number":1}`},
		participantAdded("3"),
		{ID: "4", Topic: "course-deleted", Key: "3", Payload: `{"courseId":3}`},
	}
	for _, m := range msgs {
		require.NoError(t, consumer.HandleMessage(ctx, m))
	}

	got := sink.recorded()
	require.Len(t, got, 4)
	assert.Equal(t, "course-deleted", got[3].Type)
}

func TestBackgroundConsumerChan(t *testing.T) {
	sink := &recordingSink{}
	consumer := courseEvents.NewCourseConsumer(mocks.NewDummyCache(), sink, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := make(chan sharedBus.Message, 2)
	courseEvents.BackgroundConsumerChan(ctx, ch, consumer)
	ch <- participantAdded("evt-a")
	ch <- participantAdded("evt-b")

	assert.Eventually(t, func() bool { return len(sink.recorded()) == 2 }, time.Second, 10*time.Millisecond)
}

func TestLogSink(t *testing.T) {
	sink := courseEvents.NewLogSink(zap.NewNop())
	assert.NoError(t, sink.Append(context.Background(), sharedEvents.IntegrationEvent{ID: "1", Type: "course-created"}))
}
