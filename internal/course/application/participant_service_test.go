package application

import (
	"context"
	"sort"
	"sync"
	"testing"

	courseDomain "github.com/davicafu/hexacourses/internal/course/domain"
	"github.com/davicafu/hexacourses/tests/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAddParticipant_SequentialDossards(t *testing.T) {
	// Arrange
	store := mocks.NewInMemoryStore()
	courses := newCourseService(store)
	service := NewParticipantService(store, mocks.NewDummyCache(), zap.NewNop())
	course, err := courses.CreateCourse(context.Background(), "Spring Gala", june1, 1)
	require.NoError(t, err)

	// Act
	alice, err := service.AddParticipant(context.Background(), course.ID(), "Alice")
	require.NoError(t, err)
	bob, err := service.AddParticipant(context.Background(), course.ID(), "Bob")
	require.NoError(t, err)

	// Assert
	assert.Equal(t, 1, alice.Dossard())
	assert.Equal(t, 2, bob.Dossard())
	assert.Equal(t, course.ID(), bob.CourseID())

	outbox := store.Outbox()
	require.Len(t, outbox, 3)
	assert.Equal(t, []string{
		courseDomain.TopicCourseCreated,
		courseDomain.TopicParticipantAdded,
		courseDomain.TopicParticipantAdded,
	}, []string{outbox[0].Topic, outbox[1].Topic, outbox[2].Topic})
	assert.JSONEq(t,
		`{"courseId":`+course.ID().String()+`,"participantId":`+bob.ID().String()+`,"name":"Bob","dossard":2}`,
		outbox[2].Payload)
	for _, evt := range outbox {
		assert.Equal(t, course.ID().String(), evt.AggregateID)
	}
}

func TestAddParticipant_DossardsArePerCourse(t *testing.T) {
	store := mocks.NewInMemoryStore()
	courses := newCourseService(store)
	service := NewParticipantService(store, nil, zap.NewNop())

	a, _ := courses.CreateCourse(context.Background(), "A", june1, 1)
	b, _ := courses.CreateCourse(context.Background(), "B", june1, 2)

	_, err := service.AddParticipant(context.Background(), a.ID(), "Alice")
	require.NoError(t, err)
	p, err := service.AddParticipant(context.Background(), b.ID(), "Bob")
	require.NoError(t, err)

	assert.Equal(t, 1, p.Dossard())
}

func TestAddParticipant_Errors(t *testing.T) {
	store := mocks.NewInMemoryStore()
	courses := newCourseService(store)
	service := NewParticipantService(store, nil, zap.NewNop())

	_, err := service.AddParticipant(context.Background(), 99, "Alice")
	assert.ErrorIs(t, err, courseDomain.ErrCourseNotFound)

	course, _ := courses.CreateCourse(context.Background(), "A", june1, 1)
	_, err = service.AddParticipant(context.Background(), course.ID(), "   ")
	assert.ErrorIs(t, err, courseDomain.ErrValidation)

	assert.Zero(t, store.ParticipantCount())
	assert.Len(t, store.Outbox(), 1)
}

func TestAddParticipant_RetriesOnDossardConflict(t *testing.T) {
	store := mocks.NewInMemoryStore()
	courses := newCourseService(store)
	service := NewParticipantService(store, nil, zap.NewNop())
	course, _ := courses.CreateCourse(context.Background(), "A", june1, 1)

	store.DossardConflicts = 2

	p, err := service.AddParticipant(context.Background(), course.ID(), "Alice")

	require.NoError(t, err)
	assert.Equal(t, 1, p.Dossard())
	assert.Len(t, store.Outbox(), 2, "los intentos fallidos no dejan eventos")
}

func TestAddParticipant_RetriesExhausted(t *testing.T) {
	store := mocks.NewInMemoryStore()
	courses := newCourseService(store)
	service := NewParticipantService(store, nil, zap.NewNop())
	course, _ := courses.CreateCourse(context.Background(), "A", june1, 1)

	store.DossardConflicts = DefaultDossardAttempts

	_, err := service.AddParticipant(context.Background(), course.ID(), "Alice")

	assert.ErrorIs(t, err, courseDomain.ErrDuplicateDossard)
	assert.Zero(t, store.ParticipantCount())
}

func TestAddParticipant_OutboxFailureRollsBack(t *testing.T) {
	store := mocks.NewInMemoryStore()
	courses := newCourseService(store)
	service := NewParticipantService(store, nil, zap.NewNop())
	course, _ := courses.CreateCourse(context.Background(), "A", june1, 1)

	store.FailOutbox = true
	_, err := service.AddParticipant(context.Background(), course.ID(), "Alice")

	assert.Error(t, err)
	assert.Zero(t, store.ParticipantCount())
}

func TestAddParticipant_Concurrent(t *testing.T) {
	store := mocks.NewInMemoryStore()
	courses := newCourseService(store)
	service := NewParticipantService(store, nil, zap.NewNop())
	course, _ := courses.CreateCourse(context.Background(), "A", june1, 1)

	const n = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		dossards []int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := service.AddParticipant(context.Background(), course.ID(), "Runner")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			dossards = append(dossards, p.Dossard())
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Ints(dossards)
	expected := make([]int, n)
	for i := range expected {
		expected[i] = i + 1
	}
	assert.Equal(t, expected, dossards)
}

func TestListParticipantsByCourse(t *testing.T) {
	store := mocks.NewInMemoryStore()
	courses := newCourseService(store)
	service := NewParticipantService(store, nil, zap.NewNop())

	_, err := service.ListParticipantsByCourse(context.Background(), 1)
	assert.ErrorIs(t, err, courseDomain.ErrCourseNotFound)

	course, _ := courses.CreateCourse(context.Background(), "A", june1, 1)
	empty, err := service.ListParticipantsByCourse(context.Background(), course.ID())
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, _ = service.AddParticipant(context.Background(), course.ID(), "Alice")
	_, _ = service.AddParticipant(context.Background(), course.ID(), "Bob")

	list, err := service.ListParticipantsByCourse(context.Background(), course.ID())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Alice", list[0].Name())
	assert.Equal(t, 2, list[1].Dossard())
}

func TestGetParticipantByID(t *testing.T) {
	store := mocks.NewInMemoryStore()
	courses := newCourseService(store)
	service := NewParticipantService(store, nil, zap.NewNop())

	_, err := service.GetParticipantByID(context.Background(), 7)
	assert.ErrorIs(t, err, courseDomain.ErrParticipantNotFound)

	course, _ := courses.CreateCourse(context.Background(), "A", june1, 1)
	added, _ := service.AddParticipant(context.Background(), course.ID(), "Alice")

	got, err := service.GetParticipantByID(context.Background(), added.ID())
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name())
	assert.Equal(t, course.ID(), got.CourseID())
}

// Escenario completo: Spring Gala con dos inscritos y el outbox en orden.
func TestSpringGalaScenario(t *testing.T) {
	store := mocks.NewInMemoryStore()
	courses := newCourseService(store)
	participants := NewParticipantService(store, nil, zap.NewNop())
	ctx := context.Background()

	gala, err := courses.CreateCourse(ctx, "Spring Gala", june1, 1)
	require.NoError(t, err)
	_, err = courses.CreateCourse(ctx, "Spring Gala bis", june1, 1)
	require.ErrorIs(t, err, courseDomain.ErrDuplicateCourse)

	alice, err := participants.AddParticipant(ctx, gala.ID(), "Alice")
	require.NoError(t, err)
	bob, err := participants.AddParticipant(ctx, gala.ID(), "Bob")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, []int{alice.Dossard(), bob.Dossard()})

	pending, err := store.FetchPendingOutbox(ctx, 100)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, courseDomain.TopicCourseCreated, pending[0].Topic)
}
