package application

import (
	"context"
	"sync"
	"testing"
	"time"

	courseDomain "github.com/davicafu/hexacourses/internal/course/domain"
	"github.com/davicafu/hexacourses/tests/mocks" // Importamos nuestros mocks/fakes
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var june1 = courseDomain.NewDate(2024, time.June, 1)

func newCourseService(store *mocks.InMemoryStore) *CourseService {
	return NewCourseService(store, mocks.NewDummyCache(), zap.NewNop())
}

func TestCreateCourse_Success(t *testing.T) {
	// Arrange
	store := mocks.NewInMemoryStore()
	service := newCourseService(store)

	// Act
	course, err := service.CreateCourse(context.Background(), "Spring Gala", june1, 1)

	// Assert
	require.NoError(t, err)
	assert.NotZero(t, course.ID())
	assert.Equal(t, "Spring Gala", course.Name())

	// Verificar que se creó un evento Outbox
	outbox := store.Outbox()
	require.Len(t, outbox, 1)
	assert.Equal(t, courseDomain.TopicCourseCreated, outbox[0].Topic)
	assert.Equal(t, course.ID().String(), outbox[0].AggregateID)
	assert.JSONEq(t,
		`{"courseId":`+course.ID().String()+`,"name":"Spring Gala","date":"2024-06-01","number":1}`,
		outbox[0].Payload)
	assert.False(t, outbox[0].Sent)
}

func TestCreateCourse_Duplicate(t *testing.T) {
	store := mocks.NewInMemoryStore()
	service := newCourseService(store)

	_, err := service.CreateCourse(context.Background(), "Spring Gala", june1, 1)
	require.NoError(t, err)

	_, err = service.CreateCourse(context.Background(), "Another name", june1, 1)

	assert.ErrorIs(t, err, courseDomain.ErrDuplicateCourse)
	assert.Equal(t, 1, store.CourseCount())
	assert.Len(t, store.Outbox(), 1)
}

func TestCreateCourse_SameNumberOtherDate(t *testing.T) {
	store := mocks.NewInMemoryStore()
	service := newCourseService(store)

	_, err := service.CreateCourse(context.Background(), "Gala", june1, 1)
	require.NoError(t, err)
	_, err = service.CreateCourse(context.Background(), "Gala", courseDomain.NewDate(2024, time.June, 2), 1)
	require.NoError(t, err)

	assert.Equal(t, 2, store.CourseCount())
}

func TestCreateCourse_ValidationWritesNothing(t *testing.T) {
	store := mocks.NewInMemoryStore()
	service := newCourseService(store)

	_, err := service.CreateCourse(context.Background(), "", june1, 1)
	assert.ErrorIs(t, err, courseDomain.ErrValidation)

	_, err = service.CreateCourse(context.Background(), "Gala", june1, 0)
	assert.ErrorIs(t, err, courseDomain.ErrValidation)

	assert.Zero(t, store.CourseCount())
	assert.Empty(t, store.Outbox())
}

func TestCreateCourse_OutboxFailureRollsBack(t *testing.T) {
	store := mocks.NewInMemoryStore()
	store.FailOutbox = true
	service := newCourseService(store)

	_, err := service.CreateCourse(context.Background(), "Spring Gala", june1, 1)

	assert.ErrorIs(t, err, mocks.ErrOutboxUnavailable)
	assert.Zero(t, store.CourseCount(), "la carrera no debe persistir sin su evento")
}

func TestCreateCourse_ConcurrentSameKey(t *testing.T) {
	store := mocks.NewInMemoryStore()
	service := newCourseService(store)

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dups      int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.CreateCourse(context.Background(), "Spring Gala", june1, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case assert.ErrorIs(t, err, courseDomain.ErrDuplicateCourse):
				dups++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, dups)
	assert.Len(t, store.Outbox(), 1)
}

func TestUpdateCourse_Success(t *testing.T) {
	store := mocks.NewInMemoryStore()
	service := newCourseService(store)
	course, err := service.CreateCourse(context.Background(), "Spring Gala", june1, 1)
	require.NoError(t, err)

	name := "Summer Gala"
	number := 2
	updated, err := service.UpdateCourse(context.Background(), course.ID(), CourseChanges{Name: &name, Number: &number})

	require.NoError(t, err)
	assert.Equal(t, "Summer Gala", updated.Name())
	assert.Equal(t, 2, updated.Number())
	assert.True(t, updated.Date().Equal(june1))

	outbox := store.Outbox()
	require.Len(t, outbox, 2) // 1 de create, 1 de update
	assert.Equal(t, courseDomain.TopicCourseUpdated, outbox[1].Topic)
}

func TestUpdateCourse_OnlyNumberCollides(t *testing.T) {
	store := mocks.NewInMemoryStore()
	service := newCourseService(store)
	_, err := service.CreateCourse(context.Background(), "A", june1, 1)
	require.NoError(t, err)
	b, err := service.CreateCourse(context.Background(), "B", june1, 2)
	require.NoError(t, err)

	// Sólo cambia el número y la pareja resultante ya existe
	number := 1
	_, err = service.UpdateCourse(context.Background(), b.ID(), CourseChanges{Number: &number})

	assert.ErrorIs(t, err, courseDomain.ErrDuplicateCourse)
	assert.Len(t, store.Outbox(), 2)
}

func TestUpdateCourse_UnchangedKeyIsNotDuplicate(t *testing.T) {
	store := mocks.NewInMemoryStore()
	service := newCourseService(store)
	course, err := service.CreateCourse(context.Background(), "A", june1, 1)
	require.NoError(t, err)

	number := 1
	date := june1
	_, err = service.UpdateCourse(context.Background(), course.ID(), CourseChanges{Date: &date, Number: &number})

	assert.NoError(t, err)
}

func TestUpdateCourse_NotFoundAndValidation(t *testing.T) {
	store := mocks.NewInMemoryStore()
	service := newCourseService(store)

	name := "x"
	_, err := service.UpdateCourse(context.Background(), 99, CourseChanges{Name: &name})
	assert.ErrorIs(t, err, courseDomain.ErrCourseNotFound)

	course, err := service.CreateCourse(context.Background(), "A", june1, 1)
	require.NoError(t, err)
	zero := 0
	_, err = service.UpdateCourse(context.Background(), course.ID(), CourseChanges{Number: &zero})
	assert.ErrorIs(t, err, courseDomain.ErrValidation)
}

func TestDeleteCourse(t *testing.T) {
	store := mocks.NewInMemoryStore()
	service := newCourseService(store)
	participants := NewParticipantService(store, nil, zap.NewNop())

	course, err := service.CreateCourse(context.Background(), "A", june1, 1)
	require.NoError(t, err)
	_, err = participants.AddParticipant(context.Background(), course.ID(), "Alice")
	require.NoError(t, err)

	require.NoError(t, service.DeleteCourse(context.Background(), course.ID()))

	assert.Zero(t, store.CourseCount())
	assert.Zero(t, store.ParticipantCount())
	outbox := store.Outbox()
	assert.Equal(t, courseDomain.TopicCourseDeleted, outbox[len(outbox)-1].Topic)

	assert.ErrorIs(t, service.DeleteCourse(context.Background(), course.ID()), courseDomain.ErrCourseNotFound)
}

func TestGetCourseByID(t *testing.T) {
	store := mocks.NewInMemoryStore()
	cache := mocks.NewDummyCache()
	service := NewCourseService(store, cache, zap.NewNop())

	_, err := service.GetCourseByID(context.Background(), 1)
	assert.ErrorIs(t, err, courseDomain.ErrCourseNotFound)

	created, err := service.CreateCourse(context.Background(), "Spring Gala", june1, 1)
	require.NoError(t, err)

	got, err := service.GetCourseByID(context.Background(), created.ID())
	require.NoError(t, err)
	assert.Equal(t, created.ID(), got.ID())
	assert.Equal(t, "Spring Gala", got.Name())

	assert.True(t, cache.Has(courseDomain.CacheKeyByID(created.ID())))
}

func TestAddParticipant_InvalidatesCachedCourse(t *testing.T) {
	store := mocks.NewInMemoryStore()
	cache := mocks.NewDummyCache()
	courses := NewCourseService(store, cache, zap.NewNop())
	participants := NewParticipantService(store, cache, zap.NewNop())
	ctx := context.Background()

	created, err := courses.CreateCourse(ctx, "Spring Gala", june1, 1)
	require.NoError(t, err)
	_, err = courses.GetCourseByID(ctx, created.ID())
	require.NoError(t, err)

	_, err = participants.AddParticipant(ctx, created.ID(), "Alice")
	require.NoError(t, err)

	got, err := courses.GetCourseByID(ctx, created.ID())
	require.NoError(t, err)
	assert.Len(t, got.Participants(), 1)
}

func TestGetCourseByID_FromCache(t *testing.T) {
	store := mocks.NewInMemoryStore()
	cache := mocks.NewDummyCache()
	service := NewCourseService(store, cache, zap.NewNop())

	cached := courseDomain.ReconstituteCourse(42, "Cached Gala", june1, 3)
	require.NoError(t, cache.Set(context.Background(), courseDomain.CacheKeyByID(42), toCacheEntry(cached), 60))

	got, err := service.GetCourseByID(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, "Cached Gala", got.Name())
	assert.Equal(t, 3, got.Number())
}

func TestListCourses_Ordered(t *testing.T) {
	store := mocks.NewInMemoryStore()
	service := newCourseService(store)

	_, _ = service.CreateCourse(context.Background(), "C", courseDomain.NewDate(2024, 7, 1), 1)
	_, _ = service.CreateCourse(context.Background(), "B", june1, 2)
	_, _ = service.CreateCourse(context.Background(), "A", june1, 1)

	courses, err := service.ListCourses(context.Background())

	require.NoError(t, err)
	require.Len(t, courses, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{courses[0].Name(), courses[1].Name(), courses[2].Name()})
}

func TestUpdateCourse_InvalidatesCacheEntry(t *testing.T) {
	store := mocks.NewInMemoryStore()
	cache := mocks.NewDummyCache()
	courses := NewCourseService(store, cache, zap.NewNop())
	participants := NewParticipantService(store, cache, zap.NewNop())
	ctx := context.Background()

	created, err := courses.CreateCourse(ctx, "Spring Gala", june1, 1)
	require.NoError(t, err)
	key := courseDomain.CacheKeyByID(created.ID())

	newName := "Summer Gala"
	_, err = courses.UpdateCourse(ctx, created.ID(), CourseChanges{Name: &newName})
	require.NoError(t, err)
	assert.False(t, cache.Has(key))

	_, err = participants.AddParticipant(ctx, created.ID(), "Alice")
	require.NoError(t, err)

	got, err := courses.GetCourseByID(ctx, created.ID())
	require.NoError(t, err)
	assert.Equal(t, "Summer Gala", got.Name())
	assert.Len(t, got.Participants(), 1)
}
