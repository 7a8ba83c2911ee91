package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davicafu/hexacourses/internal/course/application"
	"github.com/davicafu/hexacourses/internal/course/domain"
	sharedSQLite "github.com/davicafu/hexacourses/internal/shared/infra/platform/db/sqlite"
)

var june1 = domain.NewDate(2024, time.June, 1)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sharedSQLite.Open(filepath.Join(t.TempDir(), "courses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, InitSQLite(db))
	return db
}

func services(db *sql.DB) (*application.CourseService, *application.ParticipantService) {
	uow := NewTxManager(db)
	return application.NewCourseService(uow, nil, zap.NewNop()),
		application.NewParticipantService(uow, nil, zap.NewNop())
}

func TestSQLite_CreateCourseWritesOutbox(t *testing.T) {
	db := setupDB(t)
	courses, _ := services(db)
	ctx := context.Background()

	course, err := courses.CreateCourse(ctx, "Spring Gala", june1, 1)
	require.NoError(t, err)
	assert.NotZero(t, course.ID())

	outbox := sharedSQLite.NewOutboxRepoSQLite(db)
	pending, err := outbox.FetchPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, domain.TopicCourseCreated, pending[0].Topic)
	assert.Equal(t, course.ID().String(), pending[0].AggregateID)
	assert.JSONEq(t,
		`{"courseId":`+course.ID().String()+`,"name":"Spring Gala","date":"2024-06-01","number":1}`,
		pending[0].Payload)

	got, err := courses.GetCourseByID(ctx, course.ID())
	require.NoError(t, err)
	assert.True(t, got.Date().Equal(june1))
}

func TestSQLite_UniqueConstraintBackstop(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	uow := NewTxManager(db)

	c, err := domain.NewCourse("A", june1, 1)
	require.NoError(t, err)

	// Salta la comprobación previa del servicio para llegar al índice único
	err = uow.Do(ctx, func(ctx context.Context, s domain.Store) error {
		if _, err := s.Courses().Save(ctx, c); err != nil {
			return err
		}
		_, err := s.Courses().Save(ctx, c)
		return err
	})

	assert.ErrorIs(t, err, domain.ErrDuplicateCourse)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM courses`).Scan(&count))
	assert.Zero(t, count, "la transacción completa se deshace")
}

func TestSQLite_DuplicateDossardBackstop(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	courses, _ := services(db)
	uow := NewTxManager(db)

	course, err := courses.CreateCourse(ctx, "A", june1, 1)
	require.NoError(t, err)

	err = uow.Do(ctx, func(ctx context.Context, s domain.Store) error {
		p, _ := domain.NewParticipant(course.ID(), "Alice", 1)
		if _, err := s.Participants().Save(ctx, course.ID(), p); err != nil {
			return err
		}
		_, err := s.Participants().Save(ctx, course.ID(), p)
		return err
	})

	assert.ErrorIs(t, err, domain.ErrDuplicateDossard)
}

func TestSQLite_ConcurrentCreatesSingleWinner(t *testing.T) {
	db := setupDB(t)
	courses, _ := services(db)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := courses.CreateCourse(context.Background(), "Gala", june1, 1)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrDuplicateCourse)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	var outboxRows int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM outbox`).Scan(&outboxRows))
	assert.Equal(t, 1, outboxRows)
}

func TestSQLite_ConcurrentParticipantsGetDistinctDossards(t *testing.T) {
	db := setupDB(t)
	courses, participants := services(db)
	course, err := courses.CreateCourse(context.Background(), "Gala", june1, 1)
	require.NoError(t, err)

	const n = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		dossards []int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := participants.AddParticipant(context.Background(), course.ID(), "Runner")
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

	list, err := participants.ListParticipantsByCourse(context.Background(), course.ID())
	require.NoError(t, err)
	assert.Len(t, list, n)
}

func TestSQLite_UpdateAndDelete(t *testing.T) {
	db := setupDB(t)
	courses, participants := services(db)
	ctx := context.Background()

	a, err := courses.CreateCourse(ctx, "A", june1, 1)
	require.NoError(t, err)
	_, err = courses.CreateCourse(ctx, "B", june1, 2)
	require.NoError(t, err)
	_, err = participants.AddParticipant(ctx, a.ID(), "Alice")
	require.NoError(t, err)

	two := 2
	_, err = courses.UpdateCourse(ctx, a.ID(), application.CourseChanges{Number: &two})
	assert.ErrorIs(t, err, domain.ErrDuplicateCourse)

	three := 3
	updated, err := courses.UpdateCourse(ctx, a.ID(), application.CourseChanges{Number: &three})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Number())

	require.NoError(t, courses.DeleteCourse(ctx, a.ID()))
	_, err = courses.GetCourseByID(ctx, a.ID())
	assert.ErrorIs(t, err, domain.ErrCourseNotFound)

	var orphans int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM participants WHERE course_id=?`, int64(a.ID())).Scan(&orphans))
	assert.Zero(t, orphans)

	all, err := courses.ListCourses(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "B", all[0].Name())
}

func TestSQLite_OutboxSaveAll(t *testing.T) {
	db := setupDB(t)
	courses, participants := services(db)
	ctx := context.Background()

	course, err := courses.CreateCourse(ctx, "A", june1, 1)
	require.NoError(t, err)
	_, err = participants.AddParticipant(ctx, course.ID(), "Alice")
	require.NoError(t, err)

	repo := sharedSQLite.NewOutboxRepoSQLite(db)
	pending, err := repo.FetchPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, domain.TopicCourseCreated, pending[0].Topic)
	assert.Equal(t, domain.TopicParticipantAdded, pending[1].Topic)

	pending[0].Sent = true
	require.NoError(t, repo.SaveAll(ctx, pending[:1]))

	rest, err := repo.FetchPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, pending[1].ID, rest[0].ID)

	limited, err := repo.FetchPendingOutbox(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, limited)
}
