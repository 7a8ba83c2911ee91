package application

import (
	"context"
	"errors"
	"time"

	courseDomain "github.com/davicafu/hexacourses/internal/course/domain"
	sharedCache "github.com/davicafu/hexacourses/internal/shared/infra/platform/cache"
	sharedUtils "github.com/davicafu/hexacourses/internal/shared/infra/utils"
	"go.uber.org/zap"
)

const (
	cacheTTLSecs  = 60
	readAttempts  = 3
	readRetryWait = 100 * time.Millisecond
)

// CourseService define los casos de uso relacionados con Course.
// Cada escritura se confirma junto con su registro outbox.
type CourseService struct {
	uow   courseDomain.UnitOfWork
	cache sharedCache.Cache
	log   *zap.Logger
}

// NewCourseService es el constructor para el servicio de carreras.
func NewCourseService(uow courseDomain.UnitOfWork, cache sharedCache.Cache, log *zap.Logger) *CourseService {
	return &CourseService{
		uow:   uow,
		cache: cache,
		log:   log,
	}
}

// CourseChanges agrupa los campos opcionales de una actualización.
type CourseChanges struct {
	Name   *string
	Date   *courseDomain.Date
	Number *int
}

// CreateCourse crea la carrera y su evento course-created en la misma transacción.
func (s *CourseService) CreateCourse(ctx context.Context, name string, date courseDomain.Date, number int) (*courseDomain.Course, error) {
	course, err := courseDomain.NewCourse(name, date, number)
	if err != nil {
		return nil, err
	}

	var created *courseDomain.Course
	err = s.uow.Do(ctx, func(ctx context.Context, store courseDomain.Store) error {
		exists, err := store.Courses().ExistsByDateAndNumber(ctx, course.Date(), course.Number())
		if err != nil {
			return err
		}
		if exists {
			return courseDomain.ErrDuplicateCourse
		}

		if created, err = store.Courses().Save(ctx, course); err != nil {
			return err
		}

		evt, err := courseDomain.CourseCreatedEvent(created)
		if err != nil {
			return err
		}
		return store.Outbox().Insert(ctx, evt)
	})
	if err != nil {
		s.logFailure("Failed to create course", err, zap.String("date", date.String()), zap.Int("number", number))
		return nil, err
	}

	s.log.Info("Course created",
		zap.Int64("course_id", int64(created.ID())),
		zap.String("date", created.Date().String()),
		zap.Int("number", created.Number()))

	sharedCache.TrySet(ctx, s.cache, courseDomain.CacheKeyByID(created.ID()), toCacheEntry(created), cacheTTLSecs, s.log)
	return created, nil
}

// UpdateCourse aplica los cambios presentes. Si (fecha, número) resultante
// difiere del actual se vuelve a comprobar la unicidad.
func (s *CourseService) UpdateCourse(ctx context.Context, id courseDomain.CourseID, changes CourseChanges) (*courseDomain.Course, error) {
	var updated *courseDomain.Course
	err := s.uow.Do(ctx, func(ctx context.Context, store courseDomain.Store) error {
		course, err := store.Courses().LockByID(ctx, id)
		if err != nil {
			return err
		}

		prevDate, prevNumber := course.Date(), course.Number()
		if err := course.UpdateDetails(changes.Name, changes.Date, changes.Number); err != nil {
			return err
		}

		if !course.SameBusinessKey(prevDate, prevNumber) {
			exists, err := store.Courses().ExistsByDateAndNumber(ctx, course.Date(), course.Number())
			if err != nil {
				return err
			}
			if exists {
				return courseDomain.ErrDuplicateCourse
			}
		}

		if updated, err = store.Courses().Save(ctx, course); err != nil {
			return err
		}

		evt, err := courseDomain.CourseUpdatedEvent(updated)
		if err != nil {
			return err
		}
		return store.Outbox().Insert(ctx, evt)
	})
	if err != nil {
		s.logFailure("Failed to update course", err, zap.Int64("course_id", int64(id)))
		return nil, err
	}

	// Invalidar, no escribir: la copia cargada puede no incluir un participante
	// confirmado después.
	sharedCache.TryDelete(ctx, s.cache, courseDomain.CacheKeyByID(id), s.log)
	return updated, nil
}

// DeleteCourse elimina la carrera con sus participantes y emite course-deleted.
func (s *CourseService) DeleteCourse(ctx context.Context, id courseDomain.CourseID) error {
	err := s.uow.Do(ctx, func(ctx context.Context, store courseDomain.Store) error {
		if err := store.Courses().DeleteByID(ctx, id); err != nil {
			return err
		}
		evt, err := courseDomain.CourseDeletedEvent(id)
		if err != nil {
			return err
		}
		return store.Outbox().Insert(ctx, evt)
	})
	if err != nil {
		s.logFailure("Failed to delete course", err, zap.Int64("course_id", int64(id)))
		return err
	}

	sharedCache.TryDelete(ctx, s.cache, courseDomain.CacheKeyByID(id), s.log)
	return nil
}

// GetCourseByID obtiene una carrera (primero intenta desde cache).
func (s *CourseService) GetCourseByID(ctx context.Context, id courseDomain.CourseID) (*courseDomain.Course, error) {
	// 1. Intentar cache
	if s.cache != nil {
		var entry courseCacheEntry
		if ok, _ := s.cache.Get(ctx, courseDomain.CacheKeyByID(id), &entry); ok {
			if course, err := entry.toDomain(); err == nil {
				return course, nil
			}
		}
	}

	// 2. Ir al store con reintentos; un not-found no se reintenta
	var course *courseDomain.Course
	err := sharedUtils.Retry(ctx, readAttempts, readRetryWait, isTransient, func() error {
		return s.uow.Do(ctx, func(ctx context.Context, store courseDomain.Store) error {
			var err error
			course, err = store.Courses().FindByID(ctx, id)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	// 3. Poblar la caché; un fallo no afecta a la respuesta
	sharedCache.TrySet(ctx, s.cache, courseDomain.CacheKeyByID(id), toCacheEntry(course), cacheTTLSecs, s.log)
	return course, nil
}

// ListCourses devuelve todas las carreras ordenadas por (fecha, número).
func (s *CourseService) ListCourses(ctx context.Context) ([]*courseDomain.Course, error) {
	var courses []*courseDomain.Course
	err := s.uow.Do(ctx, func(ctx context.Context, store courseDomain.Store) error {
		var err error
		courses, err = store.Courses().FindAll(ctx)
		return err
	})
	return courses, err
}

// logFailure registra como Warn los errores de negocio y como Error el resto.
func (s *CourseService) logFailure(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if isBusinessError(err) {
		s.log.Warn(msg, fields...)
		return
	}
	s.log.Error(msg, fields...)
}

func isBusinessError(err error) bool {
	return errors.Is(err, courseDomain.ErrDuplicateCourse) ||
		errors.Is(err, courseDomain.ErrCourseNotFound) ||
		errors.Is(err, courseDomain.ErrParticipantNotFound) ||
		errors.Is(err, courseDomain.ErrDuplicateDossard) ||
		errors.Is(err, courseDomain.ErrValidation)
}

func isTransient(err error) bool {
	return !isBusinessError(err) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
