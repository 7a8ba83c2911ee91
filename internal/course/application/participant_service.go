package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	courseDomain "github.com/davicafu/hexacourses/internal/course/domain"
	sharedCache "github.com/davicafu/hexacourses/internal/shared/infra/platform/cache"
	"go.uber.org/zap"
)

// DefaultDossardAttempts acota los reintentos cuando dos inscripciones
// concurrentes chocan en el mismo dorsal.
const DefaultDossardAttempts = 5

// ParticipantService define los casos de uso de inscripción.
type ParticipantService struct {
	uow      courseDomain.UnitOfWork
	cache    sharedCache.Cache
	log      *zap.Logger
	attempts int
}

func NewParticipantService(uow courseDomain.UnitOfWork, cache sharedCache.Cache, log *zap.Logger) *ParticipantService {
	return &ParticipantService{
		uow:      uow,
		cache:    cache,
		log:      log,
		attempts: DefaultDossardAttempts,
	}
}

// AddParticipant inscribe a name en la carrera con el siguiente dorsal libre
// y emite participant-added en la misma transacción.
func (s *ParticipantService) AddParticipant(ctx context.Context, courseID courseDomain.CourseID, name string) (*courseDomain.Participant, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: participant name is required", courseDomain.ErrValidation)
	}

	var (
		added *courseDomain.Participant
		err   error
	)
	for attempt := 1; attempt <= s.attempts; attempt++ {
		added, err = s.addOnce(ctx, courseID, name)
		if !errors.Is(err, courseDomain.ErrDuplicateDossard) {
			break
		}
		s.log.Debug("Dossard conflict, retrying",
			zap.Int64("course_id", int64(courseID)),
			zap.Int("attempt", attempt))
	}
	if err != nil {
		if isBusinessError(err) {
			s.log.Warn("Failed to add participant", zap.Int64("course_id", int64(courseID)), zap.Error(err))
		} else {
			s.log.Error("Failed to add participant", zap.Int64("course_id", int64(courseID)), zap.Error(err))
		}
		return nil, err
	}

	s.log.Info("Participant added",
		zap.Int64("course_id", int64(courseID)),
		zap.Int64("participant_id", int64(added.ID())),
		zap.Int("dossard", added.Dossard()))

	sharedCache.TryDelete(ctx, s.cache, courseDomain.CacheKeyByID(courseID), s.log)
	return added, nil
}

func (s *ParticipantService) addOnce(ctx context.Context, courseID courseDomain.CourseID, name string) (*courseDomain.Participant, error) {
	var added *courseDomain.Participant
	err := s.uow.Do(ctx, func(ctx context.Context, store courseDomain.Store) error {
		course, err := store.Courses().LockByID(ctx, courseID)
		if err != nil {
			return err
		}

		p, err := course.AddParticipant(name)
		if err != nil {
			return err
		}

		if added, err = store.Participants().Save(ctx, courseID, p); err != nil {
			return err
		}

		evt, err := courseDomain.ParticipantAddedEvent(added)
		if err != nil {
			return err
		}
		return store.Outbox().Insert(ctx, evt)
	})
	return added, err
}

func (s *ParticipantService) GetParticipantByID(ctx context.Context, id courseDomain.ParticipantID) (*courseDomain.Participant, error) {
	var p *courseDomain.Participant
	err := s.uow.Do(ctx, func(ctx context.Context, store courseDomain.Store) error {
		var err error
		p, err = store.Participants().FindByID(ctx, id)
		return err
	})
	return p, err
}

// ListParticipantsByCourse devuelve los participantes ordenados por dorsal.
func (s *ParticipantService) ListParticipantsByCourse(ctx context.Context, courseID courseDomain.CourseID) ([]*courseDomain.Participant, error) {
	var participants []*courseDomain.Participant
	err := s.uow.Do(ctx, func(ctx context.Context, store courseDomain.Store) error {
		if _, err := store.Courses().FindByID(ctx, courseID); err != nil {
			return err
		}
		var err error
		participants, err = store.Participants().FindByCourse(ctx, courseID)
		return err
	})
	return participants, err
}
