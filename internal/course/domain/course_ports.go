package domain

import (
	"context"
	"fmt"

	sharedDomain "github.com/davicafu/hexacourses/internal/shared/domain"
)

// ---------- Interfaces (Ports) ----------

// CourseRepository define las operaciones persistentes para Course.
// Sólo es válido dentro de una transacción abierta por UnitOfWork.
type CourseRepository interface {
	// Save inserta (ID cero) o actualiza la carrera. Debe devolver
	// ErrDuplicateCourse si (fecha, número) ya existe y ErrCourseNotFound si
	// se actualiza una carrera inexistente.
	Save(ctx context.Context, c *Course) (*Course, error)

	// FindByID carga la carrera con sus participantes. Debe devolver ErrCourseNotFound.
	FindByID(ctx context.Context, id CourseID) (*Course, error)

	// LockByID es como FindByID pero serializa las escrituras concurrentes sobre
	// la misma carrera hasta el fin de la transacción.
	LockByID(ctx context.Context, id CourseID) (*Course, error)

	ExistsByDateAndNumber(ctx context.Context, date Date, number int) (bool, error)

	// FindAll devuelve las carreras ordenadas por (fecha, número) sin participantes.
	FindAll(ctx context.Context) ([]*Course, error)

	// DeleteByID elimina la carrera y sus participantes. Debe devolver ErrCourseNotFound.
	DeleteByID(ctx context.Context, id CourseID) error
}

// ParticipantRepository define las operaciones persistentes para Participant.
type ParticipantRepository interface {
	// Save inserta el participante en la carrera. Debe devolver
	// ErrDuplicateDossard si el dorsal ya está usado en esa carrera.
	Save(ctx context.Context, courseID CourseID, p *Participant) (*Participant, error)

	// Debe devolver ErrParticipantNotFound si no existe.
	FindByID(ctx context.Context, id ParticipantID) (*Participant, error)

	// FindByCourse devuelve los participantes ordenados por dorsal.
	FindByCourse(ctx context.Context, courseID CourseID) ([]*Participant, error)
}

// OutboxWriter añade registros a la outbox dentro de la transacción en curso.
type OutboxWriter interface {
	Insert(ctx context.Context, evt sharedDomain.OutboxEvent) error
}

// Store agrupa los repositorios ligados a una misma transacción.
type Store interface {
	Courses() CourseRepository
	Participants() ParticipantRepository
	Outbox() OutboxWriter
}

// UnitOfWork ejecuta fn en una transacción: todo lo escrito a través del Store
// se confirma junto si fn devuelve nil y se descarta en otro caso.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}

// ---------- Helpers comunes (cache keys, etc.) ----------

// CacheKeyByID forma una key consistente para cache usando ID.
func CacheKeyByID(id CourseID) string {
	return fmt.Sprintf("course:id:%s", id.String())
}
