package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/davicafu/hexacourses/internal/course/domain"
	sharedPostgres "github.com/davicafu/hexacourses/internal/shared/infra/platform/db/postgres"
)

type CourseRepoPostgres struct {
	db sharedPostgres.DBTX
}

func (r *CourseRepoPostgres) Save(ctx context.Context, c *domain.Course) (*domain.Course, error) {
	if c.ID() == 0 {
		var id int64
		err := r.db.QueryRowContext(ctx,
			`INSERT INTO courses (name, date, number) VALUES ($1, $2, $3) RETURNING id`,
			c.Name(), c.Date().Time(), c.Number(),
		).Scan(&id)
		if err != nil {
			return nil, mapCourseErr(err)
		}
		return c.WithID(domain.CourseID(id)), nil
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE courses SET name=$1, date=$2, number=$3 WHERE id=$4`,
		c.Name(), c.Date().Time(), c.Number(), int64(c.ID()),
	)
	if err != nil {
		return nil, mapCourseErr(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return nil, domain.ErrCourseNotFound
	}
	return c, nil
}

func (r *CourseRepoPostgres) FindByID(ctx context.Context, id domain.CourseID) (*domain.Course, error) {
	return r.find(ctx, `SELECT name, date, number FROM courses WHERE id=$1`, id)
}

// LockByID bloquea la fila de la carrera hasta el fin de la transacción, lo
// que serializa las inscripciones concurrentes en ella.
func (r *CourseRepoPostgres) LockByID(ctx context.Context, id domain.CourseID) (*domain.Course, error) {
	return r.find(ctx, `SELECT name, date, number FROM courses WHERE id=$1 FOR UPDATE`, id)
}

func (r *CourseRepoPostgres) find(ctx context.Context, query string, id domain.CourseID) (*domain.Course, error) {
	var (
		name   string
		date   time.Time
		number int
	)
	err := r.db.QueryRowContext(ctx, query, int64(id)).Scan(&name, &date, &number)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}

	participants, err := (&ParticipantRepoPostgres{db: r.db}).FindByCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.ReconstituteCourse(id, name, domain.DateOf(date), number, participants...), nil
}

func (r *CourseRepoPostgres) ExistsByDateAndNumber(ctx context.Context, date domain.Date, number int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM courses WHERE date=$1 AND number=$2)`, date.Time(), number,
	).Scan(&exists)
	return exists, err
}

func (r *CourseRepoPostgres) FindAll(ctx context.Context) ([]*domain.Course, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, date, number FROM courses ORDER BY date, number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []*domain.Course
	for rows.Next() {
		var (
			id     int64
			name   string
			date   time.Time
			number int
		)
		if err := rows.Scan(&id, &name, &date, &number); err != nil {
			return nil, err
		}
		courses = append(courses, domain.ReconstituteCourse(domain.CourseID(id), name, domain.DateOf(date), number))
	}
	return courses, rows.Err()
}

// DeleteByID borra la carrera; ON DELETE CASCADE elimina sus participantes.
func (r *CourseRepoPostgres) DeleteByID(ctx context.Context, id domain.CourseID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id=$1`, int64(id))
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return domain.ErrCourseNotFound
	}
	return nil
}

func mapCourseErr(err error) error {
	if constraint, ok := sharedPostgres.UniqueViolation(err); ok && constraint == courseKeyConstraint {
		return domain.ErrDuplicateCourse
	}
	return err
}

var _ domain.CourseRepository = (*CourseRepoPostgres)(nil)
