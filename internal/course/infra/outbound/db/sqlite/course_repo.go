package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/davicafu/hexacourses/internal/course/domain"
	sharedSQLite "github.com/davicafu/hexacourses/internal/shared/infra/platform/db/sqlite"
)

type CourseRepoSQLite struct {
	db sharedSQLite.DBTX
}

// Save inserta o actualiza la carrera; la restricción UNIQUE(date, number)
// es la última barrera frente a duplicados.
func (r *CourseRepoSQLite) Save(ctx context.Context, c *domain.Course) (*domain.Course, error) {
	if c.ID() == 0 {
		res, err := r.db.ExecContext(ctx,
			`INSERT INTO courses (name, date, number) VALUES (?,?,?)`,
			c.Name(), c.Date().String(), c.Number(),
		)
		if err != nil {
			return nil, mapCourseErr(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		return c.WithID(domain.CourseID(id)), nil
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE courses SET name=?, date=?, number=? WHERE id=?`,
		c.Name(), c.Date().String(), c.Number(), int64(c.ID()),
	)
	if err != nil {
		return nil, mapCourseErr(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return nil, domain.ErrCourseNotFound
	}
	return c, nil
}

func (r *CourseRepoSQLite) FindByID(ctx context.Context, id domain.CourseID) (*domain.Course, error) {
	var (
		name    string
		dateStr string
		number  int
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT name, date, number FROM courses WHERE id=?`, int64(id),
	).Scan(&name, &dateStr, &number)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}

	date, err := domain.ParseDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid date in course row %d: %w", id, err)
	}

	participants, err := (&ParticipantRepoSQLite{db: r.db}).FindByCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.ReconstituteCourse(id, name, date, number, participants...), nil
}

// LockByID no necesita SELECT ... FOR UPDATE: la transacción ya es IMMEDIATE.
func (r *CourseRepoSQLite) LockByID(ctx context.Context, id domain.CourseID) (*domain.Course, error) {
	return r.FindByID(ctx, id)
}

func (r *CourseRepoSQLite) ExistsByDateAndNumber(ctx context.Context, date domain.Date, number int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM courses WHERE date=? AND number=?)`, date.String(), number,
	).Scan(&exists)
	return exists, err
}

func (r *CourseRepoSQLite) FindAll(ctx context.Context) ([]*domain.Course, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, date, number FROM courses ORDER BY date, number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []*domain.Course
	for rows.Next() {
		var (
			id      int64
			name    string
			dateStr string
			number  int
		)
		if err := rows.Scan(&id, &name, &dateStr, &number); err != nil {
			return nil, err
		}
		date, err := domain.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("invalid date in course row %d: %w", id, err)
		}
		courses = append(courses, domain.ReconstituteCourse(domain.CourseID(id), name, date, number))
	}
	return courses, rows.Err()
}

func (r *CourseRepoSQLite) DeleteByID(ctx context.Context, id domain.CourseID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM participants WHERE course_id=?`, int64(id)); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id=?`, int64(id))
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return domain.ErrCourseNotFound
	}
	return nil
}

func mapCourseErr(err error) error {
	if sharedSQLite.IsUniqueViolation(err) {
		return domain.ErrDuplicateCourse
	}
	return err
}

var _ domain.CourseRepository = (*CourseRepoSQLite)(nil)
