package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/davicafu/hexacourses/internal/course/domain"
	sharedSQLite "github.com/davicafu/hexacourses/internal/shared/infra/platform/db/sqlite"
)

type ParticipantRepoSQLite struct {
	db sharedSQLite.DBTX
}

func (r *ParticipantRepoSQLite) Save(ctx context.Context, courseID domain.CourseID, p *domain.Participant) (*domain.Participant, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO participants (course_id, name, dossard) VALUES (?,?,?)`,
		int64(courseID), p.Name(), p.Dossard(),
	)
	switch {
	case sharedSQLite.IsUniqueViolation(err):
		return nil, domain.ErrDuplicateDossard
	case sharedSQLite.IsForeignKeyViolation(err):
		return nil, domain.ErrCourseNotFound
	case err != nil:
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return domain.ReconstituteParticipant(domain.ParticipantID(id), courseID, p.Name(), p.Dossard()), nil
}

func (r *ParticipantRepoSQLite) FindByID(ctx context.Context, id domain.ParticipantID) (*domain.Participant, error) {
	var (
		courseID int64
		name     string
		dossard  int
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT course_id, name, dossard FROM participants WHERE id=?`, int64(id),
	).Scan(&courseID, &name, &dossard)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrParticipantNotFound
	}
	if err != nil {
		return nil, err
	}
	return domain.ReconstituteParticipant(id, domain.CourseID(courseID), name, dossard), nil
}

func (r *ParticipantRepoSQLite) FindByCourse(ctx context.Context, courseID domain.CourseID) ([]*domain.Participant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, dossard FROM participants WHERE course_id=? ORDER BY dossard`, int64(courseID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []*domain.Participant
	for rows.Next() {
		var (
			id      int64
			name    string
			dossard int
		)
		if err := rows.Scan(&id, &name, &dossard); err != nil {
			return nil, err
		}
		participants = append(participants, domain.ReconstituteParticipant(domain.ParticipantID(id), courseID, name, dossard))
	}
	return participants, rows.Err()
}

var _ domain.ParticipantRepository = (*ParticipantRepoSQLite)(nil)
