package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/davicafu/hexacourses/internal/course/domain"
	sharedPostgres "github.com/davicafu/hexacourses/internal/shared/infra/platform/db/postgres"
)

const foreignKeyViolation = "23503"

type ParticipantRepoPostgres struct {
	db sharedPostgres.DBTX
}

func (r *ParticipantRepoPostgres) Save(ctx context.Context, courseID domain.CourseID, p *domain.Participant) (*domain.Participant, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO participants (course_id, name, dossard) VALUES ($1, $2, $3) RETURNING id`,
		int64(courseID), p.Name(), p.Dossard(),
	).Scan(&id)
	if err != nil {
		if constraint, ok := sharedPostgres.UniqueViolation(err); ok && constraint == dossardKeyConstraint {
			return nil, domain.ErrDuplicateDossard
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return nil, domain.ErrCourseNotFound
		}
		return nil, err
	}
	return domain.ReconstituteParticipant(domain.ParticipantID(id), courseID, p.Name(), p.Dossard()), nil
}

func (r *ParticipantRepoPostgres) FindByID(ctx context.Context, id domain.ParticipantID) (*domain.Participant, error) {
	var (
		courseID int64
		name     string
		dossard  int
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT course_id, name, dossard FROM participants WHERE id=$1`, int64(id),
	).Scan(&courseID, &name, &dossard)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrParticipantNotFound
	}
	if err != nil {
		return nil, err
	}
	return domain.ReconstituteParticipant(id, domain.CourseID(courseID), name, dossard), nil
}

func (r *ParticipantRepoPostgres) FindByCourse(ctx context.Context, courseID domain.CourseID) ([]*domain.Participant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, dossard FROM participants WHERE course_id=$1 ORDER BY dossard`, int64(courseID),
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

var _ domain.ParticipantRepository = (*ParticipantRepoPostgres)(nil)
