package postgres

import (
	"context"
	"database/sql"
	"fmt"

	sharedPostgres "github.com/davicafu/hexacourses/internal/shared/infra/platform/db/postgres"
)

const (
	courseKeyConstraint  = "courses_date_number_key"
	dossardKeyConstraint = "participants_course_dossard_key"
)

const schema = `
CREATE TABLE IF NOT EXISTS courses (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	date DATE NOT NULL,
	number INTEGER NOT NULL,
	CONSTRAINT courses_date_number_key UNIQUE (date, number)
);
CREATE TABLE IF NOT EXISTS participants (
	id BIGSERIAL PRIMARY KEY,
	course_id BIGINT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	dossard INTEGER NOT NULL,
	CONSTRAINT participants_course_dossard_key UNIQUE (course_id, dossard)
);`

// InitPostgres crea las tablas de carreras, participantes y outbox.
func InitPostgres(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create course tables: %w", err)
	}
	return sharedPostgres.InitOutbox(ctx, db)
}
