package sqlite

import (
	"database/sql"
	"fmt"

	sharedSQLite "github.com/davicafu/hexacourses/internal/shared/infra/platform/db/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS courses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	date TEXT NOT NULL,
	number INTEGER NOT NULL,
	UNIQUE (date, number)
);
CREATE TABLE IF NOT EXISTS participants (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	course_id INTEGER NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	dossard INTEGER NOT NULL,
	UNIQUE (course_id, dossard)
);`

// InitSQLite crea las tablas de carreras, participantes y outbox.
func InitSQLite(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create course tables: %w", err)
	}
	return sharedSQLite.InitOutbox(db)
}
