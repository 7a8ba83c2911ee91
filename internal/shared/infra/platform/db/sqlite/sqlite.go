package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	// _ "github.com/mattn/go-sqlite3" // better performance but requires gcc
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/davicafu/hexacourses/internal/shared/domain"
)

// timeLayout tiene ancho fijo para que el orden de texto coincida con el temporal.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const outboxSchema = `
CREATE TABLE IF NOT EXISTS outbox (
	id TEXT PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id TEXT NOT NULL,
	topic TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL,
	sent INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox (sent, created_at);`

// DBTX es lo común a *sql.DB y *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open abre la base de datos con claves foráneas activas y transacciones
// BEGIN IMMEDIATE, de modo que cada unidad de trabajo toma el lock de
// escritura al empezar. Una sola conexión evita SQLITE_BUSY entre escritores.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return db, nil
}

// InitOutbox crea la tabla outbox si no existe.
func InitOutbox(db *sql.DB) error {
	if _, err := db.Exec(outboxSchema); err != nil {
		return fmt.Errorf("create outbox table: %w", err)
	}
	return nil
}

// InsertOutboxTx añade el evento dentro de la transacción recibida.
func InsertOutboxTx(ctx context.Context, tx DBTX, evt domain.OutboxEvent) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO outbox (id,aggregate_type,aggregate_id,topic,payload,created_at,sent)
		 VALUES (?,?,?,?,?,?,0)`,
		evt.ID.String(), evt.AggregateType, evt.AggregateID, evt.Topic, evt.Payload, FormatTime(evt.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func ParseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// IsUniqueViolation indica si err es una violación de UNIQUE o PRIMARY KEY.
func IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}

// IsForeignKeyViolation indica si err es una violación de FOREIGN KEY.
func IsForeignKeyViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}
