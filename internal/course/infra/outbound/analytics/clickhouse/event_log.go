package clickhouse

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"

	sharedEvents "github.com/davicafu/hexacourses/internal/shared/events"
)

const createEventsLog = `
CREATE TABLE IF NOT EXISTS course_events_log (
	event_id    String,
	topic       LowCardinality(String),
	course_id   String,
	payload     String,
	received_at DateTime64(3)
) ENGINE = ReplacingMergeTree
ORDER BY (topic, course_id, event_id)`

// CourseEventLog archiva en ClickHouse los eventos consumidos.
type CourseEventLog struct {
	db *sql.DB
}

// NewCourseEventLog abre la conexión y crea la tabla si no existe.
func NewCourseEventLog(ctx context.Context, addr string, dbName string) (*CourseEventLog, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})

	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}
	return NewCourseEventLogFromDB(ctx, conn)
}

// NewCourseEventLogFromDB reutiliza una conexión ya abierta.
func NewCourseEventLogFromDB(ctx context.Context, db *sql.DB) (*CourseEventLog, error) {
	if _, err := db.ExecContext(ctx, createEventsLog); err != nil {
		return nil, fmt.Errorf("create course_events_log: %w", err)
	}
	return &CourseEventLog{db: db}, nil
}

// Append inserta un evento. ReplacingMergeTree colapsa los repetidos por event_id.
func (r *CourseEventLog) Append(ctx context.Context, evt sharedEvents.IntegrationEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO course_events_log (event_id, topic, course_id, payload, received_at)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, evt.ID, evt.Type, evt.Key, string(evt.Data), evt.Timestamp); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to log event %s: %w", evt.ID, err)
	}
	return tx.Commit()
}

func (r *CourseEventLog) Close() error {
	return r.db.Close()
}
