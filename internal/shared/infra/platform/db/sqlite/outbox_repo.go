package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/davicafu/hexacourses/internal/shared/domain"
	"github.com/google/uuid"
)

// OutboxRepoSQLite implementa la interfaz shared.OutboxRepository.
type OutboxRepoSQLite struct {
	db *sql.DB
}

func NewOutboxRepoSQLite(db *sql.DB) *OutboxRepoSQLite {
	return &OutboxRepoSQLite{db: db}
}

// FetchPendingOutbox obtiene los eventos no enviados en orden de inserción.
func (r *OutboxRepoSQLite) FetchPendingOutbox(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_type, aggregate_id, topic, payload, created_at
         FROM outbox
         WHERE sent = 0
         ORDER BY created_at, rowid
         LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		var (
			evt       domain.OutboxEvent
			id        string
			createdAt string
		)
		if err := rows.Scan(&id, &evt.AggregateType, &evt.AggregateID, &evt.Topic, &evt.Payload, &createdAt); err != nil {
			return nil, err
		}

		// El ID en la base de datos se guarda como TEXT, por lo que lo parseamos de nuevo.
		if evt.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid UUID in outbox row: %w", err)
		}
		if evt.CreatedAt, err = ParseTime(createdAt); err != nil {
			return nil, fmt.Errorf("invalid created_at in outbox row %s: %w", id, err)
		}

		events = append(events, evt)
	}

	return events, rows.Err()
}

// SaveAll persiste el estado sent de los eventos en una sola transacción.
func (r *OutboxRepoSQLite) SaveAll(ctx context.Context, evts []domain.OutboxEvent) (err error) {
	if len(evts) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `UPDATE outbox SET sent = ? WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, evt := range evts {
		if _, err = stmt.ExecContext(ctx, evt.Sent, evt.ID.String()); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}

	return tx.Commit()
}

// Verificación en tiempo de compilación.
var _ domain.OutboxRepository = (*OutboxRepoSQLite)(nil)
