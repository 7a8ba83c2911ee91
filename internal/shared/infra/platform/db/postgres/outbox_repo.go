package postgres

import (
	"context"
	"database/sql"
	"fmt"

	sharedDomain "github.com/davicafu/hexacourses/internal/shared/domain"
)

// OutboxRepoPostgres implementa la interfaz sharedDomain.OutboxRepository.
type OutboxRepoPostgres struct {
	db *sql.DB
}

func NewOutboxRepoPostgres(db *sql.DB) *OutboxRepoPostgres {
	return &OutboxRepoPostgres{db: db}
}

// FetchPendingOutbox obtiene los eventos no enviados en orden de inserción.
func (r *OutboxRepoPostgres) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_type, aggregate_id, topic, payload, created_at
		 FROM outbox WHERE NOT sent ORDER BY created_at, seq LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []sharedDomain.OutboxEvent
	for rows.Next() {
		var evt sharedDomain.OutboxEvent
		var payloadBytes []byte // El payload se lee como JSONB

		if err := rows.Scan(&evt.ID, &evt.AggregateType, &evt.AggregateID, &evt.Topic, &payloadBytes, &evt.CreatedAt); err != nil {
			return nil, err
		}
		evt.Payload = string(payloadBytes)
		evt.CreatedAt = evt.CreatedAt.UTC()

		events = append(events, evt)
	}

	return events, rows.Err()
}

// SaveAll persiste el estado sent de los eventos en una sola transacción.
func (r *OutboxRepoPostgres) SaveAll(ctx context.Context, evts []sharedDomain.OutboxEvent) (err error) {
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

	for _, evt := range evts {
		if _, err = tx.ExecContext(ctx, `UPDATE outbox SET sent=$1 WHERE id=$2`, evt.Sent, evt.ID); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}

	return tx.Commit()
}

// Verificación en tiempo de compilación.
var _ sharedDomain.OutboxRepository = (*OutboxRepoPostgres)(nil)
