package sqlite

import (
	"context"
	"database/sql"

	"github.com/davicafu/hexacourses/internal/course/domain"
	sharedDomain "github.com/davicafu/hexacourses/internal/shared/domain"
	sharedSQLite "github.com/davicafu/hexacourses/internal/shared/infra/platform/db/sqlite"
)

// TxManager implementa domain.UnitOfWork sobre una transacción SQLite.
// Con _txlock=immediate cada Do toma el lock de escritura al empezar, por lo
// que las unidades de trabajo se ejecutan en serie.
type TxManager struct {
	db *sql.DB
}

func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) Do(ctx context.Context, fn func(ctx context.Context, s domain.Store) error) (err error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(ctx, &txStore{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (s *txStore) Courses() domain.CourseRepository           { return &CourseRepoSQLite{db: s.tx} }
func (s *txStore) Participants() domain.ParticipantRepository { return &ParticipantRepoSQLite{db: s.tx} }
func (s *txStore) Outbox() domain.OutboxWriter                { return outboxWriter{tx: s.tx} }

type outboxWriter struct {
	tx *sql.Tx
}

func (w outboxWriter) Insert(ctx context.Context, evt sharedDomain.OutboxEvent) error {
	return sharedSQLite.InsertOutboxTx(ctx, w.tx, evt)
}

// Verificación en tiempo de compilación.
var _ domain.UnitOfWork = (*TxManager)(nil)
