package store

import (
	"context"
	"database/sql"
)

// WithTx runs fn inside a transaction, committing on success and rolling
// back on any error including panics. The Change Enumerator uses one
// transaction per commit (spec §4.5); callers that need a cached prepared
// statement bound to the transaction should use tx.StmtContext(ctx, stmt).
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}
