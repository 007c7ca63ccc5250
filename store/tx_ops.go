package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// The Tx-suffixed methods below bind the store's cached prepared
// statements to a caller-supplied transaction via tx.StmtContext, so the
// Change Enumerator can run one transaction per commit (spec.md §4.5)
// without the store maintaining a second, transaction-scoped statement
// set.

// GetCommitIDTx looks up a commit's surrogate id within tx.
func (s *Store) GetCommitIDTx(ctx context.Context, tx *sql.Tx, repositoryID int64, hash string) (int64, bool, error) {
	var id int64
	var parentHash sql.NullString
	var generation sql.NullInt64

	stmt := tx.StmtContext(ctx, s.stmts.getCommit)
	err := stmt.QueryRowContext(ctx, repositoryID, hash).Scan(&id, &parentHash, &generation)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get commit id %s: %w", hash, err)
	}
	return id, true, nil
}

// UpdateGenerationTx assigns commitID's generation from its parent within
// tx, firing the skip-list trigger as part of the same transaction.
func (s *Store) UpdateGenerationTx(ctx context.Context, tx *sql.Tx, commitID int64) error {
	stmt := tx.StmtContext(ctx, s.stmts.updateGeneration)
	if _, err := stmt.ExecContext(ctx, commitID); err != nil {
		return fmt.Errorf("update generation for commit %d: %w", commitID, err)
	}
	return nil
}

// GetOrCreateFileIDTx interns name within tx.
func (s *Store) GetOrCreateFileIDTx(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	getStmt := tx.StmtContext(ctx, s.stmts.getFileID)
	var id int64
	err := getStmt.QueryRowContext(ctx, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("get file id %s: %w", name, err)
	}

	insertStmt := tx.StmtContext(ctx, s.stmts.insertFile)
	res, err := insertStmt.ExecContext(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("insert file %s: %w", name, err)
	}
	return res.LastInsertId()
}

// InsertChangeTx records commitID touching fileID within tx.
func (s *Store) InsertChangeTx(ctx context.Context, tx *sql.Tx, commitID, fileID int64) error {
	stmt := tx.StmtContext(ctx, s.stmts.insertChange)
	if _, err := stmt.ExecContext(ctx, commitID, fileID); err != nil {
		return fmt.Errorf("insert change (commit=%d, file=%d): %w", commitID, fileID, err)
	}
	return nil
}
