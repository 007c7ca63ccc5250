package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// FileLogEntry is one row of a per-path change history.
type FileLogEntry struct {
	Hash       string
	Generation int64
}

// NthAncestorHash resolves the n-th first-parent ancestor of hash within a
// repository by walking the ancestors skip-list, binary-lifting style: the
// recursive query greedily consumes the largest power-of-two jump that
// doesn't overshoot the remaining distance, giving O(log n) row reads.
// Returns ("", false, nil) if hash has fewer than n ancestors.
func (s *Store) NthAncestorHash(ctx context.Context, repositoryID int64, hash string, n int64) (string, bool, error) {
	if n <= 0 {
		return hash, true, nil
	}
	var ancestor string
	found := true
	err := s.withRetry(ctx, func() error {
		err := s.stmts.nthAncestor.QueryRowContext(ctx, n, repositoryID, hash).Scan(&ancestor)
		if errors.Is(err, sql.ErrNoRows) {
			found = false
			return nil
		}
		return err
	})
	if err != nil {
		return "", false, fmt.Errorf("nth ancestor of %s: %w", hash, err)
	}
	return ancestor, found, nil
}

// FileLog returns up to limit commits that touched path, newest (highest
// generation) first.
func (s *Store) FileLog(ctx context.Context, repositoryID int64, path string, limit int64) ([]FileLogEntry, error) {
	var entries []FileLogEntry
	err := s.withRetry(ctx, func() error {
		entries = nil
		rows, err := s.stmts.fileLog.QueryContext(ctx, repositoryID, path, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var e FileLogEntry
			if err := rows.Scan(&e.Hash, &e.Generation); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("file log for %s: %w", path, err)
	}
	return entries, nil
}
