package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrRepositoryNotFound is returned by GetRepositoryID when no repository
// row matches the given name.
var ErrRepositoryNotFound = errors.New("store: repository not found")

// UpsertRepository registers or updates a repository's scan path and last
// observed HEAD, returning its surrogate repository_id. head may be nil
// when the caller hasn't resolved HEAD yet.
func (s *Store) UpsertRepository(ctx context.Context, name, path string, head *string) (int64, error) {
	var id int64
	err := s.withRetry(ctx, func() error {
		if _, err := s.stmts.upsertRepository.ExecContext(ctx, name, path, head); err != nil {
			return fmt.Errorf("upsert repository %s: %w", name, err)
		}
		return s.stmts.getRepositoryID.QueryRowContext(ctx, name).Scan(&id)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetRepositoryID resolves a repository name to its surrogate id.
func (s *Store) GetRepositoryID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.withRetry(ctx, func() error {
		err := s.stmts.getRepositoryID.QueryRowContext(ctx, name).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrRepositoryNotFound, name)
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// DeleteRepository removes the repositories row for name. Matching the
// original C schema, this has no cascading effect: commits, files, changes
// and refs rows for this repository are intentionally left orphaned rather
// than deleted, since the schema carries no foreign-key constraints.
func (s *Store) DeleteRepository(ctx context.Context, name string) error {
	return s.withRetry(ctx, func() error {
		_, err := s.stmts.deleteRepository.ExecContext(ctx, name)
		if err != nil {
			return fmt.Errorf("delete repository %s: %w", name, err)
		}
		return nil
	})
}
