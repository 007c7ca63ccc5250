package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Reference is a row of the refs table.
type Reference struct {
	FullName string
	ShowName string
	CommitID int64
	RefTime  int64
	RefType  RefType
}

// MarkAllDirty flips is_dirty on for every reference of a repository at the
// start of a sync pass. Each reference the Reference Reconciler re-observes
// clears its own dirty bit via UpsertRef; whatever is still dirty afterward
// has vanished from the remote and is removed by SweepDirty.
func (s *Store) MarkAllDirty(ctx context.Context, repositoryID int64) error {
	return s.withRetry(ctx, func() error {
		_, err := s.stmts.updateRefsDirty.ExecContext(ctx, repositoryID)
		if err != nil {
			return fmt.Errorf("mark refs dirty for repository %d: %w", repositoryID, err)
		}
		return nil
	})
}

// GetRefCommit returns the commit_id currently recorded for fullName, or
// (0, false) if no such reference row exists yet.
func (s *Store) GetRefCommit(ctx context.Context, repositoryID int64, fullName string) (int64, bool, error) {
	var id int64
	found := true
	err := s.withRetry(ctx, func() error {
		err := s.stmts.getRefCommit.QueryRowContext(ctx, repositoryID, fullName).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			found = false
			return nil
		}
		return err
	})
	if err != nil {
		return 0, false, fmt.Errorf("get ref commit %s: %w", fullName, err)
	}
	return id, found, nil
}

// UpdateRefClean clears the dirty bit for a reference whose target hasn't
// moved since the last pass, without touching its other columns.
func (s *Store) UpdateRefClean(ctx context.Context, repositoryID int64, fullName string) error {
	return s.withRetry(ctx, func() error {
		_, err := s.stmts.updateRefClean.ExecContext(ctx, repositoryID, fullName)
		if err != nil {
			return fmt.Errorf("clear dirty bit for ref %s: %w", fullName, err)
		}
		return nil
	})
}

// UpsertRef records the current target of a reference and clears its dirty
// bit, whether the row already existed or is being created for the first
// time (ON CONFLICT handles both in one statement, mirroring
// bushi-index.c's db_upsert_ref).
func (s *Store) UpsertRef(ctx context.Context, repositoryID int64, ref Reference) error {
	return s.withRetry(ctx, func() error {
		_, err := s.stmts.upsertRef.ExecContext(ctx,
			ref.FullName, ref.ShowName, ref.CommitID, ref.RefTime, int(ref.RefType), repositoryID)
		if err != nil {
			return fmt.Errorf("upsert ref %s: %w", ref.FullName, err)
		}
		return nil
	})
}

// SweepDirty deletes every reference still marked dirty for a repository —
// the set of references observed at the start of this pass that were not
// re-confirmed by the scan, i.e. deleted or renamed upstream.
func (s *Store) SweepDirty(ctx context.Context, repositoryID int64) (int64, error) {
	var affected int64
	err := s.withRetry(ctx, func() error {
		res, err := s.stmts.deleteDirtyRefs.ExecContext(ctx, repositoryID)
		if err != nil {
			return fmt.Errorf("sweep dirty refs for repository %d: %w", repositoryID, err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}
