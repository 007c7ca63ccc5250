package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetOrCreateFileID interns a repository-relative path, returning its
// stable file_id. Paths are interned globally (not per-repository) since
// the same relative path in different repositories is treated as the same
// logical file for the purposes of the files table, matching bushi-index.c.
func (s *Store) GetOrCreateFileID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.withRetry(ctx, func() error {
		err := s.stmts.getFileID.QueryRowContext(ctx, name).Scan(&id)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		res, err := s.stmts.insertFile.ExecContext(ctx, name)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("intern file %s: %w", name, err)
	}
	return id, nil
}

// InsertChange records that commitID touched fileID. Duplicate inserts
// (the same path appearing twice in one commit's diff, which shouldn't
// happen but costs nothing to tolerate) are silently ignored.
func (s *Store) InsertChange(ctx context.Context, commitID, fileID int64) error {
	return s.withRetry(ctx, func() error {
		_, err := s.stmts.insertChange.ExecContext(ctx, commitID, fileID)
		if err != nil {
			return fmt.Errorf("insert change (commit=%d, file=%d): %w", commitID, fileID, err)
		}
		return nil
	})
}
