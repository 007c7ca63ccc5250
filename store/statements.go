package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"
)

// statements holds every prepared statement the store exposes, named the
// way the operations in spec.md §4 name their primitives.
type statements struct {
	upsertRepository  *sql.Stmt
	getRepositoryID   *sql.Stmt
	deleteRepository  *sql.Stmt

	getCommit        *sql.Stmt
	insertCommit     *sql.Stmt
	updateGeneration *sql.Stmt

	getFileID    *sql.Stmt
	insertFile   *sql.Stmt
	insertChange *sql.Stmt

	getRefCommit    *sql.Stmt
	upsertRef       *sql.Stmt
	updateRefClean  *sql.Stmt
	updateRefsDirty *sql.Stmt
	deleteDirtyRefs *sql.Stmt

	nthAncestor *sql.Stmt
	fileLog     *sql.Stmt
}

func prepareStatements(ctx context.Context, db *sql.DB) (*statements, error) {
	s := &statements{}

	type prep struct {
		dst **sql.Stmt
		sql string
	}

	specs := []prep{
		{&s.upsertRepository, `
			INSERT INTO repositories (name, path, head)
			VALUES (?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				path = excluded.path,
				head = excluded.head
		`},
		{&s.getRepositoryID, `
			SELECT repository_id FROM repositories WHERE name = ? LIMIT 1
		`},
		{&s.deleteRepository, `
			DELETE FROM repositories WHERE name = ?
		`},
		{&s.getCommit, `
			SELECT commit_id, parent_hash, generation
			FROM commits
			WHERE repository_id = ? AND commit_hash = ?
			LIMIT 1
		`},
		{&s.insertCommit, `
			INSERT INTO commits (commit_hash, parent_hash, generation, repository_id)
			VALUES (?, ?, ?, ?)
		`},
		{&s.updateGeneration, `
			UPDATE commits
			SET generation = parent.generation + 1
			FROM commits AS parent
			WHERE commits.commit_id = ?
				AND parent.generation IS NOT NULL
				AND parent.commit_hash = commits.parent_hash
				AND parent.repository_id = commits.repository_id
		`},
		{&s.getFileID, `
			SELECT file_id FROM files WHERE name = ? LIMIT 1
		`},
		{&s.insertFile, `
			INSERT INTO files (name) VALUES (?)
		`},
		{&s.insertChange, `
			INSERT INTO changes (commit_id, file_id) VALUES (?, ?)
			ON CONFLICT DO NOTHING
		`},
		{&s.getRefCommit, `
			SELECT commit_id FROM refs
			WHERE repository_id = ? AND full_name = ?
			LIMIT 1
		`},
		{&s.upsertRef, `
			INSERT INTO refs (full_name, show_name, commit_id, ref_time, ref_type, is_dirty, repository_id)
			VALUES (?, ?, ?, ?, ?, NULL, ?)
			ON CONFLICT(repository_id, full_name) DO UPDATE SET
				show_name = excluded.show_name,
				commit_id = excluded.commit_id,
				ref_time = excluded.ref_time,
				ref_type = excluded.ref_type,
				is_dirty = NULL
		`},
		{&s.updateRefClean, `
			UPDATE refs SET is_dirty = NULL
			WHERE repository_id = ? AND full_name = ?
		`},
		{&s.updateRefsDirty, `
			UPDATE refs SET is_dirty = 1 WHERE repository_id = ?
		`},
		{&s.deleteDirtyRefs, `
			DELETE FROM refs WHERE repository_id = ? AND is_dirty IS NOT NULL
		`},
		{&s.nthAncestor, `
			WITH RECURSIVE walk(commit_id, remaining) AS (
				SELECT c.commit_id, ?
				FROM commits c
				WHERE c.repository_id = ? AND c.commit_hash = ?

				UNION ALL

				SELECT a.ancestor_id, w.remaining - (1 << a.exponent)
				FROM walk w
				JOIN ancestors a ON a.commit_id = w.commit_id
				WHERE a.exponent = (
					SELECT MAX(exponent) FROM ancestors
					WHERE commit_id = w.commit_id AND (1 << exponent) <= w.remaining
				)
				AND w.remaining > 0
			)
			SELECT c.commit_hash
			FROM walk w
			JOIN commits c ON c.commit_id = w.commit_id
			WHERE w.remaining = 0
			LIMIT 1
		`},
		{&s.fileLog, `
			SELECT c.commit_hash, c.generation
			FROM changes ch
			JOIN files f ON f.file_id = ch.file_id
			JOIN commits c ON c.commit_id = ch.commit_id
			WHERE c.repository_id = ? AND f.name = ?
			ORDER BY c.generation DESC
			LIMIT ?
		`},
	}

	for _, p := range specs {
		stmt, err := db.PrepareContext(ctx, p.sql)
		if err != nil {
			s.close()
			return nil, err
		}
		*p.dst = stmt
	}

	return s, nil
}

func (s *statements) close() {
	if s == nil {
		return
	}
	for _, stmt := range []*sql.Stmt{
		s.upsertRepository, s.getRepositoryID, s.deleteRepository,
		s.getCommit, s.insertCommit, s.updateGeneration,
		s.getFileID, s.insertFile, s.insertChange,
		s.getRefCommit, s.upsertRef, s.updateRefClean,
		s.updateRefsDirty, s.deleteDirtyRefs,
		s.nthAncestor, s.fileLog,
	} {
		if stmt != nil {
			stmt.Close()
		}
	}
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
