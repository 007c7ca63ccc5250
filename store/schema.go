// Package store owns the database handle: schema creation, the prepared
// statement cache, and the per-entity read/write primitives the sync engine
// is built from. Nothing above this package writes raw SQL.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	_ "github.com/mattn/go-sqlite3"

	"go.bushi.dev/index/log"
)

// schema is applied on every open; every statement is idempotent so
// re-running it against an already-initialised database is a no-op.
//
// Durability is intentionally relaxed: a sync pass is idempotent, so an
// unflushed write lost to a crash is simply redone on the next pass.
const schema = `
PRAGMA synchronous = OFF;

CREATE TABLE IF NOT EXISTS repositories (
	repository_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT UNIQUE NOT NULL,
	path TEXT UNIQUE NOT NULL,
	head TEXT
) STRICT;

CREATE TABLE IF NOT EXISTS commits (
	commit_id INTEGER PRIMARY KEY AUTOINCREMENT,
	commit_hash TEXT NOT NULL,
	parent_hash TEXT,
	generation INTEGER,
	repository_id INTEGER NOT NULL
) STRICT;

CREATE INDEX IF NOT EXISTS idx_commit_hash
	ON commits(repository_id, commit_hash);
CREATE INDEX IF NOT EXISTS idx_parent_hash
	ON commits(repository_id, parent_hash)
	WHERE generation IS NOT NULL;

CREATE TABLE IF NOT EXISTS ancestors (
	commit_id INTEGER NOT NULL,
	exponent INTEGER NOT NULL,
	ancestor_id INTEGER NOT NULL,
	PRIMARY KEY (commit_id, exponent)
) WITHOUT ROWID, STRICT;

-- binary-lifting skip-list, built incrementally: whenever a commit's
-- generation is assigned, materialise its ancestor-at-2^e rows for every e
-- reachable before we run out of recorded ancestry.
CREATE TRIGGER IF NOT EXISTS tgr_ancestor
AFTER UPDATE OF generation ON commits
FOR EACH ROW
WHEN NEW.parent_hash IS NOT NULL AND NEW.generation IS NOT NULL
BEGIN
	INSERT INTO ancestors (commit_id, exponent, ancestor_id)
	WITH RECURSIVE skip_list(commit_id, exponent, ancestor_id) AS (
		SELECT
			NEW.commit_id,
			0 AS exponent,
			c.commit_id AS ancestor_id
		FROM commits AS c
		WHERE c.repository_id = NEW.repository_id
			AND c.commit_hash = NEW.parent_hash

		UNION ALL

		SELECT
			s.commit_id,
			s.exponent + 1,
			a.ancestor_id
		FROM skip_list AS s
		JOIN ancestors AS a
			ON a.commit_id = s.ancestor_id
			AND a.exponent = s.exponent
	)
	SELECT commit_id, exponent, ancestor_id
	FROM skip_list
	WHERE ancestor_id IS NOT NULL;
END;

CREATE TABLE IF NOT EXISTS files (
	file_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT UNIQUE NOT NULL
) STRICT;

CREATE TABLE IF NOT EXISTS changes (
	commit_id INTEGER NOT NULL,
	file_id INTEGER NOT NULL,
	PRIMARY KEY (commit_id, file_id)
) WITHOUT ROWID, STRICT;

CREATE TABLE IF NOT EXISTS refs (
	full_name TEXT NOT NULL,
	show_name TEXT NOT NULL,
	commit_id INTEGER NOT NULL,
	ref_time INTEGER NOT NULL,
	ref_type INTEGER NOT NULL,
	is_dirty INTEGER DEFAULT NULL,
	repository_id INTEGER NOT NULL,
	PRIMARY KEY (repository_id, full_name),
	UNIQUE (repository_id, ref_type, show_name)
) WITHOUT ROWID, STRICT;

CREATE INDEX IF NOT EXISTS idx_refs_time
	ON refs(repository_id, ref_time);
CREATE INDEX IF NOT EXISTS idx_refs_dirty
	ON refs(repository_id, is_dirty)
	WHERE is_dirty IS NOT NULL;

CREATE TABLE IF NOT EXISTS migrations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT UNIQUE
);
`

// RefType mirrors the ref_type column: 1 is branch, 2 is tag (kept distinct
// from 0 so an unset column is visibly wrong rather than silently "branch").
type RefType int

const (
	RefTypeBranch RefType = 1
	RefTypeTag    RefType = 2
)

// Store owns the single database connection and every prepared statement
// used by the sync engine. It is safe to share across goroutines only in
// the sense that database/sql serialises access to it; the sync engine
// itself never calls it concurrently, matching the single-threaded
// cooperative model the indexer is built around.
type Store struct {
	db    *sql.DB
	log   *slog.Logger
	stmts *statements

	retryAttempts uint
	retryDelay    time.Duration
}

// Option configures a Store at Open time.
type Option func(*Store)

// WithRetry overrides the default busy-retry budget used around statement
// execution; cmd/index passes the budget loaded from the environment.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(s *Store) {
		s.retryAttempts = attempts
		s.retryDelay = delay
	}
}

// Open creates the database file if absent, applies the schema, and
// prepares every statement the store exposes. Any failure here is fatal:
// the caller should treat it as "database is corrupt or incompatible" and
// abort, per the error taxonomy in the spec this package implements.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	dsn := path + "?" + strings.Join([]string{
		"_foreign_keys=0",
	}, "&")

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// The indexer is a single-process, single-connection tool by design
	// (spec §5): one connection, one set of prepared statements, no
	// cross-connection contention to reason about.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:            db,
		log:           log.SubLogger(log.FromContext(ctx), "store"),
		retryAttempts: 5,
		retryDelay:    10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	stmts, err := prepareStatements(ctx, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare statements: %w", err)
	}
	s.stmts = stmts

	return s, nil
}

// Close releases every prepared statement and the underlying connection.
func (s *Store) Close() error {
	s.stmts.close()
	return s.db.Close()
}

// migrationFn is applied once, tracked by name in the migrations table. No
// migration ships yet; the hook is kept so the first schema change doesn't
// need to invent this plumbing under time pressure.
type migrationFn func(ctx context.Context, tx *sql.Tx) error

var migrations = []struct {
	name string
	fn   migrationFn
}{}

func runMigrations(ctx context.Context, db *sql.DB) error {
	for _, m := range migrations {
		if err := runMigration(ctx, db, m.name, m.fn); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
	}
	return nil
}

func runMigration(ctx context.Context, db *sql.DB, name string, fn migrationFn) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM migrations WHERE name = ?)", name).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO migrations (name) VALUES (?)", name); err != nil {
		return err
	}
	return tx.Commit()
}

// withRetry retries fn while it returns a transient SQLITE_BUSY error, per
// the busy-retry budget configured on Open. A persisting failure after the
// budget is exhausted is treated as fatal by the caller, matching the
// BEGIN/COMMIT-failure-is-fatal rule.
func (s *Store) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(s.retryAttempts),
		retry.Delay(s.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(isBusy),
		retry.LastErrorOnly(true),
	)
}
