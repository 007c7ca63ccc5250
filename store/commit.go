package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrHistoryRewrite is returned by InsertCommit when a commit hash already
// present in the store has a parent_hash that differs from the one now
// observed. The indexer treats this as operation-fatal for the reference
// being walked (see SPEC_FULL.md §7): it does not attempt to recompute
// generations or skip-list rows transitively.
var ErrHistoryRewrite = errors.New("store: commit history rewrite detected")

// Commit is a row of the commits table.
type Commit struct {
	ID         int64
	Hash       string
	ParentHash *string
	Generation *int64
}

// GetCommit looks up a commit by hash within a repository. It returns
// (nil, nil) when absent, matching spec.md's "zero means absent" sentinel
// convention translated into Go's nil-pointer idiom.
func (s *Store) GetCommit(ctx context.Context, repositoryID int64, hash string) (*Commit, error) {
	var c Commit
	c.Hash = hash
	err := s.withRetry(ctx, func() error {
		err := s.stmts.getCommit.QueryRowContext(ctx, repositoryID, hash).
			Scan(&c.ID, &c.ParentHash, &c.Generation)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get commit %s: %w", hash, err)
	}
	if c.ID == 0 {
		return nil, nil
	}
	return &c, nil
}

// InsertCommit records a newly observed commit. If the commit hash already
// exists for this repository, its existing row is returned unchanged unless
// its recorded parent_hash differs from parentHash, in which case
// ErrHistoryRewrite is returned and nothing is modified — the Commit Walker
// is expected to treat this as operation-fatal for the current reference.
//
// A root commit (parentHash == nil) gets generation 0 immediately, since
// it has no ancestry to wait on. Every other commit is inserted with
// generation left NULL; only the Generation Propagator (UpdateGeneration)
// assigns it, during the Change Enumerator's forward walk over the newly
// discovered range. Computing it eagerly here, from whatever the parent's
// generation happens to be at insert time, would let UpdateGeneration fire
// the skip-list trigger a second time for the same commit later and
// collide with the ancestor rows the first firing already inserted.
func (s *Store) InsertCommit(ctx context.Context, repositoryID int64, hash string, parentHash *string) (int64, error) {
	existing, err := s.GetCommit(ctx, repositoryID, hash)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		if !sameParent(existing.ParentHash, parentHash) {
			return 0, fmt.Errorf("%w: commit %s: stored parent %v, observed parent %v",
				ErrHistoryRewrite, hash, strPtr(existing.ParentHash), strPtr(parentHash))
		}
		return existing.ID, nil
	}

	var id int64
	err = s.withRetry(ctx, func() error {
		var generation *int64
		if parentHash == nil {
			zero := int64(0)
			generation = &zero
		}

		res, err := s.stmts.insertCommit.ExecContext(ctx, hash, parentHash, generation, repositoryID)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("insert commit %s: %w", hash, err)
	}
	return id, nil
}

// UpdateGeneration assigns commitID's generation from its already-resolved
// parent, firing the tgr_ancestor trigger that materialises skip-list rows.
// It is a no-op (affects zero rows) if the parent's generation is not yet
// known, matching the Generation Propagator's "wait for parent" behaviour.
func (s *Store) UpdateGeneration(ctx context.Context, commitID int64) error {
	return s.withRetry(ctx, func() error {
		_, err := s.stmts.updateGeneration.ExecContext(ctx, commitID)
		if err != nil {
			return fmt.Errorf("update generation for commit %d: %w", commitID, err)
		}
		return nil
	})
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strPtr(p *string) string {
	if p == nil {
		return "<root>"
	}
	return *p
}
