package gitrepo

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// CommitInserter is the commit lookup/insert surface the Commit Walker
// needs, named as an interface so this package doesn't import store
// directly (package sync adapts *store.Store to it) and so tests can
// substitute an in-memory fake.
type CommitInserter interface {
	GetCommit(ctx context.Context, repositoryID int64, hash string) (id int64, found bool, err error)
	InsertCommit(ctx context.Context, repositoryID int64, hash string, parentHash *string) error
}

// WalkResult describes the still-unenumerated range discovered by Walk: the
// newest commit reached (the reference's target) and the already-recorded
// commit the walk stopped at (nil if the walk ran all the way back to the
// repository root).
type WalkResult struct {
	NewHash string
	OldHash *string
	// Stopped is true when the target commit itself was already recorded,
	// so nothing was inserted and there is no range to enumerate. A walk
	// that inserts commits and then reaches a recorded parent leaves it
	// false and sets OldHash instead.
	Stopped bool
}

// Walk walks the first-parent chain from target toward the root,
// inserting every commit not yet recorded (spec.md §4.2's Commit Walker),
// stopping as soon as it reaches a commit already present in the store —
// everything below that point has necessarily already been walked and
// enumerated by a previous sync pass.
//
// This mirrors bushi-index.c's sync_commit_list: it uses the VCS object
// library directly (go-git, in place of libgit2) for this pass, not a
// subprocess — only the bulk change enumeration that follows a discovered
// range spawns `git log`.
func Walk(ctx context.Context, store CommitInserter, repositoryID int64, target *object.Commit) (WalkResult, error) {
	newHash := target.Hash.String()

	if _, found, err := store.GetCommit(ctx, repositoryID, newHash); err != nil {
		return WalkResult{}, err
	} else if found {
		return WalkResult{NewHash: newHash, Stopped: true}, nil
	}

	walker := target
	for {
		hash := walker.Hash.String()

		var parent *object.Commit
		var parentHashPtr *string
		if walker.NumParents() > 0 {
			p, err := walker.Parent(0)
			if err != nil {
				return WalkResult{}, fmt.Errorf("first parent of %s: %w", hash, err)
			}
			parent = p
			ph := p.Hash.String()
			parentHashPtr = &ph
		}

		if err := store.InsertCommit(ctx, repositoryID, hash, parentHashPtr); err != nil {
			return WalkResult{}, fmt.Errorf("insert commit %s: %w", hash, err)
		}

		if parent == nil {
			return WalkResult{NewHash: newHash, OldHash: nil}, nil
		}

		parentHash := parent.Hash.String()
		if _, found, err := store.GetCommit(ctx, repositoryID, parentHash); err != nil {
			return WalkResult{}, err
		} else if found {
			return WalkResult{NewHash: newHash, OldHash: &parentHash}, nil
		}

		walker = parent
	}
}
