package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"go.bushi.dev/index/gitrepo"
	"go.bushi.dev/index/internal/namefmt"
	"go.bushi.dev/index/log"
	"go.bushi.dev/index/store"
)

// Engine runs sync passes against a single database.
type Engine struct {
	Store *store.Store
}

// commitInserter adapts *store.Store to gitrepo.CommitInserter, since the
// walker only ever operates within one already-resolved repository.
type commitInserter struct {
	store        *store.Store
	repositoryID int64
}

func (c commitInserter) GetCommit(ctx context.Context, repositoryID int64, hash string) (int64, bool, error) {
	commit, err := c.store.GetCommit(ctx, repositoryID, hash)
	if err != nil {
		return 0, false, err
	}
	if commit == nil {
		return 0, false, nil
	}
	return commit.ID, true, nil
}

func (c commitInserter) InsertCommit(ctx context.Context, repositoryID int64, hash string, parentHash *string) error {
	_, err := c.store.InsertCommit(ctx, repositoryID, hash, parentHash)
	return err
}

// SyncRepository runs one full sync pass for a repository at path,
// registering it under name if not already known, and reconciling every
// branch and tag reference against the commit graph.
//
// Name defaults via namefmt.NameFromPath when name is empty, matching the
// original indexer's behaviour of deriving a name from the scan path when
// the caller doesn't supply one explicitly.
func (e *Engine) SyncRepository(ctx context.Context, name, path string) error {
	if name == "" {
		derived, ok := namefmt.NameFromPath(path)
		if !ok {
			return fmt.Errorf("sync %s: cannot derive repository name from path", path)
		}
		name = derived
	}

	logger := log.SubLogger(log.FromContext(ctx), "sync").With("repository", name, "path", path)

	repo, err := gitrepo.Open(path)
	if err != nil {
		return fmt.Errorf("open repository %s: %w", path, err)
	}

	repositoryID, err := e.Store.UpsertRepository(ctx, name, path, nil)
	if err != nil {
		return fmt.Errorf("register repository %s: %w", name, err)
	}

	sc := &Context{Store: e.Store, Repo: repo, RepositoryID: repositoryID, Log: logger}

	if err := sc.Store.MarkAllDirty(ctx, repositoryID); err != nil {
		return fmt.Errorf("mark refs dirty: %w", err)
	}

	refs, err := repo.Refs()
	if err != nil {
		return fmt.Errorf("enumerate refs: %w", err)
	}

	var synced, skipped, failed int
	for _, ref := range refs {
		switch err := sc.reconcileRef(ctx, ref); {
		case err == nil:
			synced++
		case errors.Is(err, errRefUnchanged):
			skipped++
		default:
			failed++
			logger.Error("reference reconciliation failed", "ref", ref.FullName, "error", err)
		}
	}

	swept, err := sc.Store.SweepDirty(ctx, repositoryID)
	if err != nil {
		return fmt.Errorf("sweep stale refs: %w", err)
	}

	logger.Info("sync complete",
		"refs", humanize.Comma(int64(len(refs))),
		"synced", humanize.Comma(int64(synced)),
		"unchanged", humanize.Comma(int64(skipped)),
		"failed", humanize.Comma(int64(failed)),
		"removed", humanize.Comma(swept),
	)
	return nil
}

// DeleteRepository drops the repositories row for name. Matching
// bushi-index.c's db_delete_repository, this does not cascade: commits,
// files, changes and refs rows for this repository are left in place.
func (e *Engine) DeleteRepository(ctx context.Context, name string) error {
	return e.Store.DeleteRepository(ctx, name)
}

// errRefUnchanged signals reconcileRef's fast path: the reference's target
// hasn't moved since the last sync, nothing to do beyond clearing its
// dirty bit.
var errRefUnchanged = errors.New("sync: reference unchanged")

// reconcileRef is the Reference Reconciler's per-reference body: skip
// refs whose target hasn't moved, otherwise walk and enumerate the new
// commits before recording the reference's new target. Mirrors
// bushi-index.c's sync_reference.
func (sc *Context) reconcileRef(ctx context.Context, ref gitrepo.Ref) error {
	if ref.Commit == nil {
		return fmt.Errorf("reference %s does not peel to a commit", ref.FullName)
	}
	newHash := ref.Commit.Hash.String()

	existingID, found, err := sc.Store.GetRefCommit(ctx, sc.RepositoryID, ref.FullName)
	if err != nil {
		return err
	}
	if found {
		if newCommit, err := sc.Store.GetCommit(ctx, sc.RepositoryID, newHash); err == nil &&
			newCommit != nil && newCommit.ID == existingID {
			if err := sc.Store.UpdateRefClean(ctx, sc.RepositoryID, ref.FullName); err != nil {
				return err
			}
			return errRefUnchanged
		}
	}

	result, err := gitrepo.Walk(ctx, commitInserter{store: sc.Store, repositoryID: sc.RepositoryID}, sc.RepositoryID, ref.Commit)
	if err != nil {
		if errors.Is(err, store.ErrHistoryRewrite) {
			return fmt.Errorf("%s: %w (ref left dirty, will be swept)", ref.FullName, err)
		}
		return fmt.Errorf("walk commits for %s: %w", ref.FullName, err)
	}

	if !result.Stopped {
		oldHash := ""
		if result.OldHash != nil {
			oldHash = *result.OldHash
		}
		if err := sc.enumerateChanges(ctx, oldHash, result.NewHash); err != nil {
			return fmt.Errorf("enumerate changes for %s: %w", ref.FullName, err)
		}
	}

	showName, refType, ok := namefmt.ShowName(ref.FullName)
	if !ok {
		return nil
	}

	newCommit, err := sc.Store.GetCommit(ctx, sc.RepositoryID, newHash)
	if err != nil {
		return err
	}
	if newCommit == nil {
		return fmt.Errorf("commit %s not found after walk", newHash)
	}

	return sc.Store.UpsertRef(ctx, sc.RepositoryID, store.Reference{
		FullName: ref.FullName,
		ShowName: showName,
		CommitID: newCommit.ID,
		RefTime:  gitrepo.RefTime(ref.Commit),
		RefType:  refType,
	})
}

// enumerateChanges drives the Change Enumerator over a discovered commit
// range, one SQL transaction per commit per spec.md §4.5: each block
// resolves the already-inserted commit's id, assigns its generation, and
// interns/records every path it touched.
func (sc *Context) enumerateChanges(ctx context.Context, oldHash, newHash string) error {
	return sc.Repo.EnumerateChanges(ctx, oldHash, newHash, func(cc gitrepo.CommitChanges) error {
		return sc.Store.WithTx(ctx, func(tx *sql.Tx) error {
			commitID, found, err := sc.Store.GetCommitIDTx(ctx, tx, sc.RepositoryID, cc.Hash)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("commit %s missing from store during enumeration", cc.Hash)
			}

			if err := sc.Store.UpdateGenerationTx(ctx, tx, commitID); err != nil {
				return err
			}

			for _, path := range cc.Paths {
				fileID, err := sc.Store.GetOrCreateFileIDTx(ctx, tx, path)
				if err != nil {
					return err
				}
				if err := sc.Store.InsertChangeTx(ctx, tx, commitID, fileID); err != nil {
					return err
				}
			}
			return nil
		})
	})
}
