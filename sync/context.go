// Package sync orchestrates a single repository's sync pass: the
// Reference Reconciler's mark/scan/sweep loop, the Commit Walker and
// Change Enumerator it drives per dirty reference, and administrative
// repository deletion. It replaces the original indexer's process-wide
// globals (connection, repository_id, repository_git) with an explicit
// context value threaded through every operation, per spec.md §9's design
// note.
package sync

import (
	"log/slog"

	"go.bushi.dev/index/gitrepo"
	"go.bushi.dev/index/store"
)

// Context carries everything one sync pass needs: the open database, the
// open repository, the resolved repository_id, and a logger already
// tagged with the repository name.
type Context struct {
	Store        *store.Store
	Repo         *gitrepo.Repo
	RepositoryID int64
	Log          *slog.Logger
}
