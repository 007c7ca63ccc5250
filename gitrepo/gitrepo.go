// Package gitrepo wraps go-git for the handful of operations the indexer
// needs — opening a bare repository, enumerating branch/tag references,
// peeling a reference to its target commit — and wraps os/exec for the
// bulk per-commit change enumeration pass that go-git's object model is too
// slow to do at scale (spec.md §4.5 calls this out explicitly).
package gitrepo

import (
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// RefKind mirrors store.RefType without importing the store package here,
// keeping gitrepo usable independent of any particular storage backend.
type RefKind int

const (
	RefKindBranch RefKind = iota + 1
	RefKindTag
)

// Ref is a single branch or tag reference peeled to its target commit.
// Commit is nil when the reference does not peel to a commit.
type Ref struct {
	FullName string
	Kind     RefKind
	Commit   *object.Commit
}

// Repo wraps an opened bare (or non-bare) repository.
type Repo struct {
	path string
	repo *git.Repository
}

// Open opens the repository at path. Unlike the teacher's git.Open, this
// never resolves a specific ref up front — the indexer's reference walk
// resolves each ref it cares about individually.
func Open(path string) (*Repo, error) {
	r, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Repo{path: path, repo: r}, nil
}

// Path returns the filesystem path the repository was opened from, for use
// as cmd.Dir by the change enumerator.
func (r *Repo) Path() string {
	return r.path
}

// CommitObject resolves a commit by hash.
func (r *Repo) CommitObject(hash string) (*object.Commit, error) {
	return r.repo.CommitObject(plumbing.NewHash(hash))
}

// Refs enumerates every branch and tag reference, peeling each to its
// target commit. References that don't resolve to a commit (e.g. a tag
// object pointing at a tree, or a dangling ref) are returned with a nil
// Commit, so the caller can log and skip them — this is a record-level
// failure, not fatal.
func (r *Repo) Refs() ([]Ref, error) {
	var refs []Ref

	branches, err := r.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("branches: %w", err)
	}
	if err := branches.ForEach(func(ref *plumbing.Reference) error {
		c, err := r.peelToCommit(ref)
		if err != nil {
			c = nil // record-level, caller decides how to log
		}
		refs = append(refs, Ref{FullName: string(ref.Name()), Kind: RefKindBranch, Commit: c})
		return nil
	}); err != nil {
		return nil, fmt.Errorf("walk branches: %w", err)
	}

	tags, err := r.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("tags: %w", err)
	}
	if err := tags.ForEach(func(ref *plumbing.Reference) error {
		c, err := r.peelToCommit(ref)
		if err != nil {
			c = nil
		}
		refs = append(refs, Ref{FullName: string(ref.Name()), Kind: RefKindTag, Commit: c})
		return nil
	}); err != nil {
		return nil, fmt.Errorf("walk tags: %w", err)
	}

	return refs, nil
}

// peelToCommit resolves a reference to the commit it ultimately points at,
// dereferencing one level of annotated tag object if necessary — the Go
// equivalent of libgit2's git_reference_peel(..., GIT_OBJECT_COMMIT).
func (r *Repo) peelToCommit(ref *plumbing.Reference) (*object.Commit, error) {
	if c, err := r.repo.CommitObject(ref.Hash()); err == nil {
		return c, nil
	}

	tag, err := r.repo.TagObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("peel %s: %w", ref.Name(), err)
	}
	return tag.Commit()
}

// RefTime computes the reconciler's ordering timestamp for a commit: the
// committer time expressed as an absolute Unix second count adjusted by
// the commit's own recorded timezone offset, replicating the original
// indexer's git_commit_time() + git_commit_time_offset()*60 exactly rather
// than using the committer time already normalised to the local machine's
// zone that Go's time.Time would otherwise produce.
func RefTime(c *object.Commit) int64 {
	_, offsetSeconds := c.Committer.When.Zone()
	return c.Committer.When.Unix() + int64(offsetSeconds)
}
