package gitrepo

import (
	"context"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"
)

// fakeStore is a minimal in-memory CommitInserter for exercising Walk
// without a real database.
type fakeStore struct {
	commits map[string]*string // hash -> parent hash
}

func newFakeStore() *fakeStore {
	return &fakeStore{commits: make(map[string]*string)}
}

func (f *fakeStore) GetCommit(_ context.Context, _ int64, hash string) (int64, bool, error) {
	if _, ok := f.commits[hash]; !ok {
		return 0, false, nil
	}
	return 1, true, nil
}

func (f *fakeStore) InsertCommit(_ context.Context, _ int64, hash string, parentHash *string) error {
	f.commits[hash] = parentHash
	return nil
}

func TestWalkFirstParentChain(t *testing.T) {
	fsRoot := memfs.New()
	storage := memory.NewStorage()
	repo, err := git.Init(storage, fsRoot)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	write := func(name, contents string) {
		f, err := fsRoot.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(contents))
		require.NoError(t, err)
		require.NoError(t, f.Close())
		_, err = wt.Add(name)
		require.NoError(t, err)
	}

	sig := &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Unix(1700000000, 0)}

	write("a.txt", "one")
	h1, err := wt.Commit("first", &git.CommitOptions{Author: sig})
	require.NoError(t, err)

	write("a.txt", "two")
	h2, err := wt.Commit("second", &git.CommitOptions{Author: sig})
	require.NoError(t, err)

	write("a.txt", "three")
	h3, err := wt.Commit("third", &git.CommitOptions{Author: sig})
	require.NoError(t, err)

	head, err := repo.CommitObject(h3)
	require.NoError(t, err)

	fs := newFakeStore()
	result, err := Walk(context.Background(), fs, 1, head)
	require.NoError(t, err)
	require.Equal(t, h3.String(), result.NewHash)
	require.Nil(t, result.OldHash)
	require.False(t, result.Stopped)
	require.Len(t, fs.commits, 3)
	require.Contains(t, fs.commits, h1.String())
	require.Contains(t, fs.commits, h2.String())
	require.Contains(t, fs.commits, h3.String())

	// a second walk from the same tip should stop immediately: the commit
	// is already known.
	result2, err := Walk(context.Background(), fs, 1, head)
	require.NoError(t, err)
	require.True(t, result2.Stopped)
}
