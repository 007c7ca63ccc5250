package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"go.bushi.dev/index/store"
)

// chainCommits inserts a linear chain of n commits (each the first parent
// of the next) and propagates generations in parent-to-child order, the
// way the Change Enumerator does while walking --reverse git log output —
// the skip-list trigger depends on a parent's ancestors rows already
// existing when its child's generation is assigned.
func chainCommits(t *testing.T, st *store.Store, repoID int64, n int) []string {
	t.Helper()
	ctx := context.Background()

	hashes := make([]string, n)
	for i := 0; i < n; i++ {
		hashes[i] = fmt.Sprintf("%040x", i+1)
	}

	var parent *string
	for i, hash := range hashes {
		id, err := st.InsertCommit(ctx, repoID, hash, parent)
		require.NoError(t, err)
		if i > 0 {
			require.NoError(t, st.UpdateGeneration(ctx, id))
		}
		h := hash
		parent = &h
	}
	return hashes
}

func TestNthAncestorWalksSkipList(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	repoID, err := st.UpsertRepository(ctx, "example", "/srv/git/example.git", nil)
	require.NoError(t, err)

	hashes := chainCommits(t, st, repoID, 10)
	head := hashes[len(hashes)-1]

	ancestor, found, err := st.NthAncestorHash(ctx, repoID, head, 3)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, hashes[len(hashes)-1-3], ancestor)

	ancestor, found, err = st.NthAncestorHash(ctx, repoID, head, 9)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, hashes[0], ancestor)

	_, found, err = st.NthAncestorHash(ctx, repoID, head, 10)
	require.NoError(t, err)
	require.False(t, found)
}

func TestFileLogOrdersNewestFirst(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	repoID, err := st.UpsertRepository(ctx, "example", "/srv/git/example.git", nil)
	require.NoError(t, err)

	hashes := chainCommits(t, st, repoID, 3)
	fileID, err := st.GetOrCreateFileID(ctx, "README.md")
	require.NoError(t, err)

	for _, hash := range hashes {
		commit, err := st.GetCommit(ctx, repoID, hash)
		require.NoError(t, err)
		require.NoError(t, st.InsertChange(ctx, commit.ID, fileID))
	}

	entries, err := st.FileLog(ctx, repoID, "README.md", 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, hashes[2], entries[0].Hash)
	require.Equal(t, hashes[0], entries[2].Hash)
}
