package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"go.bushi.dev/index/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestUpsertRepositoryIsIdempotent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	id1, err := st.UpsertRepository(ctx, "example", "/srv/git/example.git", nil)
	require.NoError(t, err)

	id2, err := st.UpsertRepository(ctx, "example", "/srv/git/example.git", nil)
	require.NoError(t, err)

	require.Equal(t, id1, id2)
}

func TestDeleteRepositoryDoesNotCascade(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	repoID, err := st.UpsertRepository(ctx, "example", "/srv/git/example.git", nil)
	require.NoError(t, err)

	_, err = st.InsertCommit(ctx, repoID, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", nil)
	require.NoError(t, err)

	require.NoError(t, st.DeleteRepository(ctx, "example"))

	// the commit row survives deletion, matching the original schema's
	// lack of foreign-key cascades.
	commit, err := st.GetCommit(ctx, repoID, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	require.NoError(t, err)
	require.NotNil(t, commit)
}

func TestGetOrCreateFileIDInterns(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	id1, err := st.GetOrCreateFileID(ctx, "src/main.go")
	require.NoError(t, err)

	id2, err := st.GetOrCreateFileID(ctx, "src/main.go")
	require.NoError(t, err)

	require.Equal(t, id1, id2)
}
