package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"go.bushi.dev/index/store"
)

func TestInsertCommitRejectsHistoryRewrite(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	repoID, err := st.UpsertRepository(ctx, "example", "/srv/git/example.git", nil)
	require.NoError(t, err)

	root := "1111111111111111111111111111111111111111"
	child := "2222222222222222222222222222222222222222"

	_, err = st.InsertCommit(ctx, repoID, root, nil)
	require.NoError(t, err)

	_, err = st.InsertCommit(ctx, repoID, child, &root)
	require.NoError(t, err)

	// observing the same commit hash again with a different parent is a
	// rewritten history: reject rather than silently overwrite.
	otherRoot := "3333333333333333333333333333333333333333"
	_, err = st.InsertCommit(ctx, repoID, child, &otherRoot)
	require.Error(t, err)
	require.True(t, errors.Is(err, store.ErrHistoryRewrite))

	// re-observing it with the same parent is fine.
	_, err = st.InsertCommit(ctx, repoID, child, &root)
	require.NoError(t, err)
}

func TestGenerationPropagatesFromParent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	repoID, err := st.UpsertRepository(ctx, "example", "/srv/git/example.git", nil)
	require.NoError(t, err)

	root := "4444444444444444444444444444444444444444"
	child := "5555555555555555555555555555555555555555"

	rootID, err := st.InsertCommit(ctx, repoID, root, nil)
	require.NoError(t, err)
	childID, err := st.InsertCommit(ctx, repoID, child, &root)
	require.NoError(t, err)

	// the root commit is inserted with generation 0 directly (no parent);
	// the child needs an explicit propagation step once its parent's
	// generation is known, mirroring the Generation Propagator.
	require.NoError(t, st.UpdateGeneration(ctx, childID))

	childRow, err := st.GetCommit(ctx, repoID, child)
	require.NoError(t, err)
	require.NotNil(t, childRow.Generation)
	require.Equal(t, int64(1), *childRow.Generation)

	rootRow, err := st.GetCommit(ctx, repoID, root)
	require.NoError(t, err)
	require.NotNil(t, rootRow)
	require.Equal(t, rootID, rootRow.ID)
	require.NotNil(t, rootRow.Generation)
	require.Equal(t, int64(0), *rootRow.Generation)
}
