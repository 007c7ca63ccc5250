package namefmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.bushi.dev/index/store"
)

func TestNameFromPath(t *testing.T) {
	cases := []struct {
		path string
		want string
		ok   bool
	}{
		{"/path/to/repo.git", "repo", true},
		{"/path/to/repo/.git", "repo", true},
		{"/path/to/repo", "repo", true},
		{"/path/to/user.repo.git", "user.repo", true},
		{"/.git", "", false},
	}

	for _, c := range cases {
		got, ok := NameFromPath(c.path)
		assert.Equal(t, c.ok, ok, "path=%s", c.path)
		if c.ok {
			assert.Equal(t, c.want, got, "path=%s", c.path)
		}
	}
}

func TestShowName(t *testing.T) {
	name, rt, ok := ShowName("refs/heads/main")
	require.True(t, ok)
	assert.Equal(t, "main", name)
	assert.Equal(t, store.RefTypeBranch, rt)

	name, rt, ok = ShowName("refs/heads/feature/foo")
	require.True(t, ok)
	assert.Equal(t, "feature:foo", name)
	assert.Equal(t, store.RefTypeBranch, rt)

	name, rt, ok = ShowName("refs/tags/v1.0.0")
	require.True(t, ok)
	assert.Equal(t, "v1.0.0", name)
	assert.Equal(t, store.RefTypeTag, rt)

	_, _, ok = ShowName("refs/remotes/origin/main")
	assert.False(t, ok)

	_, _, ok = ShowName("HEAD")
	assert.False(t, ok)
}
