package gitrepo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseGitLogSplitsOnBlankLines(t *testing.T) {
	// git log --pretty=format:%n%H --name-only --first-parent --reverse
	// emits a leading blank line before each hash; the final block has no
	// trailing blank line.
	input := "\n" + strings.Join([]string{
		"1111111111111111111111111111111111111111",
		"a.txt",
		"b.txt",
		"",
		"2222222222222222222222222222222222222222",
		"b.txt",
	}, "\n")

	var got []CommitChanges
	err := parseGitLog(strings.NewReader(input), func(cc CommitChanges) error {
		got = append(got, cc)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, got, 2)
	require.Equal(t, "1111111111111111111111111111111111111111", got[0].Hash)
	require.Equal(t, []string{"a.txt", "b.txt"}, got[0].Paths)
	require.Equal(t, "2222222222222222222222222222222222222222", got[1].Hash)
	require.Equal(t, []string{"b.txt"}, got[1].Paths)
}

func TestParseGitLogStopsOnCallbackError(t *testing.T) {
	input := "\nhash1\nfile1\n\nhash2\nfile2\n"

	sentinel := testErr("stop")
	calls := 0
	err := parseGitLog(strings.NewReader(input), func(cc CommitChanges) error {
		calls++
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 1, calls)
}

type testErr string

func (e testErr) Error() string { return string(e) }
