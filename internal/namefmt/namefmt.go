// Package namefmt ports the repository-name and reference-name derivation
// rules from the original indexer one to one: the suffix-stripping
// directory-basename extraction used to default a repository's name from
// its scan path, and the refs/heads|refs/tags prefix-strip used to derive
// a reference's human-facing show name.
package namefmt

import (
	"strings"

	"go.bushi.dev/index/store"
)

var pathSuffixes = []string{"/.git", ".git"}

// NameFromPath derives a repository name from a bare or non-bare scan
// path, stripping a trailing "/.git" or ".git" suffix if present and then
// taking the final path component. Returns ("", false) if the input is
// just "/" or reduces to an empty component (e.g. "/.git").
func NameFromPath(path string) (string, bool) {
	if path == "" || path[0] != '/' {
		return "", false
	}

	end := len(path)
	for _, sfx := range pathSuffixes {
		if strings.HasSuffix(path, sfx) {
			end -= len(sfx)
			break
		}
	}

	trimmed := path[:end]
	start := strings.LastIndexByte(trimmed, '/')
	name := trimmed[start+1:]
	if name == "" {
		return "", false
	}
	return name, true
}

// ShowName derives a reference's display name and type from its full
// name (e.g. "refs/heads/main" -> ("main", RefTypeBranch)), replacing any
// remaining "/" with ":" the way bushi-index.c's db_upsert_ref does for
// hierarchical branch names like "feature/foo" -> "feature:foo". Returns
// ok=false for any reference outside refs/heads/ and refs/tags/, which the
// Reference Reconciler is expected to silently skip per spec.md's Non-goals.
func ShowName(fullName string) (showName string, refType store.RefType, ok bool) {
	const headsPrefix = "refs/heads/"
	const tagsPrefix = "refs/tags/"

	var name string
	var rt store.RefType
	switch {
	case strings.HasPrefix(fullName, headsPrefix):
		name = fullName[len(headsPrefix):]
		rt = store.RefTypeBranch
	case strings.HasPrefix(fullName, tagsPrefix):
		name = fullName[len(tagsPrefix):]
		rt = store.RefTypeTag
	default:
		return "", 0, false
	}

	name = strings.ReplaceAll(name, "/", ":")
	return name, rt, true
}
