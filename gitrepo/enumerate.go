package gitrepo

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// processReader wraps the stdout pipe of a spawned git process, following
// the teacher's lifecycle in knotserver/git/last_commit.go: Close closes
// the pipe handle and then waits for the child so it never lingers as a
// zombie.
type processReader struct {
	io.Reader
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

func (pr *processReader) Close() error {
	if err := pr.stdout.Close(); err != nil {
		_ = pr.cmd.Wait()
		return err
	}
	return pr.cmd.Wait()
}

// streamingGitLog spawns `git log` in the repository's directory and
// returns a ReadCloser over its stdout, mirroring streamingGitLog in
// knotserver/git/last_commit.go (pipe, Start, defer Wait-on-Close) rather
// than buffering the whole command output in memory — a repository with a
// large first sync can produce gigabytes of "<hash>\n<path>\n<path>...".
func (r *Repo) streamingGitLog(ctx context.Context, extraArgs ...string) (io.ReadCloser, error) {
	args := append([]string{"log"}, extraArgs...)

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.path
	cmd.Env = append(os.Environ(), "GIT_DIR="+r.path)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start git log: %w", err)
	}

	return &processReader{Reader: stdout, cmd: cmd, stdout: stdout}, nil
}

// CommitChanges is one parsed transaction's worth of work: a commit hash
// and the repository-relative paths its diff against its first parent
// touched.
type CommitChanges struct {
	Hash  string
	Paths []string
}

// EnumerateChanges spawns
//
//	git log --pretty=format:%n%H --name-only --first-parent --reverse <range>
//
// and streams it through the BETWEEN/IN_COMMIT state machine
// bushi-index.c's sync_commit_list implements with a raw FILE* line
// reader: a blank line separates commits, the first non-blank line of a
// block is the commit hash, and every subsequent line until the next
// blank is a changed path. fn is invoked once per parsed commit, in
// order; it returning an error stops enumeration immediately.
//
// commitRange follows git's own `old..new` / `new` range syntax: pass
// oldHash == "" for the first sync of a reference (no prior history to
// exclude).
func (r *Repo) EnumerateChanges(ctx context.Context, oldHash, newHash string, fn func(CommitChanges) error) error {
	commitRange := newHash
	if oldHash != "" {
		commitRange = oldHash + ".." + newHash
	}

	out, err := r.streamingGitLog(ctx,
		"--pretty=format:%n%H",
		"--name-only",
		"--first-parent",
		"--reverse",
		commitRange,
	)
	if err != nil {
		return err
	}
	defer out.Close()

	return parseGitLog(out, fn)
}

// parseGitLog implements the BETWEEN/IN_COMMIT state machine separately
// from the subprocess plumbing above so it can be exercised by tests
// without spawning git: a blank line separates commits, the first
// non-blank line of a block is the commit hash, and every subsequent line
// until the next blank is a changed path.
func parseGitLog(r io.Reader, fn func(CommitChanges) error) error {
	const (
		stateBetween = iota
		stateInCommit
	)

	state := stateBetween
	var current CommitChanges

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	flush := func() error {
		if current.Hash == "" {
			return nil
		}
		err := fn(current)
		current = CommitChanges{}
		return err
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			if err := flush(); err != nil {
				return err
			}
			state = stateBetween
			continue
		}

		switch state {
		case stateBetween:
			current.Hash = line
			state = stateInCommit
		case stateInCommit:
			current.Paths = append(current.Paths, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan git log output: %w", err)
	}
	// the final commit block has no trailing blank line to flush it.
	return flush()
}
