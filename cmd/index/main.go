// Command index is the repository indexer's entrypoint: it syncs a bare
// repository into a SQLite database, deletes a repository's registration,
// or answers one of the two supplemental query operations, following the
// flag surface of SPEC_FULL.md §6.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/urfave/cli/v3"

	"github.com/carlmjohnson/versioninfo"

	"go.bushi.dev/index/internal/config"
	"go.bushi.dev/index/log"
	"go.bushi.dev/index/query"
	"go.bushi.dev/index/store"
	"go.bushi.dev/index/sync"
)

func main() {
	cmd := &cli.Command{
		Name:    "index",
		Usage:   "index a repository's commit graph, file history and references into SQLite",
		Version: versioninfo.Short(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database",
				Aliases:  []string{"t"},
				Usage:    "path to the SQLite database",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "path",
				Aliases: []string{"p"},
				Usage:   "sync the bare repository at GIT_DIR",
			},
			&cli.StringFlag{
				Name:    "delete",
				Aliases: []string{"d"},
				Usage:   "delete the named repository's registration",
			},
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "name of the repository to query",
			},
			&cli.StringFlag{
				Name:    "ancestor",
				Aliases: []string{"a"},
				Usage:   "commit hash to resolve the n-th ancestor of (requires -q, -n)",
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "repository-relative path to list the change history of (requires -q)",
			},
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "ancestor distance, or file-log result limit (default 20)",
				Value:   20,
			},
		},
		Action: run,
	}

	logger := log.New("index")
	slog.SetDefault(logger)

	ctx := context.Background()
	ctx = log.IntoContext(ctx, logger)

	if err := cmd.Run(ctx, os.Args); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	dbPath := cmd.String("database")
	gitDir := cmd.String("path")
	deleteName := cmd.String("delete")
	queryName := cmd.String("query")
	ancestorHash := cmd.String("ancestor")
	filePath := cmd.String("file")
	count := cmd.Int("count")

	groups := 0
	for _, set := range []bool{gitDir != "", deleteName != "", queryName != ""} {
		if set {
			groups++
		}
	}
	if groups != 1 {
		return errors.New("exactly one of -p, -d, -q must be given")
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := store.Open(ctx, dbPath, store.WithRetry(cfg.RetryAttempts, cfg.RetryDelay))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	switch {
	case gitDir != "":
		resolvedDir, err := resolveScanPath(cfg.ScanRoot, gitDir)
		if err != nil {
			return err
		}
		engine := &sync.Engine{Store: st}
		return engine.SyncRepository(ctx, "", resolvedDir)

	case deleteName != "":
		engine := &sync.Engine{Store: st}
		return engine.DeleteRepository(ctx, deleteName)

	default:
		return runQuery(ctx, st, queryName, ancestorHash, filePath, count)
	}
}

// resolveScanPath jails gitDir inside scanRoot when one is configured,
// following the guard-style path-jailing the teacher applies to
// ssh-invoked, partially-trusted path arguments.
func resolveScanPath(scanRoot, gitDir string) (string, error) {
	if scanRoot == "" {
		return gitDir, nil
	}
	resolved, err := securejoin.SecureJoin(scanRoot, gitDir)
	if err != nil {
		return "", fmt.Errorf("resolve %s under scan root: %w", gitDir, err)
	}
	return resolved, nil
}

func runQuery(ctx context.Context, st *store.Store, name, ancestorHash, filePath string, count int64) error {
	if name == "" {
		return errors.New("-q requires a repository name")
	}
	if (ancestorHash == "") == (filePath == "") {
		return errors.New("-q requires exactly one of -a or -f")
	}

	repositoryID, err := st.GetRepositoryID(ctx, name)
	if err != nil {
		return fmt.Errorf("resolve repository %s: %w", name, err)
	}

	cache, err := query.NewCache(st)
	if err != nil {
		return err
	}
	defer cache.Close()

	if ancestorHash != "" {
		ancestor, found, err := cache.NthAncestor(ctx, repositoryID, ancestorHash, count)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("commit %s has fewer than %d ancestors", ancestorHash, count)
		}
		fmt.Println(ancestor)
		return nil
	}

	entries, err := cache.FileLog(ctx, repositoryID, filePath, count)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s %d\n", e.Hash, e.Generation)
	}
	return nil
}
