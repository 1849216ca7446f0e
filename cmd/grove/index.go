package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/grove/internal/store"
)

var (
	flagForce bool
	flagKeep  int
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Build a snapshot of a crate and persist it",
	Long:  "Parses every source file in parallel, links the module tree, indexes symbols and writes the snapshot to the SQLite database.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete the database before indexing")
	indexCmd.Flags().IntVar(&flagKeep, "keep", 3, "number of snapshots of this directory to keep")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	dbPath := resolveDBPath(findRepoRoot(targetDir))

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Cleared database: %s\n", dbPath)
	}

	ctx := context.Background()
	buildStart := time.Now()
	proj, root, err := buildReadonly(ctx, targetDir)
	if err != nil {
		return outputError("index", err)
	}
	buildDuration := time.Since(buildStart)

	tree, _ := root.ModuleTree()
	indexes, _ := root.Symbols(nil)

	batch := store.NewSnapshotBatch(targetDir)
	for _, f := range proj.files {
		batch.AddFile(f.ID, proj.paths[f.ID], f.Text, root.Lines(f.ID))
	}
	batch.AddModuleTree(tree)
	if err := batch.AddSymbols(indexes...); err != nil {
		return outputError("index", err)
	}

	s, err := store.NewStore(dbPath)
	if err != nil {
		return outputError("index", fmt.Errorf("opening store: %w", err))
	}
	defer s.Close()
	if err := s.Migrate(); err != nil {
		return outputError("index", err)
	}

	writeStart := time.Now()
	snap, err := s.CommitSnapshot(batch)
	if err != nil {
		return outputError("index", err)
	}
	pruned, err := s.Prune(targetDir, flagKeep)
	if err != nil {
		return outputError("index", err)
	}
	writeDuration := time.Since(writeStart)

	fmt.Fprintf(os.Stderr, "Indexed %s in %s (build: %s, write: %s)\n",
		targetDir,
		time.Since(start).Round(time.Millisecond),
		buildDuration.Round(time.Millisecond),
		writeDuration.Round(time.Millisecond),
	)

	return outputResult(CLIResult{
		Command: "index",
		Results: CLIIndexSummary{
			Snapshot: snap.ID,
			Root:     targetDir,
			Database: dbPath,
			Files:    snap.FileCount,
			Links:    len(batch.Links),
			Symbols:  snap.SymbolCount,
			Pruned:   pruned,
		},
	})
}
