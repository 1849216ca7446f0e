package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/grove/internal/config"
	"github.com/jward/grove/internal/logging"
)

var (
	flagConfig   string
	flagDB       string
	flagFormat   string
	flagLogLevel string
	flagWorkers  int
	flagScript   string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// cfg and logger are populated by the root command's PersistentPreRunE.
var (
	cfg    config.Config
	logger *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "grove",
	Short:             "Incremental source roots for Rust crates",
	Long:              "Grove parses Rust sources with tree-sitter, links their module tree and indexes their symbols, either as a one-shot snapshot or live while files change.",
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .grove.yaml in the repo root)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .grove/index.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "parse workers (default: number of CPUs)")
	rootCmd.PersistentFlags().StringVar(&flagScript, "symbols-script", "", "Risor script used to extract symbols instead of the native extractor")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(modulesCmd)
	rootCmd.AddCommand(symbolsCmd)
	rootCmd.AddCommand(watchCmd)
}

// setup loads the config file, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	if err := validateFormat(flagFormat); err != nil {
		return err
	}

	var loaded config.Config
	if flagConfig != "" {
		c, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		loaded = c
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting cwd: %w", err)
		}
		c, err := config.LoadDir(findRepoRoot(cwd))
		if err != nil {
			return err
		}
		loaded = c
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		loaded.Workers = flagWorkers
	}
	if flags.Changed("log-level") {
		loaded.LogLevel = flagLogLevel
	}
	if flags.Changed("symbols-script") {
		loaded.ScriptPath = flagScript
	}
	if flags.Changed("db") {
		loaded.DB = flagDB
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	l, err := logging.New(logging.Config{Level: loaded.LogLevel, Format: loaded.LogFormat})
	if err != nil {
		return err
	}
	cfg, logger = loaded, l
	return nil
}

// resolveTargetDir returns the absolute path of the directory to operate on.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the configured database path, relative paths being
// anchored at repoRoot.
func resolveDBPath(repoRoot string) string {
	if filepath.IsAbs(cfg.DB) {
		return cfg.DB
	}
	return filepath.Join(repoRoot, cfg.DB)
}
