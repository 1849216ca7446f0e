package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/grove/internal/store"
)

var (
	flagPrefix bool
	flagDir    string
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols <name>",
	Short: "Look up symbols in the latest snapshot",
	Long:  "Finds symbols by exact name, or by name prefix with --prefix, in the newest snapshot written by 'grove index'. Lines and columns are 0-based.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSymbols,
}

func init() {
	symbolsCmd.Flags().BoolVar(&flagPrefix, "prefix", false, "match names starting with <name>")
	symbolsCmd.Flags().StringVar(&flagDir, "dir", ".", "indexed directory")
}

func runSymbols(cmd *cobra.Command, args []string) error {
	targetDir, err := resolveTargetDir([]string{flagDir})
	if err != nil {
		return err
	}
	s, err := openStore(targetDir)
	if err != nil {
		return outputError("symbols", err)
	}
	defer s.Close()

	snap, err := s.LatestSnapshot(targetDir)
	if err != nil {
		return outputError("symbols", err)
	}
	if snap == nil {
		return outputError("symbols", fmt.Errorf("no snapshot for %s (run 'grove index' first)", targetDir))
	}

	var syms []*store.Symbol
	if flagPrefix {
		syms, err = s.SymbolsWithPrefix(snap.ID, args[0])
	} else {
		syms, err = s.SymbolsByName(snap.ID, args[0])
	}
	if err != nil {
		return outputError("symbols", err)
	}

	out := make([]CLISymbol, 0, len(syms))
	for _, sym := range syms {
		out = append(out, CLISymbol{Name: sym.Name, Kind: sym.Kind, File: sym.Path, Line: sym.Line, Col: sym.Col})
	}
	return outputResult(CLIResult{Command: "symbols", Results: out})
}

// openStore opens the database serving targetDir.
func openStore(targetDir string) (*store.Store, error) {
	dbPath := resolveDBPath(findRepoRoot(targetDir))
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'grove index' first)", dbPath)
	}
	return store.NewStore(dbPath)
}
