package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	return writeResult(os.Stdout, result)
}

func writeResult(w io.Writer, result CLIResult) error {
	if flagFormat == "text" {
		return writeResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

// writeResultText dispatches to the text formatter for the result type.
func writeResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case CLIIndexSummary:
		formatIndexText(w, v)
	case CLIModuleTree:
		formatModulesText(w, v)
	case []CLISymbol:
		formatSymbolsText(w, v)
	case CLIWatchUpdate:
		formatWatchText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

func formatIndexText(w io.Writer, s CLIIndexSummary) {
	fmt.Fprintf(w, "Snapshot %s\n", s.Snapshot)
	fmt.Fprintf(w, "  root:     %s\n", s.Root)
	fmt.Fprintf(w, "  database: %s\n", s.Database)
	fmt.Fprintf(w, "  files: %d, links: %d, symbols: %d\n", s.Files, s.Links, s.Symbols)
	if s.Pruned > 0 {
		fmt.Fprintf(w, "  pruned %d older snapshot(s)\n", s.Pruned)
	}
}

func formatModulesText(w io.Writer, t CLIModuleTree) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PARENT\tMODULE\tFILE")
	for _, l := range t.Links {
		child := l.Child
		if !l.Resolved {
			child = "(unresolved)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", l.Parent, l.Name, child)
	}
	tw.Flush()
	if len(t.Roots) > 0 {
		fmt.Fprintf(w, "\nRoots: %s\n", strings.Join(t.Roots, ", "))
	}
}

func formatSymbolsText(w io.Writer, syms []CLISymbol) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tFILE\tLINE\tCOL")
	for _, s := range syms {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", s.Name, s.Kind, s.File, s.Line, s.Col)
	}
	tw.Flush()
}

func formatWatchText(w io.Writer, u CLIWatchUpdate) {
	fmt.Fprintf(w, "rev %d: %d files, %d links (%d unresolved), %d symbols",
		u.Revision, u.Files, u.Links, u.Unresolved, u.Symbols)
	if len(u.Changed) > 0 {
		fmt.Fprintf(w, " changed=%s", strings.Join(u.Changed, ","))
	}
	if len(u.Removed) > 0 {
		fmt.Fprintf(w, " removed=%s", strings.Join(u.Removed, ","))
	}
	if u.Retries > 0 {
		fmt.Fprintf(w, " retries=%d", u.Retries)
	}
	fmt.Fprintln(w)
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
