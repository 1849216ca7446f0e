package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIIndexSummary reports one persisted snapshot.
type CLIIndexSummary struct {
	Snapshot string `json:"snapshot"`
	Root     string `json:"root"`
	Database string `json:"database"`
	Files    int    `json:"files"`
	Links    int    `json:"links"`
	Symbols  int    `json:"symbols"`
	Pruned   int    `json:"pruned"`
}

// CLIFile is a JSON-friendly source file.
type CLIFile struct {
	ID   uint32 `json:"id"`
	Path string `json:"path"`
}

// CLILink is one `mod name;` declaration.
type CLILink struct {
	Parent   string `json:"parent"`
	Name     string `json:"name"`
	Child    string `json:"child,omitempty"`
	Resolved bool   `json:"resolved"`
}

// CLIModuleTree is the module graph of a directory.
type CLIModuleTree struct {
	Files      []CLIFile `json:"files"`
	Roots      []string  `json:"roots"`
	Links      []CLILink `json:"links"`
	Unresolved []CLILink `json:"unresolved"`
}

// CLISymbol is a JSON-friendly symbol. Line and column are 0-based.
type CLISymbol struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	File string `json:"file"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
}

// CLIWatchUpdate is emitted by watch after each applied batch.
type CLIWatchUpdate struct {
	Revision   uint64   `json:"revision"`
	Changed    []string `json:"changed,omitempty"`
	Removed    []string `json:"removed,omitempty"`
	Files      int      `json:"files"`
	Links      int      `json:"links"`
	Unresolved int      `json:"unresolved"`
	Symbols    int      `json:"symbols"`
	Retries    int      `json:"retries"`
}
