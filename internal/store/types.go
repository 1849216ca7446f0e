package store

import "time"

// Snapshot describes one persisted read-only root.
type Snapshot struct {
	ID          string
	Root        string
	CreatedAt   time.Time
	FileCount   int
	SymbolCount int
}

type File struct {
	FileID    uint32
	Path      string
	Hash      string
	LineCount int
}

type ModuleLink struct {
	ParentFile uint32
	Name       string
	ChildFile  *uint32 // nil when unresolved
	Resolved   bool
}

// Symbol is a persisted symbol with its position precomputed, so lookups
// need neither the text nor a line index.
type Symbol struct {
	FileID    uint32
	Path      string // filled by queries that join files
	Name      string
	Kind      string
	StartByte int
	EndByte   int
	NameStart int
	Line      int // 0-based line of NameStart
	Col       int // 0-based byte column of NameStart
}
