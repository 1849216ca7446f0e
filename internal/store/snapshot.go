package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jward/grove/internal/modules"
	"github.com/jward/grove/internal/source"
	"github.com/jward/grove/internal/symbols"
	"github.com/jward/grove/internal/text"
)

// SnapshotBatch buffers one snapshot in memory until CommitSnapshot writes
// it in a single transaction. A batch is not safe for concurrent use.
type SnapshotBatch struct {
	Snapshot Snapshot
	Files    []File
	Links    []ModuleLink
	Symbols  []Symbol

	lines map[source.FileID]*text.LineIndex
	paths map[source.FileID]string
}

// NewSnapshotBatch starts a snapshot of the project rooted at root.
func NewSnapshotBatch(root string) *SnapshotBatch {
	return &SnapshotBatch{
		Snapshot: Snapshot{
			ID:        uuid.NewString(),
			Root:      root,
			CreatedAt: time.Now().UTC().Truncate(time.Second),
		},
		lines: make(map[source.FileID]*text.LineIndex),
		paths: make(map[source.FileID]string),
	}
}

// AddFile records a member file. lines may be nil, in which case it is
// computed from content.
func (b *SnapshotBatch) AddFile(id source.FileID, path, content string, lines *text.LineIndex) {
	if lines == nil {
		lines = text.NewLineIndex(content)
	}
	b.lines[id] = lines
	b.paths[id] = path
	b.Files = append(b.Files, File{
		FileID:    uint32(id),
		Path:      path,
		Hash:      ContentHash(content),
		LineCount: lines.LineCount(),
	})
}

// AddModuleTree records every declaration of tree.
func (b *SnapshotBatch) AddModuleTree(tree *modules.TreeDescriptor) {
	for _, l := range tree.Links() {
		link := ModuleLink{ParentFile: uint32(l.Parent), Name: l.Name, Resolved: l.Resolved}
		if l.Resolved {
			child := uint32(l.Child)
			link.ChildFile = &child
		}
		b.Links = append(b.Links, link)
	}
}

// AddSymbols records every symbol of the indexes. Files must have been added
// first so positions can be computed.
func (b *SnapshotBatch) AddSymbols(indexes ...*symbols.Index) error {
	for _, idx := range indexes {
		for _, sym := range idx.Symbols() {
			lines, ok := b.lines[sym.File]
			if !ok {
				return fmt.Errorf("snapshot: symbol %q in unknown file %d", sym.Name, uint32(sym.File))
			}
			pos := lines.LineCol(sym.NameStart)
			b.Symbols = append(b.Symbols, Symbol{
				FileID:    uint32(sym.File),
				Path:      b.paths[sym.File],
				Name:      sym.Name,
				Kind:      sym.Kind,
				StartByte: sym.StartByte,
				EndByte:   sym.EndByte,
				NameStart: sym.NameStart,
				Line:      pos.Line,
				Col:       pos.Col,
			})
		}
	}
	return nil
}

// CommitSnapshot writes batch within a single transaction and returns the
// stored snapshot. Insert order respects FK dependencies: the snapshot row
// first, then files, links and symbols.
func (s *Store) CommitSnapshot(batch *SnapshotBatch) (*Snapshot, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("commit snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	snap := batch.Snapshot
	snap.FileCount = len(batch.Files)
	snap.SymbolCount = len(batch.Symbols)

	if _, err := tx.Exec(
		"INSERT INTO snapshots (id, root, created_at, file_count, symbol_count) VALUES (?, ?, ?, ?, ?)",
		snap.ID, snap.Root, snap.CreatedAt, snap.FileCount, snap.SymbolCount,
	); err != nil {
		return nil, fmt.Errorf("commit snapshot: insert snapshot: %w", err)
	}

	fileStmt, err := tx.Prepare("INSERT INTO files (snapshot_id, file_id, path, hash, line_count) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("commit snapshot: prepare files: %w", err)
	}
	defer fileStmt.Close()
	for _, f := range batch.Files {
		if _, err := fileStmt.Exec(snap.ID, f.FileID, f.Path, f.Hash, f.LineCount); err != nil {
			return nil, fmt.Errorf("commit snapshot: file %q: %w", f.Path, err)
		}
	}

	linkStmt, err := tx.Prepare("INSERT INTO module_links (snapshot_id, parent_file, name, child_file, resolved) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("commit snapshot: prepare links: %w", err)
	}
	defer linkStmt.Close()
	for _, l := range batch.Links {
		if _, err := linkStmt.Exec(snap.ID, l.ParentFile, l.Name, l.ChildFile, l.Resolved); err != nil {
			return nil, fmt.Errorf("commit snapshot: link %q: %w", l.Name, err)
		}
	}

	symStmt, err := tx.Prepare(`INSERT INTO symbols (snapshot_id, file_id, name, kind,
			start_byte, end_byte, name_start, line, col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("commit snapshot: prepare symbols: %w", err)
	}
	defer symStmt.Close()
	for _, sym := range batch.Symbols {
		if _, err := symStmt.Exec(snap.ID, sym.FileID, sym.Name, sym.Kind,
			sym.StartByte, sym.EndByte, sym.NameStart, sym.Line, sym.Col); err != nil {
			return nil, fmt.Errorf("commit snapshot: symbol %q: %w", sym.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit snapshot: %w", err)
	}
	return &snap, nil
}

// Prune deletes all but the newest keep snapshots of root and returns the
// number deleted.
func (s *Store) Prune(root string, keep int) (int, error) {
	snaps, err := s.Snapshots(root)
	if err != nil {
		return 0, err
	}
	if len(snaps) <= keep {
		return 0, nil
	}
	var ids []string
	for _, snap := range snaps[max(keep, 0):] {
		ids = append(ids, snap.ID)
	}
	if _, err := s.db.Exec("DELETE FROM snapshots WHERE id IN ("+placeholderList(len(ids))+")", stringsToArgs(ids)...); err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	return len(ids), nil
}
