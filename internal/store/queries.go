package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// --- Snapshot operations ---

// Snapshots returns every snapshot of root, newest first.
func (s *Store) Snapshots(root string) ([]*Snapshot, error) {
	rows, err := s.db.Query(
		"SELECT id, root, created_at, file_count, symbol_count FROM snapshots WHERE root = ? ORDER BY created_at DESC, rowid DESC",
		root,
	)
	if err != nil {
		return nil, fmt.Errorf("snapshots: %w", err)
	}
	defer rows.Close()
	var out []*Snapshot
	for rows.Next() {
		snap := &Snapshot{}
		if err := rows.Scan(&snap.ID, &snap.Root, &snap.CreatedAt, &snap.FileCount, &snap.SymbolCount); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// LatestSnapshot returns the newest snapshot of root, or nil when none
// exists.
func (s *Store) LatestSnapshot(root string) (*Snapshot, error) {
	snap := &Snapshot{}
	err := s.db.QueryRow(
		"SELECT id, root, created_at, file_count, symbol_count FROM snapshots WHERE root = ? ORDER BY created_at DESC, rowid DESC LIMIT 1",
		root,
	).Scan(&snap.ID, &snap.Root, &snap.CreatedAt, &snap.FileCount, &snap.SymbolCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	return snap, nil
}

// --- File operations ---

func (s *Store) Files(snapshotID string) ([]*File, error) {
	rows, err := s.db.Query(
		"SELECT file_id, path, hash, line_count FROM files WHERE snapshot_id = ? ORDER BY file_id",
		snapshotID,
	)
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f := &File{}
		if err := rows.Scan(&f.FileID, &f.Path, &f.Hash, &f.LineCount); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *Store) FileByPath(snapshotID, path string) (*File, error) {
	f := &File{}
	err := s.db.QueryRow(
		"SELECT file_id, path, hash, line_count FROM files WHERE snapshot_id = ? AND path = ?",
		snapshotID, path,
	).Scan(&f.FileID, &f.Path, &f.Hash, &f.LineCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// --- Module operations ---

func (s *Store) ModuleLinks(snapshotID string) ([]*ModuleLink, error) {
	rows, err := s.db.Query(
		"SELECT parent_file, name, child_file, resolved FROM module_links WHERE snapshot_id = ? ORDER BY id",
		snapshotID,
	)
	if err != nil {
		return nil, fmt.Errorf("module links: %w", err)
	}
	defer rows.Close()
	var links []*ModuleLink
	for rows.Next() {
		l := &ModuleLink{}
		var child sql.NullInt64
		if err := rows.Scan(&l.ParentFile, &l.Name, &child, &l.Resolved); err != nil {
			return nil, fmt.Errorf("scan module link: %w", err)
		}
		if child.Valid {
			c := uint32(child.Int64)
			l.ChildFile = &c
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// --- Symbol operations ---

const symbolColumns = `sy.file_id, f.path, sy.name, sy.kind, sy.start_byte, sy.end_byte,
	sy.name_start, sy.line, sy.col`

func (s *Store) SymbolsByName(snapshotID, name string) ([]*Symbol, error) {
	return s.querySymbols(
		`SELECT `+symbolColumns+` FROM symbols sy
		 JOIN files f ON f.snapshot_id = sy.snapshot_id AND f.file_id = sy.file_id
		 WHERE sy.snapshot_id = ? AND sy.name = ?
		 ORDER BY sy.name, sy.file_id, sy.start_byte`,
		snapshotID, name,
	)
}

// SymbolsWithPrefix returns symbols whose name starts with prefix. LIKE
// wildcards in prefix are matched literally.
func (s *Store) SymbolsWithPrefix(snapshotID, prefix string) ([]*Symbol, error) {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	return s.querySymbols(
		`SELECT `+symbolColumns+` FROM symbols sy
		 JOIN files f ON f.snapshot_id = sy.snapshot_id AND f.file_id = sy.file_id
		 WHERE sy.snapshot_id = ? AND sy.name LIKE ? ESCAPE '\'
		 ORDER BY sy.name, sy.file_id, sy.start_byte`,
		snapshotID, escaped+"%",
	)
}

func (s *Store) SymbolsByFile(snapshotID string, fileID uint32) ([]*Symbol, error) {
	return s.querySymbols(
		`SELECT `+symbolColumns+` FROM symbols sy
		 JOIN files f ON f.snapshot_id = sy.snapshot_id AND f.file_id = sy.file_id
		 WHERE sy.snapshot_id = ? AND sy.file_id = ?
		 ORDER BY sy.start_byte`,
		snapshotID, fileID,
	)
}

func (s *Store) querySymbols(query string, args ...any) ([]*Symbol, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()
	var out []*Symbol
	for rows.Next() {
		sym := &Symbol{}
		if err := rows.Scan(&sym.FileID, &sym.Path, &sym.Name, &sym.Kind,
			&sym.StartByte, &sym.EndByte, &sym.NameStart, &sym.Line, &sym.Col); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}
