package modules

import (
	"path"
	"strings"

	"github.com/jward/grove/internal/source"
)

// FileResolver resolves a `mod name;` declared in parent to the file that
// implements it.
type FileResolver interface {
	Resolve(parent source.FileID, name string) (source.FileID, bool)
}

// NameResolver resolves by module name alone, ignoring the declaring file.
type NameResolver map[string]source.FileID

// Resolve implements FileResolver.
func (r NameResolver) Resolve(_ source.FileID, name string) (source.FileID, bool) {
	id, ok := r[name]
	return id, ok
}

// NopResolver resolves nothing. It is the resolver of an empty root.
type NopResolver struct{}

// Resolve implements FileResolver.
func (NopResolver) Resolve(source.FileID, string) (source.FileID, bool) {
	return 0, false
}

// PathResolver resolves modules with the Rust file layout: a module `m`
// declared in `dir/lib.rs`, `dir/main.rs` or `dir/mod.rs` lives in
// `dir/m.rs` or `dir/m/mod.rs`; declared in `dir/x.rs` it lives in
// `dir/x/m.rs` or `dir/x/m/mod.rs`. Paths are slash-separated.
type PathResolver struct {
	paths map[source.FileID]string
	ids   map[string]source.FileID
}

// NewPathResolver builds a resolver from a FileID → path table.
func NewPathResolver(paths map[source.FileID]string) *PathResolver {
	r := &PathResolver{
		paths: make(map[source.FileID]string, len(paths)),
		ids:   make(map[string]source.FileID, len(paths)),
	}
	for id, p := range paths {
		p = path.Clean(p)
		r.paths[id] = p
		r.ids[p] = id
	}
	return r
}

// Path returns the path registered for id.
func (r *PathResolver) Path(id source.FileID) (string, bool) {
	p, ok := r.paths[id]
	return p, ok
}

// Resolve implements FileResolver. The flat `m.rs` layout is preferred over
// `m/mod.rs` when both exist.
func (r *PathResolver) Resolve(parent source.FileID, name string) (source.FileID, bool) {
	parentPath, ok := r.paths[parent]
	if !ok {
		return 0, false
	}
	for _, candidate := range candidatePaths(parentPath, name) {
		if id, ok := r.ids[candidate]; ok {
			return id, true
		}
	}
	return 0, false
}

func candidatePaths(parentPath, name string) []string {
	dir, file := path.Split(parentPath)
	stem := strings.TrimSuffix(file, path.Ext(file))
	switch stem {
	case "lib", "main", "mod":
	default:
		dir = path.Join(dir, stem)
	}
	return []string{
		path.Join(dir, name+".rs"),
		path.Join(dir, name, "mod.rs"),
	}
}
