package main

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jward/grove"
	"github.com/jward/grove/internal/modules"
	"github.com/jward/grove/internal/runtime"
)

// skipDirs lists directories excluded from the filesystem walk.
var skipDirs = map[string]bool{
	"target":       true,
	"node_modules": true,
	"vendor":       true,
}

// project is the set of source files found under a directory. FileIDs are
// assigned in path order starting at 1.
type project struct {
	dir   string
	files []grove.File
	paths map[grove.FileID]string // slash-separated, relative to dir
}

func (p *project) resolver() *modules.PathResolver {
	return modules.NewPathResolver(p.paths)
}

// loadProject discovers and reads every source file under dir.
func loadProject(dir string, extensions []string) (*project, error) {
	paths, err := gitListFiles(dir, extensions)
	if err != nil {
		paths, err = walkListFiles(dir, extensions)
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(paths)

	p := &project{dir: dir, paths: make(map[grove.FileID]string, len(paths))}
	for i, rel := range paths {
		content, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", rel, err)
		}
		id := grove.FileID(i + 1)
		p.files = append(p.files, grove.File{ID: id, Text: string(content)})
		p.paths[id] = rel
	}
	return p, nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root.
func gitListFiles(root string, extensions []string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && hasExtension(line, extensions) {
			paths = append(paths, filepath.ToSlash(line))
		}
	}
	return paths, nil
}

// walkListFiles is the fallback when git is unavailable. Skips hidden
// directories and skipDirs.
func walkListFiles(root string, extensions []string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if hasExtension(path, extensions) {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			paths = append(paths, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

func hasExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// rootOptions translates the config into root options.
func rootOptions() ([]grove.Option, error) {
	opts := []grove.Option{
		grove.WithWorkers(cfg.Workers),
		grove.WithSyntaxCache(cfg.SyntaxCache),
		grove.WithLogger(logger),
	}
	if cfg.ScriptPath != "" {
		rt := runtime.NewRuntime(filepath.Dir(cfg.ScriptPath), runtime.WithLogger(logger))
		ex, err := runtime.NewScriptExtractor(rt, filepath.Base(cfg.ScriptPath))
		if err != nil {
			return nil, fmt.Errorf("loading symbol script: %w", err)
		}
		opts = append(opts, grove.WithExtractor(ex))
	}
	return opts, nil
}

// buildReadonly discovers dir and builds a read-only root over it.
func buildReadonly(ctx context.Context, dir string) (*project, *grove.ReadonlySourceRoot, error) {
	p, err := loadProject(dir, cfg.Extensions)
	if err != nil {
		return nil, nil, err
	}
	opts, err := rootOptions()
	if err != nil {
		return nil, nil, err
	}
	return p, grove.NewReadonlySourceRoot(ctx, p.files, p.resolver(), opts...), nil
}
