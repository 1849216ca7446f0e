package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jward/grove"
	"github.com/jward/grove/internal/modules"
	"github.com/jward/grove/internal/store"
)

var (
	flagDebounce    time.Duration
	flagMetricsAddr string
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Keep a writable root in sync with a directory",
	Long:  "Loads a directory into a writable root, then applies every batch of file system changes as one edit and reports the updated module tree and symbol counts.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", 200*time.Millisecond, "quiet period before a batch of changes is applied")
	watchCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9464")
}

// maxSummaryAttempts bounds retries of a summary canceled by a concurrent edit.
const maxSummaryAttempts = 5

// watchSession maps a directory onto a writable root. Paths are
// slash-separated and relative to dir. New files get fresh FileIDs; IDs of
// removed files are not reused.
type watchSession struct {
	dir    string
	exts   []string
	root   *grove.WritableSourceRoot
	ids    map[string]grove.FileID
	paths  map[grove.FileID]string
	hashes map[grove.FileID]string
	nextID grove.FileID
}

// newWatchSession loads proj into root as a single batch.
func newWatchSession(proj *project, exts []string, root *grove.WritableSourceRoot) *watchSession {
	s := &watchSession{
		dir:    proj.dir,
		exts:   exts,
		root:   root,
		ids:    make(map[string]grove.FileID, len(proj.files)),
		paths:  make(map[grove.FileID]string, len(proj.files)),
		hashes: make(map[grove.FileID]string, len(proj.files)),
		nextID: 1,
	}
	changes := make([]grove.Change, 0, len(proj.files))
	for _, f := range proj.files {
		rel := proj.paths[f.ID]
		s.ids[rel] = f.ID
		s.paths[f.ID] = rel
		s.hashes[f.ID] = store.ContentHash(f.Text)
		s.nextID = max(s.nextID, f.ID+1)
		changes = append(changes, grove.SetText(f.ID, f.Text))
	}
	root.ApplyChanges(changes, modules.NewPathResolver(s.paths))
	return s
}

// sync re-reads the given paths and applies the differences as one batch.
// Directory paths cover every file under them. It reports false when nothing
// changed. The session's path and hash tables are updated only after every
// path was read, so a failed read leaves both the session and the root as
// they were.
func (s *watchSession) sync(rels []string) (CLIWatchUpdate, bool, error) {
	var (
		changes []grove.Change
		changed []string
		removed []string
	)
	added := make(map[string]grove.FileID)
	gone := make(map[string]grove.FileID)
	hashes := make(map[grove.FileID]string)
	nextID := s.nextID
	seen := make(map[string]bool)

	visit := func(rel string) error {
		if seen[rel] {
			return nil
		}
		seen[rel] = true

		content, err := os.ReadFile(filepath.Join(s.dir, filepath.FromSlash(rel)))
		if errors.Is(err, fs.ErrNotExist) {
			id, ok := s.ids[rel]
			if !ok {
				return nil
			}
			gone[rel] = id
			changes = append(changes, grove.Remove(id))
			removed = append(removed, rel)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}

		hash := store.ContentHash(string(content))
		id, ok := s.ids[rel]
		if ok && s.hashes[id] == hash {
			return nil
		}
		if !ok {
			id = nextID
			nextID++
			added[rel] = id
		}
		hashes[id] = hash
		changes = append(changes, grove.SetText(id, string(content)))
		changed = append(changed, rel)
		return nil
	}

	for _, rel := range rels {
		rel = strings.TrimSuffix(rel, "/")
		abs := filepath.Join(s.dir, filepath.FromSlash(rel))
		info, err := os.Stat(abs)
		switch {
		case err == nil && info.IsDir():
			found, err := walkListFiles(abs, s.exts)
			if err != nil {
				return CLIWatchUpdate{}, false, err
			}
			for _, f := range found {
				if err := visit(joinRel(rel, f)); err != nil {
					return CLIWatchUpdate{}, false, err
				}
			}
		case err != nil && errors.Is(err, fs.ErrNotExist):
			// A removed directory takes every known file under it along.
			for _, known := range s.knownUnder(rel) {
				if err := visit(known); err != nil {
					return CLIWatchUpdate{}, false, err
				}
			}
		case hasExtension(rel, s.exts):
			if err := visit(rel); err != nil {
				return CLIWatchUpdate{}, false, err
			}
		}
	}

	if len(changes) == 0 {
		return CLIWatchUpdate{}, false, nil
	}

	for rel, id := range gone {
		delete(s.ids, rel)
		delete(s.paths, id)
		delete(s.hashes, id)
	}
	for rel, id := range added {
		s.ids[rel] = id
		s.paths[id] = rel
	}
	maps.Copy(s.hashes, hashes)
	s.nextID = nextID

	var resolver modules.FileResolver
	if len(added) > 0 || len(gone) > 0 {
		resolver = modules.NewPathResolver(s.paths)
	}
	s.root.ApplyChanges(changes, resolver)

	update, err := s.summary()
	if err != nil {
		return CLIWatchUpdate{}, false, err
	}
	sort.Strings(changed)
	sort.Strings(removed)
	update.Changed = changed
	update.Removed = removed
	return update, true, nil
}

// knownUnder returns the tracked paths equal to rel or below it.
func (s *watchSession) knownUnder(rel string) []string {
	var out []string
	for p := range s.ids {
		if p == rel || rel == "." || strings.HasPrefix(p, rel+"/") {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// summary reads the module tree and symbols of the current revision,
// retrying reads that a later batch canceled.
func (s *watchSession) summary() (CLIWatchUpdate, error) {
	var retries int
	for range maxSummaryAttempts {
		tree, err := s.root.ModuleTree()
		if errors.Is(err, grove.ErrCanceled) {
			retries++
			continue
		}
		if err != nil {
			return CLIWatchUpdate{}, err
		}
		indexes, err := s.root.Symbols(nil)
		if errors.Is(err, grove.ErrCanceled) {
			retries++
			continue
		}
		if err != nil {
			return CLIWatchUpdate{}, err
		}
		var nsyms int
		for _, idx := range indexes {
			nsyms += idx.Len()
		}
		return CLIWatchUpdate{
			Revision:   uint64(s.root.Revision()),
			Files:      len(tree.Files()),
			Links:      len(tree.Links()),
			Unresolved: len(tree.Unresolved()),
			Symbols:    nsyms,
			Retries:    retries,
		}, nil
	}
	return CLIWatchUpdate{}, fmt.Errorf("summary canceled %d times in a row: %w", retries, grove.ErrCanceled)
}

// relPath converts an event path to the session's relative form. It reports
// false for paths outside dir or inside hidden and skipped directories.
func (s *watchSession) relPath(abs string) (string, bool) {
	rel, err := filepath.Rel(s.dir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	for _, part := range strings.Split(rel, "/") {
		if part != "." && (strings.HasPrefix(part, ".") || skipDirs[part]) {
			return "", false
		}
	}
	return rel, true
}

func joinRel(dir, rel string) string {
	if dir == "" || dir == "." {
		return rel
	}
	return dir + "/" + rel
}

func runWatch(cmd *cobra.Command, args []string) error {
	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flagMetricsAddr != "" {
		srv := &http.Server{Addr: flagMetricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "addr", flagMetricsAddr, "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	proj, err := loadProject(targetDir, cfg.Extensions)
	if err != nil {
		return outputError("watch", err)
	}
	opts, err := rootOptions()
	if err != nil {
		return outputError("watch", err)
	}
	session := newWatchSession(proj, cfg.Extensions, grove.NewWritableSourceRoot(opts...))

	initial, err := session.summary()
	if err != nil {
		return outputError("watch", err)
	}
	if err := outputResult(CLIResult{Command: "watch", Results: initial}); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return outputError("watch", fmt.Errorf("creating watcher: %w", err))
	}
	defer watcher.Close()
	if err := addWatchRecursive(watcher, targetDir); err != nil {
		return outputError("watch", err)
	}
	logger.Info("watching", "dir", targetDir, "files", initial.Files)

	return watchLoop(ctx, watcher, session, flagDebounce, func(u CLIWatchUpdate) error {
		return outputResult(CLIResult{Command: "watch", Results: u})
	})
}

// watchLoop collects events until the debounce timer fires, then syncs the
// collected paths as one batch.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, session *watchSession, debounce time.Duration, emit func(CLIWatchUpdate) error) error {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			rel, ok := session.relPath(filepath.Clean(event.Name))
			if !ok {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addWatchRecursive(watcher, event.Name); err != nil {
						logger.Warn("watching new directory", "dir", event.Name, "error", err)
					}
				}
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			pending[rel] = true
			timer.Reset(debounce)

		case <-timer.C:
			rels := make([]string, 0, len(pending))
			for rel := range pending {
				rels = append(rels, rel)
			}
			sort.Strings(rels)
			clear(pending)

			update, ok, err := session.sync(rels)
			if err != nil {
				logger.Error("applying changes", "error", err)
				continue
			}
			if ok {
				if err := emit(update); err != nil {
					return err
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return outputError("watch", err)
		}
	}
}

// addWatchRecursive watches root and every directory below it except hidden
// ones and skipDirs.
func addWatchRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
