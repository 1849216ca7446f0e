package main_test

import (
	"database/sql"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinary compiles the grove binary into t.TempDir() and returns its path.
func buildBinary(t *testing.T) string {
	t.Helper()
	binName := "grove"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	bin := filepath.Join(t.TempDir(), binName)
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Dir = filepath.Join(projectRoot(t), "cmd", "grove")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", string(out))
	return bin
}

// projectRoot walks up from this file's directory to the one holding go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, parent, dir, "could not find project root")
		dir = parent
	}
}

// createCrateFixture writes a small crate with one unresolved module under a
// directory marked as a repo root.
func createCrateFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))
	files := map[string]string{
		"src/lib.rs": "mod net;\nmod missing;\n\npub fn start() {}\n",
		"src/net.rs": "pub struct Conn;\n\nimpl Conn {\n    pub fn open() -> Conn { Conn }\n}\n",
	}
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func runGrove(t *testing.T, bin, dir string, args ...string) []byte {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	require.NoError(t, err, "grove %v failed: %s", args, string(out))
	return out
}

type envelope[T any] struct {
	Command string `json:"command"`
	Results T      `json:"results"`
	Error   string `json:"error"`
}

func TestIndex_WritesSnapshot(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createCrateFixture(t)

	out := runGrove(t, bin, fixture, "index", fixture)
	var res envelope[struct {
		Snapshot string `json:"snapshot"`
		Files    int    `json:"files"`
		Links    int    `json:"links"`
		Symbols  int    `json:"symbols"`
	}]
	require.NoError(t, json.Unmarshal(out, &res))
	assert.Equal(t, "index", res.Command)
	assert.NotEmpty(t, res.Results.Snapshot)
	assert.Equal(t, 2, res.Results.Files)
	assert.Equal(t, 2, res.Results.Links)
	assert.Equal(t, 5, res.Results.Symbols, "net, missing, start, Conn and open")

	dbPath := filepath.Join(fixture, ".grove", "index.db")
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	var unresolved int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM module_links WHERE resolved = 0").Scan(&unresolved))
	assert.Equal(t, 1, unresolved)
}

func TestIndex_PrunesOldSnapshots(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createCrateFixture(t)

	for range 3 {
		runGrove(t, bin, fixture, "index", "--keep", "2", fixture)
	}

	db, err := sql.Open("sqlite3", filepath.Join(fixture, ".grove", "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	var snaps int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&snaps))
	assert.Equal(t, 2, snaps)
}

func TestSymbols_LooksUpLatestSnapshot(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createCrateFixture(t)
	runGrove(t, bin, fixture, "index", fixture)

	out := runGrove(t, bin, fixture, "symbols", "open", "--dir", fixture)
	var res envelope[[]struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
		File string `json:"file"`
		Line int    `json:"line"`
		Col  int    `json:"col"`
	}]
	require.NoError(t, json.Unmarshal(out, &res))
	require.Len(t, res.Results, 1)
	assert.Equal(t, "function", res.Results[0].Kind)
	assert.Equal(t, "src/net.rs", res.Results[0].File)
	assert.Equal(t, 3, res.Results[0].Line)
	assert.Equal(t, 11, res.Results[0].Col)
}

func TestSymbols_NoDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createCrateFixture(t)

	cmd := exec.Command(bin, "symbols", "start", "--dir", fixture)
	cmd.Dir = fixture
	out, _ := cmd.Output()
	var res envelope[any]
	require.NoError(t, json.Unmarshal(out, &res))
	assert.Contains(t, res.Error, "database not found")
	assert.NotEqual(t, 0, cmd.ProcessState.ExitCode())
}

func TestModules_ReportsUnresolved(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createCrateFixture(t)

	out := runGrove(t, bin, fixture, "modules", fixture)
	var res envelope[struct {
		Roots      []string `json:"roots"`
		Unresolved []struct {
			Parent string `json:"parent"`
			Name   string `json:"name"`
		} `json:"unresolved"`
	}]
	require.NoError(t, json.Unmarshal(out, &res))
	assert.Equal(t, []string{"src/lib.rs"}, res.Results.Roots)
	require.Len(t, res.Results.Unresolved, 1)
	assert.Equal(t, "missing", res.Results.Unresolved[0].Name)
	assert.Equal(t, "src/lib.rs", res.Results.Unresolved[0].Parent)
}

func TestInvalidFormat(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createCrateFixture(t)

	cmd := exec.Command(bin, "modules", "--format", "xml", fixture)
	out, err := cmd.CombinedOutput()
	require.Error(t, err)
	assert.Contains(t, string(out), "invalid format")
}
