package integration

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/danieljhkim/tidydl/internal/clock"
	"github.com/danieljhkim/tidydl/internal/engine"
	"github.com/danieljhkim/tidydl/internal/fsops"
	"github.com/danieljhkim/tidydl/internal/hash"
	"github.com/danieljhkim/tidydl/internal/planner"
)

// emptyMD5 is the MD5 digest of zero bytes.
const emptyMD5 = "d41d8cd98f00b204e9800998ecf8427e"

// testEnv is a real directory layout: a home directory and a workspace
// holding the rule file and the download tree.
type testEnv struct {
	home   string
	base   string
	target string
	hasher *hash.CountingHasher
	eng    *engine.Engine
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	env := &testEnv{
		home:   filepath.Join(dir, "home"),
		base:   filepath.Join(dir, "downloads"),
		target: filepath.Join(dir, "downloads", "complete"),
	}
	for _, d := range []string{env.home, env.target} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("failed to create %s: %v", d, err)
		}
	}

	realFS := fsops.NewRealFS()
	env.hasher = hash.NewCountingHasher(hash.NewMD5Hasher(realFS))
	clk := clock.NewFakeClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	env.eng = engine.New(realFS, env.hasher, clk, engine.Options{
		Home:    env.home,
		Workers: 2,
	})
	return env
}

// writeRules places a rule file in dir.
func writeRules(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ".cleanup-patterns.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write rules: %v", err)
	}
	return path
}

// writeTree creates files below root; a trailing slash creates an empty directory.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if rel[len(rel)-1] == '/' {
			if err := os.MkdirAll(path, 0755); err != nil {
				t.Fatalf("failed to create %s: %v", path, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create parent of %s: %v", path, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
}

// listTree returns every path below root, slash-separated, directories
// suffixed with "/".
func listTree(t *testing.T, root string) []string {
	t.Helper()
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			rel += "/"
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		t.Fatalf("failed to walk %s: %v", root, err)
	}
	sort.Strings(paths)
	return paths
}

// describe renders plan actions as "kind path[ -> new]" lines.
func describe(ops []planner.Operation) []string {
	lines := make([]string, 0, len(ops))
	for _, op := range ops {
		line := op.Kind.String() + " " + filepath.ToSlash(op.RelPath)
		if op.Kind == planner.KindRename {
			line += " -> " + op.NewName
		}
		lines = append(lines, line)
	}
	return lines
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
