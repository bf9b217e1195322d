package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danieljhkim/tidydl/internal/engine"
	"github.com/danieljhkim/tidydl/internal/rules"
)

const downloadRules = `remove: |
  # release junk
  sample.txt
  *.nfo
  /^RARBG|^www\.
remove_hash:
  01.jpg:
    - ` + emptyMD5 + `
cleanup: |
  \.bak$
  ^\[TGx\]\s*
`

func downloadTree() map[string]string {
	return map[string]string{
		"01.jpg":                 "not empty",
		"RARBG.txt":              "ad",
		"Show.S01/01.jpg":        "",
		"Show.S01/02.jpg":        "",
		"Show.S01/Subs/info.nfo": "x",
		"Show.S01/ep1.mkv":       "video",
		"Show.S01/sample.txt":    "",
		"[TGx] Movie.mkv.bak":    "movie",
		"cover.jpg":              "cover",
		"partial.tmp/sample.txt": "still downloading",
	}
}

func TestClean_FullCycle(t *testing.T) {
	env := setupTestEnv(t)
	rulesPath := writeRules(t, env.base, downloadRules)
	writeTree(t, env.target, downloadTree())
	ctx := context.Background()

	// Dry run: plan only
	result, err := env.eng.Clean(ctx, &engine.CleanRequest{
		Target:  env.target,
		DryRun:  true,
		Toggles: engine.AllEnabled(),
	})
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if result.ConfigPath != rulesPath {
		t.Errorf("ConfigPath = %q, want %q", result.ConfigPath, rulesPath)
	}

	want := []string{
		"delete RARBG.txt",
		"delete_by_hash Show.S01/01.jpg",
		"delete Show.S01/Subs/info.nfo",
		"prune Show.S01/Subs",
		"delete Show.S01/sample.txt",
		"rename [TGx] Movie.mkv.bak -> Movie.mkv",
	}
	if got := describe(result.Plan.Actions()); !equalStrings(got, want) {
		t.Fatalf("dry-run actions =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	if len(result.Applied) != 0 {
		t.Errorf("dry run applied %d operations", len(result.Applied))
	}
	if _, err := os.Lstat(filepath.Join(env.target, "RARBG.txt")); err != nil {
		t.Errorf("dry run changed the tree: %v", err)
	}

	// Prune: apply the same plan
	result, err = env.eng.Clean(ctx, &engine.CleanRequest{
		Target:  env.target,
		Toggles: engine.AllEnabled(),
	})
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if result.HasWarnings() {
		t.Fatalf("unexpected warnings: %v %v", result.Plan.Warnings, result.Failures)
	}
	if len(result.Applied) != len(want) {
		t.Errorf("applied %d operations, want %d", len(result.Applied), len(want))
	}

	wantTree := []string{
		"01.jpg",
		"Movie.mkv",
		"Show.S01/",
		"Show.S01/02.jpg",
		"Show.S01/ep1.mkv",
		"cover.jpg",
		"partial.tmp/",
		"partial.tmp/sample.txt",
	}
	if got := listTree(t, env.target); !equalStrings(got, wantTree) {
		t.Fatalf("tree after prune =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(wantTree, "\n"))
	}

	// Second run over the cleaned tree has nothing to do
	result, err = env.eng.Clean(ctx, &engine.CleanRequest{
		Target:  env.target,
		Toggles: engine.AllEnabled(),
	})
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if actions := result.Plan.Actions(); len(actions) != 0 {
		t.Errorf("second run planned %v, want nothing", describe(actions))
	}
}

func TestClean_HashesOnlyNameMatchedFiles(t *testing.T) {
	env := setupTestEnv(t)
	writeRules(t, env.base, downloadRules)
	writeTree(t, env.target, downloadTree())

	_, err := env.eng.Clean(context.Background(), &engine.CleanRequest{
		Target:  env.target,
		DryRun:  true,
		Toggles: engine.AllEnabled(),
	})
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}

	if env.hasher.Calls() != 2 {
		t.Errorf("hash calls = %d, want 2 (%v)", env.hasher.Calls(), env.hasher.Paths())
	}
	for _, path := range env.hasher.Paths() {
		if filepath.Base(path) != "01.jpg" {
			t.Errorf("hashed %s, which no hash rule names", path)
		}
	}
}

func TestClean_HomeRuleFileFallback(t *testing.T) {
	env := setupTestEnv(t)
	rulesPath := writeRules(t, env.home, "remove:\n  - junk.txt\n")
	writeTree(t, env.target, map[string]string{"junk.txt": "x", "keep.txt": "y"})

	result, err := env.eng.Clean(context.Background(), &engine.CleanRequest{
		Target:  env.target,
		Toggles: engine.AllEnabled(),
	})
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if result.ConfigPath != rulesPath {
		t.Errorf("ConfigPath = %q, want %q", result.ConfigPath, rulesPath)
	}
	if got := listTree(t, env.target); !equalStrings(got, []string{"keep.txt"}) {
		t.Errorf("tree = %v, want [keep.txt]", got)
	}
}

func TestClean_NearestRuleFileWins(t *testing.T) {
	env := setupTestEnv(t)
	writeRules(t, env.home, "remove:\n  - a.txt\n")
	writeRules(t, env.base, "remove:\n  - b.txt\n")
	nearest := writeRules(t, env.target, "remove:\n  - c.txt\n")
	writeTree(t, env.target, map[string]string{"a.txt": "", "b.txt": "", "c.txt": ""})

	result, err := env.eng.Clean(context.Background(), &engine.CleanRequest{
		Target:  env.target,
		Toggles: engine.AllEnabled(),
	})
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if result.ConfigPath != nearest {
		t.Errorf("ConfigPath = %q, want %q", result.ConfigPath, nearest)
	}

	want := []string{".cleanup-patterns.yml", "a.txt", "b.txt"}
	if got := listTree(t, env.target); !equalStrings(got, want) {
		t.Errorf("tree = %v, want %v", got, want)
	}
}

func TestClean_WithoutRulesStillPrunesEmptyDirectories(t *testing.T) {
	env := setupTestEnv(t)
	writeTree(t, env.target, map[string]string{
		"a/b/":       "",
		"c/file.txt": "x",
	})

	result, err := env.eng.Clean(context.Background(), &engine.CleanRequest{
		Target:  env.target,
		Toggles: engine.AllEnabled(),
	})
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if result.ConfigPath != "" {
		t.Errorf("ConfigPath = %q, want none", result.ConfigPath)
	}

	want := []string{"prune a/b", "prune a"}
	if got := describe(result.Applied); !equalStrings(got, want) {
		t.Errorf("applied = %v, want %v", got, want)
	}
	if got := listTree(t, env.target); !equalStrings(got, []string{"c/", "c/file.txt"}) {
		t.Errorf("tree = %v", got)
	}
	if _, err := os.Lstat(env.target); err != nil {
		t.Errorf("target itself must survive: %v", err)
	}
}

func TestClean_BrokenOverrideLeavesTreeUntouched(t *testing.T) {
	env := setupTestEnv(t)
	writeRules(t, env.base, downloadRules)
	writeTree(t, env.target, downloadTree())
	before := listTree(t, env.target)

	override := filepath.Join(env.home, "broken.yml")
	if err := os.WriteFile(override, []byte("remove_hash:\n  01.jpg: [not-a-digest]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := env.eng.Clean(context.Background(), &engine.CleanRequest{
		Target:     env.target,
		ConfigPath: override,
		Toggles:    engine.AllEnabled(),
	})
	if err == nil {
		t.Fatal("expected a parse error")
	}
	var parseErr *rules.ConfigParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want a ConfigParseError", err)
	}
	if parseErr.Line != 2 {
		t.Errorf("Line = %d, want 2", parseErr.Line)
	}

	if after := listTree(t, env.target); !equalStrings(after, before) {
		t.Errorf("tree changed after a fatal error:\n%v\n%v", before, after)
	}
}

func TestClean_SecondPruneIsEmptyWhenCleanedNamesMatchRules(t *testing.T) {
	tests := []struct {
		name     string
		rules    string
		files    map[string]string
		wantTree []string
	}{
		{
			name:     "cleaned name matches remove",
			rules:    "remove: movie.mkv\ncleanup: \\.bak$\n",
			files:    map[string]string{"show/movie.mkv.bak": "movie", "show/ep1.mkv": "video"},
			wantTree: []string{"show/", "show/ep1.mkv"},
		},
		{
			name:     "cleaned name matches remove_hash",
			rules:    "remove_hash:\n  01.jpg: [" + emptyMD5 + "]\ncleanup: \\.bak$\n",
			files:    map[string]string{"show/01.jpg.bak": "", "show/ep1.mkv": "video"},
			wantTree: []string{"show/", "show/ep1.mkv"},
		},
		{
			name:     "cleanup rules expose earlier matches",
			rules:    "cleanup: |\n  \\.part\n  \\.tmp\n",
			files:    map[string]string{"show/a.pa.tmprt.mkv": "video"},
			wantTree: []string{"show/", "show/a.mkv"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)
			writeRules(t, env.base, tt.rules)
			writeTree(t, env.target, tt.files)
			ctx := context.Background()
			req := &engine.CleanRequest{Target: env.target, Toggles: engine.AllEnabled()}

			result, err := env.eng.Clean(ctx, req)
			if err != nil {
				t.Fatalf("Clean() error = %v", err)
			}
			if result.HasWarnings() {
				t.Fatalf("unexpected warnings: %v %v", result.Plan.Warnings, result.Failures)
			}
			if got := listTree(t, env.target); !equalStrings(got, tt.wantTree) {
				t.Fatalf("tree = %v, want %v", got, tt.wantTree)
			}

			result, err = env.eng.Clean(ctx, req)
			if err != nil {
				t.Fatalf("Clean() error = %v", err)
			}
			if actions := result.Plan.Actions(); len(actions) != 0 {
				t.Errorf("second run planned %v, want nothing", describe(actions))
			}
		})
	}
}
