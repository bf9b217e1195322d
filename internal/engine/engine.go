// Package engine provides the core logic of a tidydl cleanup run.
//
// The engine package is the orchestration layer between the CLI (or the
// watch loop) and the lower-level packages. One Clean call resolves the rule
// file, compiles it, plans the target tree and, unless asked for a dry run,
// executes the plan.
//
// Key components:
//   - Engine: Main orchestrator called by the CLI and the watcher
//   - Clean: Resolve, compile, plan and optionally execute
//   - Execute: Apply a plan, collecting per-entry failures
package engine

import (
	"github.com/danieljhkim/tidydl/internal/clock"
	"github.com/danieljhkim/tidydl/internal/fsops"
	"github.com/danieljhkim/tidydl/internal/hash"
	"github.com/danieljhkim/tidydl/internal/planner"
	"github.com/danieljhkim/tidydl/internal/rules"
)

// Options holds the run-independent engine settings.
type Options struct {
	// RulesFilename is the rule file name searched for (default .cleanup-patterns.yml)
	RulesFilename string

	// Home is the fallback directory for the rule file; empty disables it
	Home string

	// SkipMarker is the directory name suffix of an in-progress download
	SkipMarker string

	// Workers bounds concurrent digest computations
	Workers int

	// Fold makes Exact and Wildcard patterns case-insensitive
	Fold bool
}

// Engine orchestrates cleanup runs.
// It is the main API surface called by the CLI.
type Engine struct {
	fs       fsops.FS
	hasher   hash.Hasher
	clock    clock.Clock
	resolver *rules.Resolver
	opts     Options
}

// New creates a new Engine with the given dependencies.
func New(fs fsops.FS, hasher hash.Hasher, clk clock.Clock, opts Options) *Engine {
	if opts.SkipMarker == "" {
		opts.SkipMarker = planner.DefaultSkipMarker
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Engine{
		fs:       fs,
		hasher:   hasher,
		clock:    clk,
		resolver: rules.NewResolver(fs, opts.RulesFilename, opts.Home),
		opts:     opts,
	}
}

func (e *Engine) compileOptions() rules.CompileOptions {
	return rules.CompileOptions{Fold: e.opts.Fold}
}

func (e *Engine) plannerOptions(t Toggles) planner.Options {
	return planner.Options{
		Delete:     t.Delete,
		Hash:       t.Hash,
		Rename:     t.Rename,
		SkipMarked: t.SkipMarked,
		PruneEmpty: t.PruneEmpty,
		SkipMarker: e.opts.SkipMarker,
		Workers:    e.opts.Workers,
	}
}
