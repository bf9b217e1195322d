package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/danieljhkim/tidydl/internal/logging"
	"github.com/danieljhkim/tidydl/internal/planner"
	"github.com/danieljhkim/tidydl/internal/rules"
)

// Clean runs the cleanup pipeline on req.Target.
//
// A missing or unparsable rule file, or an invalid target, is returned as an
// error before anything is planned or mutated. Per-entry problems never
// fail the run: they are reported on the result.
func (e *Engine) Clean(ctx context.Context, req *CleanRequest) (*CleanResult, error) {
	logger := logging.GetLogger("engine")
	done := logging.LogOperationStart(logger, "clean")
	defer done()

	started := e.clock.Now()

	root, err := e.validateTarget(req.Target)
	if err != nil {
		return nil, err
	}

	configPath, err := e.resolver.Resolve(root, req.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve rule file: %w", err)
	}

	rs, err := e.loadRules(configPath)
	if err != nil {
		return nil, err
	}

	p := planner.New(e.fs, e.hasher, rs, e.plannerOptions(req.Toggles))
	plan, err := p.Build(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to plan %s: %w", root, err)
	}

	result := &CleanResult{
		Root:       root,
		ConfigPath: configPath,
		Plan:       plan,
		Applied:    []planner.Operation{},
		DryRun:     req.DryRun,
		StartedAt:  started,
	}

	if !req.DryRun && plan.IsEmpty() {
		logger.Debug().Str("root", root).Msg("Nothing to apply")
	} else if !req.DryRun {
		applied, failures, err := e.Execute(ctx, plan)
		result.Applied = applied
		result.Failures = failures
		if err != nil {
			result.Duration = e.clock.Now().Sub(started)
			return result, err
		}
	}

	result.Duration = e.clock.Now().Sub(started)

	logger.Info().
		Str("root", root).
		Str("config", configPath).
		Bool("dry_run", req.DryRun).
		Int("actions", len(plan.Actions())).
		Int("applied", len(result.Applied)).
		Int("warnings", result.WarningCount()).
		Msg("Cleanup finished")

	return result, nil
}

// validateTarget returns the absolute path of target if it is a directory.
func (e *Engine) validateTarget(target string) (string, error) {
	if target == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidTarget)
	}

	root, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidTarget, target, err)
	}

	info, err := e.fs.Lstat(root)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidTarget, root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrInvalidTarget, root)
	}

	return root, nil
}

// loadRules compiles the rule file, or returns an empty rule set when none
// applies.
func (e *Engine) loadRules(configPath string) (*rules.RuleSet, error) {
	logger := logging.GetLogger("engine")

	if configPath == "" {
		logger.Info().Str("filename", e.resolver.Filename()).Msg("No rule file found, running with an empty rule set")
		return rules.Empty(), nil
	}

	rs, err := rules.LoadFile(e.fs, configPath, e.compileOptions())
	if err != nil {
		return nil, err
	}

	if rs.IsEmpty() {
		logger.Warn().Str("path", configPath).Msg("Rule file has no rules, only empty directories will be pruned")
		return rs, nil
	}

	remove, hashRules, rename := rs.Counts()
	logger.Info().
		Str("path", configPath).
		Int("remove", remove).
		Int("remove_hash", hashRules).
		Int("cleanup", rename).
		Msg("Loaded rule file")

	return rs, nil
}
