package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/danieljhkim/tidydl/internal/logging"
	"github.com/danieljhkim/tidydl/internal/planner"
)

// Execute applies every action of plan in order. A failing operation is
// recorded and execution moves on to the next one. The returned error is
// non-nil only when ctx is cancelled, in which case the remaining actions
// are left for a later run.
func (e *Engine) Execute(ctx context.Context, plan *planner.Plan) ([]planner.Operation, []Failure, error) {
	logger := logging.GetLogger("engine")

	applied := []planner.Operation{}
	var failures []Failure

	for _, op := range plan.Actions() {
		if err := ctx.Err(); err != nil {
			return applied, failures, err
		}

		if err := e.executeOperation(op); err != nil {
			logger.Warn().Err(err).Str("path", op.Path).Str("action", op.Kind.String()).Msg("Operation failed")
			failures = append(failures, Failure{Operation: op, Err: err})
			continue
		}

		logger.Debug().Str("path", op.Path).Str("action", op.Kind.String()).Msg("Operation applied")
		applied = append(applied, op)
	}

	return applied, failures, nil
}

// executeOperation executes a single operation.
func (e *Engine) executeOperation(op planner.Operation) error {
	switch op.Kind {
	case planner.KindDelete, planner.KindDeleteByHash:
		return e.executeDelete(op)
	case planner.KindRename:
		return e.executeRename(op)
	case planner.KindPrune:
		return e.executePrune(op)
	case planner.KindKeep:
		return nil
	default:
		return fmt.Errorf("unknown operation kind: %s", op.Kind)
	}
}

// executeDelete removes a file, or a directory with its subtree.
func (e *Engine) executeDelete(op planner.Operation) error {
	info, err := e.fs.Lstat(op.Path)
	if err != nil {
		return fmt.Errorf("path vanished before delete: %w", err)
	}

	if info.IsDir() {
		if err := e.fs.RemoveAll(op.Path); err != nil {
			return fmt.Errorf("failed to remove directory: %w", err)
		}
		return nil
	}

	if err := e.fs.Remove(op.Path); err != nil {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

// executeRename renames within the same directory and refuses to overwrite.
func (e *Engine) executeRename(op planner.Operation) error {
	if _, err := e.fs.Lstat(op.Path); err != nil {
		return fmt.Errorf("path vanished before rename: %w", err)
	}

	dest := op.NewPath()
	exists, err := e.fs.Exists(dest)
	if err != nil {
		return fmt.Errorf("failed to check rename destination: %w", err)
	}
	if exists {
		return fmt.Errorf("rename destination %s already exists: %w", dest, fs.ErrExist)
	}

	if err := e.fs.Rename(op.Path, dest); err != nil {
		return fmt.Errorf("failed to rename: %w", err)
	}
	return nil
}

// executePrune removes a directory only if it is still empty.
func (e *Engine) executePrune(op planner.Operation) error {
	entries, err := e.fs.ReadDir(op.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("path vanished before prune: %w", err)
		}
		return fmt.Errorf("failed to read directory: %w", err)
	}
	if len(entries) > 0 {
		return fmt.Errorf("directory is no longer empty (%d entries)", len(entries))
	}

	if err := e.fs.Remove(op.Path); err != nil {
		return fmt.Errorf("failed to remove empty directory: %w", err)
	}
	return nil
}
