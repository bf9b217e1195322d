package engine

import (
	"fmt"
	"time"

	"github.com/danieljhkim/tidydl/internal/planner"
)

// CleanResult represents the outcome of a cleanup run.
type CleanResult struct {
	// Root is the absolute target directory
	Root string

	// ConfigPath is the rule file used, empty if none was found
	ConfigPath string

	// Plan is the generated plan
	Plan *planner.Plan

	// Applied is the list of operations that were executed (empty if DryRun)
	Applied []planner.Operation

	// Failures lists the operations that could not be applied
	Failures []Failure

	// DryRun indicates whether this was a dry run
	DryRun bool

	// StartedAt is when the run began
	StartedAt time.Time

	// Duration is how long the run took
	Duration time.Duration
}

// HasWarnings reports whether planning or execution hit a per-entry problem.
func (r *CleanResult) HasWarnings() bool {
	return len(r.Failures) > 0 || (r.Plan != nil && r.Plan.HasWarnings())
}

// WarningCount returns the number of planning warnings plus execution failures.
func (r *CleanResult) WarningCount() int {
	n := len(r.Failures)
	if r.Plan != nil {
		n += len(r.Plan.Warnings)
	}
	return n
}

// Failure is an operation that could not be applied.
type Failure struct {
	Operation planner.Operation
	Err       error
}

// Error implements the error interface.
func (f Failure) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Operation.Kind, f.Operation.Path, f.Err)
}

// Unwrap returns the underlying error.
func (f Failure) Unwrap() error {
	return f.Err
}
