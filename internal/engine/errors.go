package engine

import "errors"

var (
	// ErrInvalidTarget indicates the target path is missing or not a directory.
	ErrInvalidTarget = errors.New("invalid target")

	// ErrCompletedWithWarnings indicates a prune run finished but some
	// entries failed or were skipped with a warning.
	ErrCompletedWithWarnings = errors.New("completed with warnings")
)
