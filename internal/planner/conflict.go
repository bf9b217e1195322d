package planner

import (
	"fmt"

	"github.com/danieljhkim/tidydl/internal/fsops"
)

// NameTracker tracks which filenames are taken in one directory so a
// rename never lands on a name that exists or will exist after the plan.
type NameTracker struct {
	taken map[string]string
}

// NewNameTracker creates a tracker seeded with the names that survive the
// plan for a directory.
func NewNameTracker(names []string) *NameTracker {
	taken := make(map[string]string, len(names))
	for _, name := range names {
		taken[name] = ""
	}
	return &NameTracker{taken: taken}
}

// Claim reserves newName for a rename of oldName.
// Returns an error describing the conflict if the rename must be skipped.
func (t *NameTracker) Claim(oldName, newName string) error {
	if newName == "" {
		return fmt.Errorf("rename of %q would produce an empty name", oldName)
	}

	if err := fsops.ValidateName(newName); err != nil {
		return fmt.Errorf("rename of %q skipped: %w", oldName, err)
	}

	if t.isTaken(newName) {
		owner := t.taken[newName]
		if owner == "" {
			return fmt.Errorf("rename of %q skipped: %q already exists", oldName, newName)
		}
		return fmt.Errorf("rename of %q skipped: %q is already the new name of %q", oldName, newName, owner)
	}

	t.taken[newName] = oldName
	return nil
}

func (t *NameTracker) isTaken(name string) bool {
	_, ok := t.taken[name]
	return ok
}
