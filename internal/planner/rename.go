package planner

import (
	"fmt"

	"github.com/danieljhkim/tidydl/internal/rules"
)

// Renamer applies the ordered cleanup rules to a filename.
type Renamer struct {
	rules []rules.RenameRule
}

// NewRenamer creates a Renamer over the given rules.
func NewRenamer(renameRules []rules.RenameRule) *Renamer {
	return &Renamer{rules: renameRules}
}

// Apply folds every rule over name, each rule seeing the previous result,
// and repeats the fold until the name stops changing so that the result is
// already clean on the next run. Every change removes at least one
// character, so this terminates. The returned rule list names the rules
// that changed something, in first-use order.
func (r *Renamer) Apply(name string) (string, []string, error) {
	current := name
	var applied []string
	used := make(map[string]bool)
	for {
		before := current
		for _, rule := range r.rules {
			next, err := rule.Apply(current)
			if err != nil {
				return name, nil, fmt.Errorf("cleanup rule %q failed on %q: %w", rule.Source(), current, err)
			}
			if next != current && !used[rule.Source()] {
				used[rule.Source()] = true
				applied = append(applied, rule.Source())
			}
			current = next
		}
		if current == before {
			return current, applied, nil
		}
	}
}

// Len returns the number of rules.
func (r *Renamer) Len() int {
	return len(r.rules)
}
