package planner

import (
	"fmt"
	"path/filepath"
)

// Kind is the decision recorded for one entry. The set is closed: every
// visited entry gets exactly one of these.
type Kind int

const (
	// KindKeep leaves the entry alone.
	KindKeep Kind = iota
	// KindDelete removes the entry (a directory is removed with its subtree).
	KindDelete
	// KindDeleteByHash removes a file whose name and content digest matched.
	KindDeleteByHash
	// KindRename renames a file within its directory.
	KindRename
	// KindPrune removes a directory left empty by the other operations.
	KindPrune
)

var kindNames = map[Kind]string{
	KindKeep:         "keep",
	KindDelete:       "delete",
	KindDeleteByHash: "delete_by_hash",
	KindRename:       "rename",
	KindPrune:        "prune",
}

// String returns the kind name used in logs and JSON output.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// IsDelete reports whether the kind removes the entry outright.
func (k Kind) IsDelete() bool {
	return k == KindDelete || k == KindDeleteByHash
}

// Plan is the ordered list of decisions for one target directory.
type Plan struct {
	// Root is the absolute traversal root
	Root string

	// Operations covers every visited entry in execution order, Keep included
	Operations []Operation

	// Warnings are non-fatal problems met while planning
	Warnings []Warning
}

// Operation represents the decision for a single entry.
type Operation struct {
	// Kind is the decision
	Kind Kind `json:"action"`

	// Path is the absolute path of the entry
	Path string `json:"-"`

	// RelPath is the path relative to the plan root
	RelPath string `json:"path"`

	// IsDir is true for directories
	IsDir bool `json:"is_dir,omitempty"`

	// NewName is the target filename of a rename
	NewName string `json:"new_name,omitempty"`

	// Rule is the source of the rule that produced the decision
	Rule string `json:"rule,omitempty"`

	// Digest is the content digest that confirmed a hash deletion
	Digest string `json:"digest,omitempty"`

	// PendingHashCheck is set while a hash-candidate awaits its digest
	PendingHashCheck bool `json:"-"`

	// Size is the number of bytes a deletion reclaims
	Size int64 `json:"size,omitempty"`

	// Reason explains a Keep that was forced (skip marker, hash failure)
	Reason string `json:"reason,omitempty"`
}

// NewPath returns the destination path of a rename, or Path otherwise.
func (op Operation) NewPath() string {
	if op.Kind != KindRename {
		return op.Path
	}
	return filepath.Join(filepath.Dir(op.Path), op.NewName)
}

// Warning is a non-fatal planning problem tied to a path.
type Warning struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// String implements fmt.Stringer.
func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Path, w.Message)
}

// NewPlan creates a new empty Plan.
func NewPlan(root string) *Plan {
	return &Plan{
		Root:       root,
		Operations: []Operation{},
		Warnings:   []Warning{},
	}
}

// AddOperation adds an operation to the plan.
func (p *Plan) AddOperation(op Operation) {
	p.Operations = append(p.Operations, op)
}

// AddWarning records a non-fatal problem.
func (p *Plan) AddWarning(path, format string, args ...any) {
	p.Warnings = append(p.Warnings, Warning{Path: path, Message: fmt.Sprintf(format, args...)})
}

// Actions returns the operations that change the filesystem, in order.
// An already clean tree has no actions.
func (p *Plan) Actions() []Operation {
	actions := make([]Operation, 0, len(p.Operations))
	for _, op := range p.Operations {
		if op.Kind != KindKeep {
			actions = append(actions, op)
		}
	}
	return actions
}

// IsEmpty reports whether the plan has no actions.
func (p *Plan) IsEmpty() bool {
	for _, op := range p.Operations {
		if op.Kind != KindKeep {
			return false
		}
	}
	return true
}

// Count returns the number of operations of the given kind.
func (p *Plan) Count(kind Kind) int {
	n := 0
	for _, op := range p.Operations {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// ReclaimedBytes sums the sizes of every deletion in the plan.
func (p *Plan) ReclaimedBytes() int64 {
	var total int64
	for _, op := range p.Operations {
		if op.Kind.IsDelete() {
			total += op.Size
		}
	}
	return total
}

// HasWarnings returns true if planning recorded any warning.
func (p *Plan) HasWarnings() bool {
	return len(p.Warnings) > 0
}
