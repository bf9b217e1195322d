package engine

// Toggles enables or disables each rule category independently.
type Toggles struct {
	// Delete enables remove rules
	Delete bool

	// Hash enables remove_hash rules
	Hash bool

	// Rename enables cleanup rules
	Rename bool

	// SkipMarked leaves skip-marked directories untouched
	SkipMarked bool

	// PruneEmpty removes directories left empty
	PruneEmpty bool
}

// AllEnabled returns toggles with every category on.
func AllEnabled() Toggles {
	return Toggles{
		Delete:     true,
		Hash:       true,
		Rename:     true,
		SkipMarked: true,
		PruneEmpty: true,
	}
}

// CleanRequest represents a request to clean one directory tree.
type CleanRequest struct {
	// Target is the directory to clean
	Target string

	// ConfigPath overrides rule file discovery; the file must exist and parse
	ConfigPath string

	// DryRun performs planning only without making changes
	DryRun bool

	// Toggles selects the rule categories to apply
	Toggles Toggles
}
