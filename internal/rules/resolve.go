package rules

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/danieljhkim/tidydl/internal/fsops"
	"github.com/danieljhkim/tidydl/internal/logging"
)

// DefaultFilename is the rule file name searched for when none is configured.
const DefaultFilename = ".cleanup-patterns.yml"

// Resolver locates the rule file that applies to a target directory.
type Resolver struct {
	fs       fsops.FS
	filename string
	home     string
}

// NewResolver creates a Resolver. An empty filename means DefaultFilename;
// an empty home disables the home-directory fallback.
func NewResolver(fsys fsops.FS, filename, home string) *Resolver {
	if filename == "" {
		filename = DefaultFilename
	}
	return &Resolver{fs: fsys, filename: filename, home: home}
}

// Filename returns the rule file name being searched for.
func (r *Resolver) Filename() string {
	return r.filename
}

// Resolve returns the rule file path for target.
//
// A non-empty override is used as-is and must exist. Otherwise the target
// and each of its ancestors are checked in turn, then the home directory.
// An empty path with a nil error means no rule file applies.
func (r *Resolver) Resolve(target, override string) (string, error) {
	logger := logging.GetLogger("rules")

	if override != "" {
		exists, err := r.fs.Exists(override)
		if err != nil {
			return "", fmt.Errorf("failed to check rule file %s: %w", override, err)
		}
		if !exists {
			return "", fmt.Errorf("%w: %s", ErrConfigNotFound, override)
		}
		return override, nil
	}

	dir, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", target, err)
	}

	for {
		candidate := filepath.Join(dir, r.filename)
		if r.present(candidate) {
			logger.Debug().Str("path", candidate).Msg("Found rule file")
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if r.home != "" {
		candidate := filepath.Join(r.home, r.filename)
		if r.present(candidate) {
			logger.Debug().Str("path", candidate).Msg("Using rule file from home directory")
			return candidate, nil
		}
	}

	logger.Debug().Str("target", target).Str("filename", r.filename).Msg("No rule file found")
	return "", nil
}

// present reports whether candidate names a file. Directories with the
// rule file's name are not rule files. Unreadable ancestors are skipped.
func (r *Resolver) present(candidate string) bool {
	info, err := r.fs.Lstat(candidate)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger := logging.GetLogger("rules")
			logger.Debug().Err(err).Str("path", candidate).Msg("Cannot stat rule file candidate, continuing search")
		}
		return false
	}
	return !info.IsDir()
}
