// Package fsops provides the filesystem operations tidydl relies on.
//
// Every read the planner performs and every mutation the executor applies
// goes through the FS interface, so a plan can be computed against an
// in-memory tree in tests and against the real disk in production.
//
// Key features:
//   - Lstat semantics throughout: symlinks are reported, never followed
//   - Directory listings sorted by name for deterministic plans
//   - Name validation for rename targets
package fsops

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FS provides an abstraction for filesystem operations.
// All filesystem access in tidydl must go through this interface.
type FS interface {
	// Lstat returns file info without following symlinks.
	Lstat(path string) (os.FileInfo, error)

	// ReadDir lists a directory with Lstat semantics, sorted by name.
	ReadDir(path string) ([]os.FileInfo, error)

	// Open opens a file for streaming reads.
	Open(path string) (io.ReadCloser, error)

	// Remove removes a file or empty directory.
	Remove(path string) error

	// RemoveAll removes a path and all its contents.
	RemoveAll(path string) error

	// Rename renames oldpath to newpath.
	Rename(oldpath, newpath string) error

	// Exists checks if a path exists.
	Exists(path string) (bool, error)
}

// RealFS implements FS using actual OS operations.
type RealFS struct{}

// NewRealFS creates a new RealFS.
func NewRealFS() *RealFS {
	return &RealFS{}
}

// Lstat returns file info without following symlinks.
func (r *RealFS) Lstat(path string) (os.FileInfo, error) {
	return os.Lstat(path)
}

// ReadDir lists a directory. Entries that vanish between the listing and
// the Lstat call are dropped.
func (r *RealFS) ReadDir(path string) ([]os.FileInfo, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	infos := make([]os.FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to stat %s: %w", filepath.Join(path, entry.Name()), err)
		}
		infos = append(infos, info)
	}
	sortInfos(infos)
	return infos, nil
}

// Open opens a file for reading.
func (r *RealFS) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Remove removes a file or empty directory.
func (r *RealFS) Remove(path string) error {
	return os.Remove(path)
}

// RemoveAll removes a path and all its contents.
func (r *RealFS) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// Rename renames oldpath to newpath.
func (r *RealFS) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

// Exists checks if a path exists.
func (r *RealFS) Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func sortInfos(infos []os.FileInfo) {
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name() < infos[j].Name()
	})
}

// ValidateName validates a bare filename produced by a rename.
// Returns an error if the name is empty, a relative directory reference,
// or contains a path separator.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("invalid name: empty")
	}

	if name == "." || name == ".." {
		return fmt.Errorf("invalid name: %q refers to a directory", name)
	}

	if strings.Contains(name, string(filepath.Separator)) || strings.Contains(name, "/") {
		return fmt.Errorf("invalid name: %q must not contain path separators", name)
	}

	return nil
}

// IsSymlink reports whether info describes a symbolic link.
func IsSymlink(info os.FileInfo) bool {
	return info.Mode()&os.ModeSymlink != 0
}

// DiskUsage returns the total size of the regular files at or below path.
// Symlinks are counted by their own size and never followed.
func DiskUsage(fsys FS, path string) (int64, error) {
	info, err := fsys.Lstat(path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}

	entries, err := fsys.ReadDir(path)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, entry := range entries {
		if !entry.IsDir() {
			total += entry.Size()
			continue
		}
		size, err := DiskUsage(fsys, filepath.Join(path, entry.Name()))
		if err != nil {
			return total, err
		}
		total += size
	}
	return total, nil
}
