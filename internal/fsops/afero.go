package fsops

import (
	"io"
	"io/fs"
	"os"

	"github.com/spf13/afero"
)

// AferoFS implements FS on top of an afero filesystem.
// Tests use it with afero.NewMemMapFs to plan over in-memory trees.
type AferoFS struct {
	fs afero.Fs
}

// NewAferoFS creates a new afero-backed FS.
func NewAferoFS(fs afero.Fs) *AferoFS {
	return &AferoFS{fs: fs}
}

// Lstat uses afero's Lstater when the backend supports it and falls back
// to Stat otherwise (MemMapFs has no symlinks).
func (a *AferoFS) Lstat(path string) (os.FileInfo, error) {
	if lstater, ok := a.fs.(afero.Lstater); ok {
		info, _, err := lstater.LstatIfPossible(path)
		return info, err
	}
	return a.fs.Stat(path)
}

// ReadDir lists a directory sorted by name.
func (a *AferoFS) ReadDir(path string) ([]os.FileInfo, error) {
	infos, err := afero.ReadDir(a.fs, path)
	if err != nil {
		return nil, err
	}
	sortInfos(infos)
	return infos, nil
}

// Open opens a file for reading. Opening a directory is rejected so that
// hashing never silently digests directory metadata.
func (a *AferoFS) Open(path string) (io.ReadCloser, error) {
	info, err := a.fs.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrInvalid}
	}
	return a.fs.Open(path)
}

// Remove removes a file or empty directory.
func (a *AferoFS) Remove(path string) error {
	return a.fs.Remove(path)
}

// RemoveAll removes a path and all its contents.
func (a *AferoFS) RemoveAll(path string) error {
	return a.fs.RemoveAll(path)
}

// Rename renames oldpath to newpath.
func (a *AferoFS) Rename(oldpath, newpath string) error {
	return a.fs.Rename(oldpath, newpath)
}

// Exists checks if a path exists.
func (a *AferoFS) Exists(path string) (bool, error) {
	return afero.Exists(a.fs, path)
}
