// Package hash provides content digests for hash-gated deletion.
//
// A remove_hash rule deletes a file only when its name matches and its
// content digest is listed in the rule. Digests are computed with a single
// streaming read through fsops.FS. MD5 is the default because externally
// published dedup lists use it; SHA-256 is available for new deployments.
// The package also provides a fake hasher and a counting wrapper for tests.
package hash

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	stdhash "hash"
	"io"
	"strings"
	"sync"

	"github.com/danieljhkim/tidydl/internal/fsops"
)

// Supported digest algorithms.
const (
	AlgorithmMD5    = "md5"
	AlgorithmSHA256 = "sha256"
)

// Hasher provides an abstraction for file hashing operations.
type Hasher interface {
	// HashFile computes the lowercase hex digest of the file at the given path.
	HashFile(path string) (string, error)
}

// StreamHasher implements Hasher by streaming a file through a digest.
type StreamHasher struct {
	fs        fsops.FS
	algorithm string
	newDigest func() stdhash.Hash
}

// New creates a StreamHasher for the named algorithm.
func New(fs fsops.FS, algorithm string) (*StreamHasher, error) {
	switch strings.ToLower(algorithm) {
	case "", AlgorithmMD5:
		return NewMD5Hasher(fs), nil
	case AlgorithmSHA256:
		return NewSHA256Hasher(fs), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q (want %s or %s)", algorithm, AlgorithmMD5, AlgorithmSHA256)
	}
}

// NewMD5Hasher creates a StreamHasher using MD5.
func NewMD5Hasher(fs fsops.FS) *StreamHasher {
	return &StreamHasher{fs: fs, algorithm: AlgorithmMD5, newDigest: md5.New}
}

// NewSHA256Hasher creates a StreamHasher using SHA-256.
func NewSHA256Hasher(fs fsops.FS) *StreamHasher {
	return &StreamHasher{fs: fs, algorithm: AlgorithmSHA256, newDigest: sha256.New}
}

// Algorithm returns the digest algorithm name.
func (h *StreamHasher) Algorithm() string {
	return h.algorithm
}

// HashFile computes the digest of the file at the given path.
func (h *StreamHasher) HashFile(path string) (string, error) {
	file, err := h.fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	digest := h.newDigest()
	if _, err := io.Copy(digest, file); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return hex.EncodeToString(digest.Sum(nil)), nil
}

// CountingHasher wraps a Hasher and records every path it was asked to hash.
type CountingHasher struct {
	inner Hasher

	mu    sync.Mutex
	paths []string
}

// NewCountingHasher wraps inner.
func NewCountingHasher(inner Hasher) *CountingHasher {
	return &CountingHasher{inner: inner}
}

// HashFile records path and delegates to the wrapped Hasher.
func (h *CountingHasher) HashFile(path string) (string, error) {
	h.mu.Lock()
	h.paths = append(h.paths, path)
	h.mu.Unlock()
	return h.inner.HashFile(path)
}

// Calls returns how many digests were requested.
func (h *CountingHasher) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.paths)
}

// Paths returns a copy of the hashed paths in request order.
func (h *CountingHasher) Paths() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.paths...)
}

// FakeHasher implements Hasher with predetermined digests for testing.
// Configure it with SetHash/SetError before use; lookups are read-only.
type FakeHasher struct {
	hashes map[string]string
	errs   map[string]error
}

// NewFakeHasher creates a new FakeHasher.
func NewFakeHasher() *FakeHasher {
	return &FakeHasher{
		hashes: make(map[string]string),
		errs:   make(map[string]error),
	}
}

// SetHash sets the digest for a specific path.
func (h *FakeHasher) SetHash(path, digest string) {
	h.hashes[path] = digest
}

// SetError makes HashFile fail for a specific path.
func (h *FakeHasher) SetError(path string, err error) {
	h.errs[path] = err
}

// HashFile returns the predetermined digest for the given path.
func (h *FakeHasher) HashFile(path string) (string, error) {
	if err, ok := h.errs[path]; ok {
		return "", err
	}
	if digest, ok := h.hashes[path]; ok {
		return digest, nil
	}
	return "fakehash", nil
}
