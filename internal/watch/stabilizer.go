package watch

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/danieljhkim/tidydl/internal/clock"
)

// Stabilizer tracks directories that are still being written to and reports
// them once their activity has gone quiet.
//
// A directory is due when nothing under it changed for settle, or when
// maxWait has passed since it was first seen, whichever comes first.
type Stabilizer struct {
	mu      sync.Mutex
	clock   clock.Clock
	settle  time.Duration
	maxWait time.Duration
	pending map[string]*activity
}

type activity struct {
	firstSeen time.Time
	lastSeen  time.Time
}

// NewStabilizer creates a Stabilizer. A maxWait shorter than settle is
// raised to settle.
func NewStabilizer(clk clock.Clock, settle, maxWait time.Duration) *Stabilizer {
	if maxWait < settle {
		maxWait = settle
	}
	return &Stabilizer{
		clock:   clk,
		settle:  settle,
		maxWait: maxWait,
		pending: make(map[string]*activity),
	}
}

// Touch registers path, or resets its quiet period if already registered.
func (s *Stabilizer) Touch(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if a, ok := s.pending[path]; ok {
		a.lastSeen = now
		return
	}
	s.pending[path] = &activity{firstSeen: now, lastSeen: now}
}

// Owner returns the registered directory that contains path, if any.
func (s *Stabilizer) Owner(path string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for dir := range s.pending {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return dir, true
		}
	}
	return "", false
}

// Forget drops path without reporting it.
func (s *Stabilizer) Forget(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, path)
}

// Due removes and returns every directory that is ready, sorted.
func (s *Stabilizer) Due() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	var due []string
	for path, a := range s.pending {
		if now.Sub(a.lastSeen) >= s.settle || now.Sub(a.firstSeen) >= s.maxWait {
			due = append(due, path)
			delete(s.pending, path)
		}
	}
	sort.Strings(due)
	return due
}

// Pending returns the number of directories still settling.
func (s *Stabilizer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
