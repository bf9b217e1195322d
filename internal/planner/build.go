package planner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/danieljhkim/tidydl/internal/fsops"
	"github.com/danieljhkim/tidydl/internal/hash"
	"github.com/danieljhkim/tidydl/internal/logging"
	"github.com/danieljhkim/tidydl/internal/rules"
)

// DefaultSkipMarker is the directory name suffix of an in-progress download.
const DefaultSkipMarker = ".tmp"

// Options toggles each rule category and the traversal behavior.
type Options struct {
	// Delete enables remove rules
	Delete bool

	// Hash enables remove_hash rules
	Hash bool

	// Rename enables cleanup rules
	Rename bool

	// SkipMarked leaves directories named with SkipMarker untouched
	SkipMarked bool

	// PruneEmpty removes directories left without entries
	PruneEmpty bool

	// SkipMarker is the directory name suffix honored by SkipMarked
	SkipMarker string

	// Workers bounds concurrent digest computations within a directory
	Workers int
}

// DefaultOptions enables every category.
func DefaultOptions() Options {
	return Options{
		Delete:     true,
		Hash:       true,
		Rename:     true,
		SkipMarked: true,
		PruneEmpty: true,
		SkipMarker: DefaultSkipMarker,
		Workers:    4,
	}
}

// Planner walks a tree and decides what happens to every entry.
type Planner struct {
	fs      fsops.FS
	hasher  hash.Hasher
	rules   *rules.RuleSet
	renamer *Renamer
	opts    Options
	logger  zerolog.Logger
}

// New creates a Planner. A nil rule set behaves like rules.Empty().
func New(fs fsops.FS, hasher hash.Hasher, rs *rules.RuleSet, opts Options) *Planner {
	if rs == nil {
		rs = rules.Empty()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Planner{
		fs:      fs,
		hasher:  hasher,
		rules:   rs,
		renamer: NewRenamer(rs.RenameRules()),
		opts:    opts,
		logger:  logging.GetLogger("planner"),
	}
}

// entryState is the in-progress decision for one directory entry.
type entryState struct {
	info      os.FileInfo
	op        Operation
	hashRules []rules.HashRule
	descend   bool
	digest    string
	hashErr   error
}

func (s *entryState) removed() bool {
	return s.op.Kind.IsDelete()
}

// renameCandidate is true for files kept without a forced reason.
func (s *entryState) renameCandidate() bool {
	return s.op.Kind == KindKeep && !s.info.IsDir() && s.op.Reason == ""
}

// Build plans the cleanup of root. root itself is never deleted or renamed.
// Only a root that cannot be listed is an error; problems below it become
// plan warnings.
func (p *Planner) Build(ctx context.Context, root string) (*Plan, error) {
	info, err := p.fs.Lstat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	plan := NewPlan(root)

	if p.isMarked(filepath.Base(root)) {
		p.logger.Info().Str("path", root).Msg("Target is skip-marked, leaving its entries untouched")
		return plan, p.keepAll(plan, root)
	}

	if _, _, err := p.planDir(ctx, plan, root, true); err != nil {
		return nil, err
	}

	p.logger.Debug().
		Str("root", root).
		Int("operations", len(plan.Operations)).
		Int("actions", len(plan.Actions())).
		Int("warnings", len(plan.Warnings)).
		Msg("Plan built")

	return plan, nil
}

// keepAll records every direct entry of a marked root as Keep.
func (p *Planner) keepAll(plan *Plan, root string) error {
	infos, err := p.fs.ReadDir(root)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", root, err)
	}
	for _, info := range infos {
		path := filepath.Join(root, info.Name())
		plan.AddOperation(Operation{
			Kind:    KindKeep,
			Path:    path,
			RelPath: p.rel(plan, path),
			IsDir:   info.IsDir(),
			Reason:  "inside skip-marked directory",
		})
	}
	return nil
}

// planDir plans one directory and returns how many of its entries remain
// after the plan, and whether the listing could be read at all. Errors are
// returned only for the root and for cancellation.
func (p *Planner) planDir(ctx context.Context, plan *Plan, dir string, isRoot bool) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	infos, err := p.fs.ReadDir(dir)
	if err != nil {
		if isRoot {
			return 0, false, fmt.Errorf("failed to read %s: %w", dir, err)
		}
		p.logger.Warn().Err(err).Str("path", dir).Msg("Cannot read directory, leaving it as is")
		plan.AddWarning(dir, "cannot read directory: %v", err)
		return 0, false, nil
	}

	states := make([]*entryState, len(infos))
	for i, info := range infos {
		states[i] = p.classify(plan, dir, info)
	}

	if err := p.resolveHashes(ctx, states); err != nil {
		return 0, false, err
	}
	p.finalizeHashes(plan, states)

	// Deletions and subtrees first, renames last, so a rename may take the
	// name of a sibling that is deleted or pruned earlier in the same pass.
	renaming := p.opts.Rename && p.renamer.Len() > 0
	remaining := 0
	gone := make(map[string]bool)
	var candidates []*entryState
	for _, st := range states {
		if renaming && st.renameCandidate() {
			candidates = append(candidates, st)
			remaining++
			continue
		}
		index := len(plan.Operations)
		plan.AddOperation(st.op)

		if st.removed() {
			gone[st.info.Name()] = true
			continue
		}
		if !st.descend {
			remaining++
			continue
		}

		childRemaining, readable, err := p.planDir(ctx, plan, st.op.Path, false)
		if err != nil {
			return 0, false, err
		}
		if p.opts.PruneEmpty && readable && childRemaining == 0 {
			// The directory's Keep becomes a Prune placed after its children.
			plan.Operations = append(plan.Operations[:index], plan.Operations[index+1:]...)
			plan.AddOperation(Operation{
				Kind:    KindPrune,
				Path:    st.op.Path,
				RelPath: st.op.RelPath,
				IsDir:   true,
				Reason:  "empty directory",
			})
			p.logger.Debug().Str("path", st.op.Path).Msg("Planned prune of empty directory")
			gone[st.info.Name()] = true
			continue
		}
		remaining++
	}

	if len(candidates) > 0 {
		p.planRenames(plan, states, candidates, gone)
		for _, st := range candidates {
			plan.AddOperation(st.op)
			if st.removed() {
				remaining--
			}
		}
	}

	return remaining, true, nil
}

// classify applies the name-only decisions: skip, remove, hash candidacy.
func (p *Planner) classify(plan *Plan, dir string, info os.FileInfo) *entryState {
	path := filepath.Join(dir, info.Name())
	st := &entryState{
		info: info,
		op: Operation{
			Kind:    KindKeep,
			Path:    path,
			RelPath: p.rel(plan, path),
			IsDir:   info.IsDir(),
		},
	}

	if info.IsDir() && p.isMarked(info.Name()) {
		st.op.Reason = "skip-marked"
		p.logger.Debug().Str("path", path).Msg("Skipping marked directory")
		return st
	}

	if p.opts.Delete {
		rule, ok, err := p.rules.MatchDelete(info.Name())
		p.warnMatch(plan, path, err)
		if ok {
			st.op.Kind = KindDelete
			st.op.Rule = rule.Source()
			st.op.Size = p.sizeOf(path, info)
			p.logger.Debug().Str("path", path).Str("rule", rule.Source()).Str("kind", rule.Kind().String()).Msg("Planned delete")
			return st
		}
	}

	if info.IsDir() {
		st.descend = true
		return st
	}

	if p.opts.Hash {
		matched, err := p.rules.MatchHash(info.Name())
		p.warnMatch(plan, path, err)
		if len(matched) > 0 {
			if fsops.IsSymlink(info) {
				st.op.Reason = "symlink not hashed"
				p.logger.Debug().Str("path", path).Msg("Hash candidate is a symlink, keeping")
				return st
			}
			st.op.Kind = KindDeleteByHash
			st.op.PendingHashCheck = true
			st.hashRules = matched
		}
	}

	return st
}

// resolveHashes computes the digest of every pending candidate.
// Candidates are independent, so digests run concurrently up to Workers.
func (p *Planner) resolveHashes(ctx context.Context, states []*entryState) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	for _, st := range states {
		if !st.op.PendingHashCheck {
			continue
		}
		st := st
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			st.digest, st.hashErr = p.hasher.HashFile(st.op.Path)
			p.logger.Trace().Str("path", st.op.Path).Str("digest", st.digest).Msg("Computed digest")
			return nil
		})
	}

	return g.Wait()
}

// finalizeHashes settles every pending candidate into DeleteByHash or Keep.
func (p *Planner) finalizeHashes(plan *Plan, states []*entryState) {
	for _, st := range states {
		if !st.op.PendingHashCheck {
			continue
		}
		st.op.PendingHashCheck = false

		if st.hashErr != nil {
			p.logger.Warn().Err(st.hashErr).Str("path", st.op.Path).Msg("Failed to hash file, keeping it")
			plan.AddWarning(st.op.Path, "failed to hash: %v", st.hashErr)
			st.op.Kind = KindKeep
			st.op.Reason = "hash failed"
			continue
		}

		for _, rule := range st.hashRules {
			if rule.Contains(st.digest) {
				st.op.Digest = strings.ToLower(st.digest)
				st.op.Rule = rule.Pattern.Source()
				st.op.Size = st.info.Size()
				p.logger.Debug().Str("path", st.op.Path).Str("digest", st.op.Digest).Msg("Planned delete by hash")
				break
			}
		}
		if st.op.Digest == "" {
			st.op.Kind = KindKeep
			p.logger.Debug().Str("path", st.op.Path).Str("digest", st.digest).Msg("Digest not listed, falling through to rename")
		}
	}
}

// planRenames runs the Renamer over each candidate in entry order. The
// taken-name set is every entry that survives the plan plus each name a
// previous rename produced. A cleaned name that a remove or remove_hash
// rule would catch is deleted now rather than renamed, so the next run
// finds nothing left to do.
func (p *Planner) planRenames(plan *Plan, states, candidates []*entryState, gone map[string]bool) {
	survivors := make([]string, 0, len(states))
	for _, st := range states {
		if !gone[st.info.Name()] {
			survivors = append(survivors, st.info.Name())
		}
	}
	tracker := NewNameTracker(survivors)

	for _, st := range candidates {
		name := st.info.Name()
		newName, applied, err := p.renamer.Apply(name)
		if err != nil {
			p.logger.Warn().Err(err).Str("path", st.op.Path).Msg("Cleanup rule failed, keeping name")
			plan.AddWarning(st.op.Path, "%v", err)
			continue
		}
		if newName == name {
			continue
		}

		if newName != "" && p.deleteCleaned(plan, st, newName) {
			continue
		}
		if st.op.Reason != "" {
			continue
		}

		if err := tracker.Claim(name, newName); err != nil {
			p.logger.Warn().Str("path", st.op.Path).Str("new_name", newName).Msg(err.Error())
			plan.AddWarning(st.op.Path, "%v", err)
			continue
		}

		st.op.Kind = KindRename
		st.op.NewName = newName
		st.op.Rule = strings.Join(applied, ", ")
		p.logger.Debug().Str("path", st.op.Path).Str("new_name", newName).Msg("Planned rename")
	}
}

// deleteCleaned applies the remove and remove_hash rules to the cleaned
// name of a rename candidate and reports whether the file is now deleted.
// A digest that cannot be computed keeps the file under its current name.
func (p *Planner) deleteCleaned(plan *Plan, st *entryState, newName string) bool {
	if p.opts.Delete {
		rule, ok, err := p.rules.MatchDelete(newName)
		p.warnMatch(plan, st.op.Path, err)
		if ok {
			st.op.Kind = KindDelete
			st.op.Rule = rule.Source()
			st.op.Size = st.info.Size()
			st.op.Reason = fmt.Sprintf("cleans to %q", newName)
			p.logger.Debug().Str("path", st.op.Path).Str("new_name", newName).Str("rule", rule.Source()).
				Str("kind", rule.Kind().String()).Msg("Cleaned name is removed, planned delete")
			return true
		}
	}

	if !p.opts.Hash || fsops.IsSymlink(st.info) {
		return false
	}
	matched, err := p.rules.MatchHash(newName)
	p.warnMatch(plan, st.op.Path, err)
	if len(matched) == 0 {
		return false
	}

	digest := st.digest
	if digest == "" {
		digest, err = p.hasher.HashFile(st.op.Path)
		if err != nil {
			p.logger.Warn().Err(err).Str("path", st.op.Path).Msg("Failed to hash file, keeping it")
			plan.AddWarning(st.op.Path, "failed to hash: %v", err)
			st.op.Reason = "hash failed"
			return false
		}
		st.digest = digest
	}

	for _, rule := range matched {
		if rule.Contains(digest) {
			st.op.Kind = KindDeleteByHash
			st.op.Digest = strings.ToLower(digest)
			st.op.Rule = rule.Pattern.Source()
			st.op.Size = st.info.Size()
			st.op.Reason = fmt.Sprintf("cleans to %q", newName)
			p.logger.Debug().Str("path", st.op.Path).Str("new_name", newName).Str("digest", st.op.Digest).
				Msg("Cleaned name matches a listed digest, planned delete by hash")
			return true
		}
	}
	return false
}

// warnMatch records a rule evaluation failure as a plan warning.
func (p *Planner) warnMatch(plan *Plan, path string, err error) {
	if err == nil {
		return
	}
	p.logger.Warn().Err(err).Str("path", path).Msg("Rule evaluation failed, treating as no match")
	plan.AddWarning(path, "rule evaluation failed: %v", err)
}

// sizeOf returns the bytes a deletion reclaims. A failure only costs accuracy.
func (p *Planner) sizeOf(path string, info os.FileInfo) int64 {
	if !info.IsDir() {
		return info.Size()
	}
	size, err := fsops.DiskUsage(p.fs, path)
	if err != nil {
		p.logger.Debug().Err(err).Str("path", path).Msg("Failed to measure directory size")
	}
	return size
}

func (p *Planner) isMarked(name string) bool {
	return p.opts.SkipMarked && p.opts.SkipMarker != "" && strings.HasSuffix(name, p.opts.SkipMarker)
}

func (p *Planner) rel(plan *Plan, path string) string {
	rel, err := filepath.Rel(plan.Root, path)
	if err != nil {
		return path
	}
	return rel
}
