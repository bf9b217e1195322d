package rules

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// DefaultMatchTimeout bounds a single regex evaluation. User regexes run
// on a backtracking engine, so a pathological pattern must not hang a run.
const DefaultMatchTimeout = time.Second

// Kind is the closed set of name-pattern kinds.
type Kind int

const (
	// KindExact matches the whole filename literally.
	KindExact Kind = iota
	// KindWildcard matches the whole filename against a glob.
	KindWildcard
	// KindRegex searches the filename for a regex match anywhere.
	KindRegex
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindExact:
		return "exact"
	case KindWildcard:
		return "wildcard"
	case KindRegex:
		return "regex"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// CompileOptions controls how rule text is compiled.
type CompileOptions struct {
	// Fold makes Exact and Wildcard patterns case-insensitive
	Fold bool

	// MatchTimeout bounds each regex evaluation (DefaultMatchTimeout if zero)
	MatchTimeout time.Duration
}

func (o CompileOptions) timeout() time.Duration {
	if o.MatchTimeout <= 0 {
		return DefaultMatchTimeout
	}
	return o.MatchTimeout
}

// PatternRule is one compiled name-pattern. It only ever sees a bare
// filename, never a path.
type PatternRule struct {
	source string
	kind   Kind
	fold   bool
	glob   *regexp.Regexp
	regex  *regexp2.Regexp
}

// ParsePattern compiles one remove / remove_hash entry.
func ParsePattern(raw string, opts CompileOptions) (PatternRule, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return PatternRule{}, fmt.Errorf("empty pattern")
	}

	rule := PatternRule{source: text, fold: opts.Fold}

	switch {
	case strings.HasPrefix(text, "/"):
		body := text[1:]
		if body == "" {
			return PatternRule{}, fmt.Errorf("empty regex in pattern %q", text)
		}
		re, err := compileRegex(body, opts)
		if err != nil {
			return PatternRule{}, err
		}
		rule.kind = KindRegex
		rule.regex = re

	case strings.ContainsAny(text, "*?"):
		flags := "(?s)"
		if opts.Fold {
			flags = "(?is)"
		}
		re, err := regexp.Compile(flags + "^" + globToRegex(text) + "$")
		if err != nil {
			return PatternRule{}, fmt.Errorf("invalid wildcard %q: %w", text, err)
		}
		rule.kind = KindWildcard
		rule.glob = re

	default:
		rule.kind = KindExact
	}

	return rule, nil
}

func compileRegex(body string, opts CompileOptions) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(body, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("invalid regex %q: %w", body, err)
	}
	re.MatchTimeout = opts.timeout()
	return re, nil
}

// Kind returns the pattern kind.
func (r PatternRule) Kind() Kind {
	return r.kind
}

// Source returns the pattern as written in the rule file.
func (r PatternRule) Source() string {
	return r.source
}

// String implements fmt.Stringer.
func (r PatternRule) String() string {
	return r.source
}

// Match reports whether the filename matches. A regex evaluation that
// times out returns false with the error.
func (r PatternRule) Match(name string) (bool, error) {
	switch r.kind {
	case KindExact:
		if r.fold {
			return strings.EqualFold(name, r.source), nil
		}
		return name == r.source, nil
	case KindWildcard:
		return r.glob.MatchString(name), nil
	case KindRegex:
		matched, err := r.regex.MatchString(name)
		if err != nil {
			return false, fmt.Errorf("pattern %q on %q: %w", r.source, name, err)
		}
		return matched, nil
	default:
		return false, nil
	}
}

// HashRule pairs a name-pattern with the content digests that make a
// matching file deletable.
type HashRule struct {
	Pattern PatternRule
	digests map[string]struct{}
}

// NewHashRule builds a HashRule. Digests are normalized to lowercase.
func NewHashRule(pattern PatternRule, digests []string) HashRule {
	set := make(map[string]struct{}, len(digests))
	for _, d := range digests {
		set[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	return HashRule{Pattern: pattern, digests: set}
}

// Contains reports whether digest is listed, ignoring case.
func (h HashRule) Contains(digest string) bool {
	_, ok := h.digests[strings.ToLower(digest)]
	return ok
}

// DigestCount returns the number of distinct digests.
func (h HashRule) DigestCount() int {
	return len(h.digests)
}

// RenameRule deletes every match of a regex from a filename.
type RenameRule struct {
	source string
	regex  *regexp2.Regexp
}

// ParseRenameRule compiles one cleanup entry. There is no `/` prefix and no
// literal or wildcard form: the whole entry is a regex body.
func ParseRenameRule(raw string, opts CompileOptions) (RenameRule, error) {
	body := strings.TrimSpace(raw)
	if body == "" {
		return RenameRule{}, fmt.Errorf("empty cleanup pattern")
	}
	re, err := compileRegex(body, opts)
	if err != nil {
		return RenameRule{}, err
	}
	return RenameRule{source: body, regex: re}, nil
}

// Source returns the regex as written in the rule file.
func (r RenameRule) Source() string {
	return r.source
}

// Apply removes every non-overlapping match from name.
func (r RenameRule) Apply(name string) (string, error) {
	return r.regex.Replace(name, "", -1, -1)
}
