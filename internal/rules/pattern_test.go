package rules

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPattern(t *testing.T, raw string, opts CompileOptions) PatternRule {
	t.Helper()
	rule, err := ParsePattern(raw, opts)
	require.NoError(t, err)
	return rule
}

func matches(t *testing.T, rule PatternRule, name string) bool {
	t.Helper()
	ok, err := rule.Match(name)
	require.NoError(t, err)
	return ok
}

func TestParsePattern_Kinds(t *testing.T) {
	tests := []struct {
		raw  string
		want Kind
	}{
		{raw: "example_filename.ext", want: KindExact},
		{raw: "wildcard*", want: KindWildcard},
		{raw: "file?.txt", want: KindWildcard},
		{raw: "/file1|file2", want: KindRegex},
		{raw: "  Thumbs.db  ", want: KindExact},
		{raw: "[abc].txt", want: KindExact},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			rule := mustPattern(t, tt.raw, CompileOptions{})
			assert.Equal(t, tt.want, rule.Kind())
		})
	}
}

func TestParsePattern_Errors(t *testing.T) {
	for _, raw := range []string{"", "   ", "/", "/(unclosed"} {
		_, err := ParsePattern(raw, CompileOptions{})
		assert.Error(t, err, "pattern %q", raw)
	}
}

func TestPatternRule_Exact(t *testing.T) {
	rule := mustPattern(t, "example_filename.ext", CompileOptions{})

	assert.True(t, matches(t, rule, "example_filename.ext"))
	assert.False(t, matches(t, rule, "example_filename.ext2"))
	assert.False(t, matches(t, rule, "Example_filename.ext"))

	folded := mustPattern(t, "example_filename.ext", CompileOptions{Fold: true})
	assert.True(t, matches(t, folded, "EXAMPLE_FILENAME.EXT"))
}

func TestPatternRule_Wildcard(t *testing.T) {
	rule := mustPattern(t, "wildcard*", CompileOptions{})

	assert.True(t, matches(t, rule, "wildcard"))
	assert.True(t, matches(t, rule, "wildcard123"))
	assert.False(t, matches(t, rule, "xwildcard"))
	assert.False(t, matches(t, rule, "Wildcard1"))

	folded := mustPattern(t, "wildcard*", CompileOptions{Fold: true})
	assert.True(t, matches(t, folded, "WildCard1"))
}

func TestPatternRule_WildcardSyntax(t *testing.T) {
	tests := []struct {
		pattern string
		match   []string
		noMatch []string
	}{
		{
			pattern: "*.url",
			match:   []string{"site.url", ".url", "a.b.url"},
			noMatch: []string{"site.url.txt", "siteurl"},
		},
		{
			pattern: "file?.txt",
			match:   []string{"file1.txt", "fileA.txt"},
			noMatch: []string{"file.txt", "file12.txt"},
		},
		{
			pattern: "*[0-9].nfo",
			match:   []string{"release1.nfo"},
			noMatch: []string{"release.nfo"},
		},
		{
			pattern: "*[!0-9].nfo",
			match:   []string{"release.nfo"},
			noMatch: []string{"release1.nfo"},
		},
		{
			pattern: "*.{txt,nfo}",
			match:   []string{"a.txt", "b.nfo"},
			noMatch: []string{"c.jpg", "a.{txt,nfo}"},
		},
		{
			pattern: `what\?*`,
			match:   []string{"what?", "what?now"},
			noMatch: []string{"whatnow"},
		},
		{
			pattern: "a.b*",
			match:   []string{"a.bc"},
			noMatch: []string{"axbc"},
		},
		{
			pattern: "*(1)*",
			match:   []string{"movie (1).mkv"},
			noMatch: []string{"movie 1.mkv"},
		},
		{
			pattern: "*[abc",
			match:   []string{"x[abc"},
			noMatch: []string{"xa"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			rule := mustPattern(t, tt.pattern, CompileOptions{})
			require.Equal(t, KindWildcard, rule.Kind())
			for _, name := range tt.match {
				assert.True(t, matches(t, rule, name), "%q should match %q", tt.pattern, name)
			}
			for _, name := range tt.noMatch {
				assert.False(t, matches(t, rule, name), "%q should not match %q", tt.pattern, name)
			}
		})
	}
}

func TestPatternRule_Regex(t *testing.T) {
	rule := mustPattern(t, "/file1|file2", CompileOptions{})

	assert.True(t, matches(t, rule, "file1"))
	assert.True(t, matches(t, rule, "my_file2.txt"))
	assert.False(t, matches(t, rule, "file3"))
	assert.Equal(t, "/file1|file2", rule.Source())
}

func TestPatternRule_RegexLookaround(t *testing.T) {
	rule := mustPattern(t, `/^(?!keep).*\.tmp$`, CompileOptions{})

	assert.True(t, matches(t, rule, "junk.tmp"))
	assert.False(t, matches(t, rule, "keep.tmp"))
}

func TestHashRule_ContainsIgnoresCase(t *testing.T) {
	rule := NewHashRule(mustPattern(t, "01.jpg", CompileOptions{}), []string{"D41D8CD98F00B204E9800998ECF8427E"})

	assert.True(t, rule.Contains("d41d8cd98f00b204e9800998ecf8427e"))
	assert.True(t, rule.Contains("D41D8cd98f00b204e9800998ecf8427e"))
	assert.False(t, rule.Contains("00000000000000000000000000000000"))
	assert.Equal(t, 1, rule.DigestCount())
}

func TestRenameRule_Apply(t *testing.T) {
	tests := []struct {
		regex string
		input string
		want  string
	}{
		{regex: `\.bak$`, input: "movie.mkv.bak", want: "movie.mkv"},
		{regex: `\.bak$`, input: "movie.mkv", want: "movie.mkv"},
		{regex: `\[www\.[^\]]+\]\s*`, input: "[www.site.org] Show.mkv", want: "Show.mkv"},
		{regex: `_`, input: "a_b_c", want: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			rule, err := ParseRenameRule(tt.regex, CompileOptions{})
			require.NoError(t, err)

			got, err := rule.Apply(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRuleSet_Empty(t *testing.T) {
	rs := Empty()

	assert.True(t, rs.IsEmpty())
	_, ok, err := rs.MatchDelete("anything")
	require.NoError(t, err)
	assert.False(t, ok)
	matched, err := rs.MatchHash("anything")
	require.NoError(t, err)
	assert.Empty(t, matched)
	assert.Empty(t, rs.RenameRules())
}

func TestRuleSet_MatchDeleteFirstWins(t *testing.T) {
	first := mustPattern(t, "*.txt", CompileOptions{})
	second := mustPattern(t, "notes.txt", CompileOptions{})
	rs := NewRuleSet("test", []PatternRule{first, second}, nil, nil)

	rule, ok, err := rs.MatchDelete("notes.txt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "*.txt", rule.Source())
}

func TestRuleSet_RegexTimeoutIsNoMatchWithError(t *testing.T) {
	opts := CompileOptions{MatchTimeout: time.Millisecond}
	slow := mustPattern(t, `/^(a+)+$`, opts)
	plain := mustPattern(t, "*.txt", opts)
	rs := NewRuleSet("test", []PatternRule{slow, plain}, []HashRule{NewHashRule(slow, nil)}, nil)

	name := strings.Repeat("a", 40) + "!"

	_, ok, err := rs.MatchDelete(name)
	assert.False(t, ok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `^(a+)+$`)

	matched, err := rs.MatchHash(name)
	assert.Empty(t, matched)
	assert.Error(t, err)

	// a later pattern still matches after an earlier one timed out
	rule, ok, err := rs.MatchDelete(strings.Repeat("a", 40) + "!.txt")
	assert.True(t, ok)
	assert.Error(t, err)
	assert.Equal(t, "*.txt", rule.Source())
}
