package rules

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danieljhkim/tidydl/internal/fsops"
	"github.com/danieljhkim/tidydl/internal/logging"
)

// Top-level keys understood in a rule file. Anything else is ignored.
const (
	keyRemove     = "remove"
	keyRemoveHash = "remove_hash"
	keyCleanup    = "cleanup"
)

// LoadFile reads and compiles the rule file at path.
func LoadFile(fsys fsops.FS, path string, opts CompileOptions) (*RuleSet, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, &ConfigParseError{Path: path, Reason: "cannot read rule file", Err: err}
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, &ConfigParseError{Path: path, Reason: "cannot read rule file", Err: err}
	}

	return Parse(data, path, opts)
}

// Parse compiles rule file content. source is used in errors and recorded
// on the returned RuleSet.
func Parse(data []byte, source string, opts CompileOptions) (*RuleSet, error) {
	logger := logging.GetLogger("rules")

	p := &parser{source: source, opts: opts}
	empty := NewRuleSet(source, nil, nil, nil)

	if len(bytes.TrimSpace(data)) == 0 {
		logger.Debug().Str("path", source).Msg("Rule file is empty")
		return empty, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigParseError{Path: source, Reason: "malformed YAML", Err: err}
	}

	root := resolveAlias(&doc)
	if root.Kind == 0 {
		// comments only
		return empty, nil
	}
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return empty, nil
		}
		root = resolveAlias(root.Content[0])
	}
	if isNull(root) {
		return empty, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, p.errorf(root, "top level must be a mapping")
	}

	var (
		remove []PatternRule
		hashes []HashRule
		rename []RenameRule
	)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i]
		value := resolveAlias(root.Content[i+1])

		switch key.Value {
		case keyRemove:
			entries, err := p.entries(key.Value, value)
			if err != nil {
				return nil, err
			}
			for _, entry := range entries {
				rule, err := ParsePattern(entry.text, opts)
				if err != nil {
					return nil, p.wrap(entry.line, "invalid remove pattern", err)
				}
				remove = append(remove, rule)
			}

		case keyRemoveHash:
			hashRules, err := p.hashRules(value)
			if err != nil {
				return nil, err
			}
			for _, rule := range hashRules {
				logger.Trace().
					Str("pattern", rule.Pattern.Source()).
					Str("kind", rule.Pattern.Kind().String()).
					Int("digests", rule.DigestCount()).
					Msg("Compiled remove_hash rule")
			}
			hashes = append(hashes, hashRules...)

		case keyCleanup:
			entries, err := p.entries(key.Value, value)
			if err != nil {
				return nil, err
			}
			for _, entry := range entries {
				rule, err := ParseRenameRule(entry.text, opts)
				if err != nil {
					return nil, p.wrap(entry.line, "invalid cleanup pattern", err)
				}
				rename = append(rename, rule)
			}

		default:
			logger.Debug().Str("path", source).Str("key", key.Value).Int("line", key.Line).Msg("Ignoring unknown key")
		}
	}

	rs := NewRuleSet(source, remove, hashes, rename)
	removeCount, hashCount, renameCount := rs.Counts()
	logger.Debug().
		Str("path", source).
		Int("remove", removeCount).
		Int("remove_hash", hashCount).
		Int("cleanup", renameCount).
		Msg("Rule file compiled")

	return rs, nil
}

type parser struct {
	source string
	opts   CompileOptions
}

type entry struct {
	text string
	line int
}

func (p *parser) errorf(node *yaml.Node, format string, args ...any) error {
	return &ConfigParseError{Path: p.source, Line: node.Line, Reason: fmt.Sprintf(format, args...)}
}

func (p *parser) wrap(line int, reason string, err error) error {
	return &ConfigParseError{Path: p.source, Line: line, Reason: reason, Err: err}
}

// entries flattens a block string or a sequence of strings into trimmed,
// non-blank, non-comment lines.
func (p *parser) entries(key string, node *yaml.Node) ([]entry, error) {
	switch {
	case isNull(node):
		return nil, nil
	case node.Kind == yaml.ScalarNode:
		return splitBlock(node), nil
	case node.Kind == yaml.SequenceNode:
		var out []entry
		for _, item := range node.Content {
			item = resolveAlias(item)
			if item.Kind != yaml.ScalarNode || isNull(item) {
				return nil, p.errorf(item, "%s entries must be strings", key)
			}
			out = append(out, splitBlock(item)...)
		}
		return out, nil
	default:
		return nil, p.errorf(node, "%s must be a string or a list of strings", key)
	}
}

func (p *parser) hashRules(node *yaml.Node) ([]HashRule, error) {
	if isNull(node) {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, p.errorf(node, "remove_hash must be a mapping of name-pattern to digests")
	}

	var out []HashRule
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := resolveAlias(node.Content[i])
		value := resolveAlias(node.Content[i+1])

		if key.Kind != yaml.ScalarNode {
			return nil, p.errorf(key, "remove_hash keys must be name-patterns")
		}
		pattern, err := ParsePattern(key.Value, p.opts)
		if err != nil {
			return nil, p.wrap(key.Line, "invalid remove_hash pattern", err)
		}

		digestEntries, err := p.entries("remove_hash digest", value)
		if err != nil {
			return nil, err
		}

		digests := make([]string, 0, len(digestEntries))
		for _, d := range digestEntries {
			if !isHexDigest(d.text) {
				return nil, &ConfigParseError{
					Path:   p.source,
					Line:   d.line,
					Reason: fmt.Sprintf("digest %q for %q is not hexadecimal", d.text, key.Value),
				}
			}
			digests = append(digests, d.text)
		}

		out = append(out, NewHashRule(pattern, digests))
	}
	return out, nil
}

// splitBlock splits a scalar into lines. Line numbers are best effort:
// exact for plain scalars, offset by one for block literals.
func splitBlock(node *yaml.Node) []entry {
	base := node.Line
	if node.Style == yaml.LiteralStyle || node.Style == yaml.FoldedStyle {
		base++
	}

	var out []entry
	for n, line := range strings.Split(node.Value, "\n") {
		text := strings.TrimSpace(line)
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		out = append(out, entry{text: text, line: base + n})
	}
	return out
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

func isNull(node *yaml.Node) bool {
	return node == nil || (node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null")
}

func isHexDigest(s string) bool {
	if s == "" || len(s)%2 != 0 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
