package rules

import "errors"

// RuleSet is the compiled, read-only rule collection for one run.
// The zero value and Empty() match nothing.
type RuleSet struct {
	source string
	remove []PatternRule
	hash   []HashRule
	rename []RenameRule
}

// Empty returns a RuleSet with no rules, used when no rule file is found.
func Empty() *RuleSet {
	return &RuleSet{}
}

// NewRuleSet assembles a RuleSet from already compiled rules.
func NewRuleSet(source string, remove []PatternRule, hash []HashRule, rename []RenameRule) *RuleSet {
	return &RuleSet{
		source: source,
		remove: append([]PatternRule(nil), remove...),
		hash:   append([]HashRule(nil), hash...),
		rename: append([]RenameRule(nil), rename...),
	}
}

// Source returns the rule file the set was loaded from, or "" if none.
func (rs *RuleSet) Source() string {
	return rs.source
}

// IsEmpty reports whether the set has no rules at all.
func (rs *RuleSet) IsEmpty() bool {
	return len(rs.remove) == 0 && len(rs.hash) == 0 && len(rs.rename) == 0
}

// Counts returns the number of remove, remove_hash and cleanup rules.
func (rs *RuleSet) Counts() (remove, hash, rename int) {
	return len(rs.remove), len(rs.hash), len(rs.rename)
}

// MatchDelete returns the first remove pattern matching name. Patterns whose
// evaluation fails count as no match; their errors are joined into err.
func (rs *RuleSet) MatchDelete(name string) (PatternRule, bool, error) {
	var errs []error
	for _, rule := range rs.remove {
		ok, err := rule.Match(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			return rule, true, errors.Join(errs...)
		}
	}
	return PatternRule{}, false, errors.Join(errs...)
}

// MatchHash returns every remove_hash rule whose name-pattern matches name.
// It never touches file content. Evaluation errors are handled as in
// MatchDelete.
func (rs *RuleSet) MatchHash(name string) ([]HashRule, error) {
	var matched []HashRule
	var errs []error
	for _, rule := range rs.hash {
		ok, err := rule.Pattern.Match(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			matched = append(matched, rule)
		}
	}
	return matched, errors.Join(errs...)
}

// RenameRules returns the cleanup rules in file order.
func (rs *RuleSet) RenameRules() []RenameRule {
	return rs.rename
}
