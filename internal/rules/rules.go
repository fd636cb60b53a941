// Package rules loads the ordered set of structural PII patterns used by the
// pattern detector. A RuleSet is immutable once built and may be shared by
// any number of concurrent scans.
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/governable/piiscan/internal/validate"
	"gopkg.in/yaml.v3"
)

//go:embed base_patterns.yml
var basePatterns []byte

// Rule is one compiled structural pattern.
type Rule struct {
	Label           string
	Pattern         *regexp.Regexp
	Exemplar        string
	CaseInsensitive bool
	// Score, when set, replaces the exemplar similarity heuristic.
	Score     *float64
	Validator string
	validate  validate.Func
}

// Valid reports whether candidate passes the rule's validator, if any.
func (r *Rule) Valid(candidate string) bool {
	if r.validate == nil {
		return true
	}
	return r.validate(candidate)
}

// Spec is the uncompiled form of a rule as written in a rule file.
type Spec struct {
	Label           string   `yaml:"-"`
	Pattern         string   `yaml:"pattern"`
	Exemplar        string   `yaml:"exemplar,omitempty"`
	CaseInsensitive bool     `yaml:"case_insensitive,omitempty"`
	Score           *float64 `yaml:"score,omitempty"`
	Validate        string   `yaml:"validate,omitempty"`
}

// RuleSet is an ordered, read-only collection of rules.
type RuleSet struct {
	source string
	rules  []*Rule
}

// ConfigError reports a rule source that cannot be used.
type ConfigError struct {
	Source string
	Label  string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("rules %s: rule %q: %v", e.Source, e.Label, e.Err)
	}
	return fmt.Sprintf("rules %s: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Empty returns a rule set with no rules. It yields no pattern findings.
func Empty() *RuleSet { return &RuleSet{source: "empty"} }

// Default returns the embedded base rule set.
func Default() *RuleSet {
	rs, err := Parse("builtin", basePatterns)
	if err != nil {
		panic(err)
	}
	return rs
}

// Load reads a YAML or JSON rule file mapping label to pattern.
func Load(path string) (*RuleSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Source: path, Err: err}
	}
	return Parse(path, b)
}

// Parse builds a rule set from rule-file content. Each entry is either
// `LABEL: pattern` or `LABEL: {pattern, exemplar, case_insensitive, score,
// validate}`; document order is kept.
func Parse(source string, data []byte) (*RuleSet, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ConfigError{Source: source, Err: err}
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return &RuleSet{source: source}, nil
	}
	doc := root.Content[0]
	if doc.Kind == yaml.ScalarNode && doc.Tag == "!!null" {
		return &RuleSet{source: source}, nil
	}
	if doc.Kind != yaml.MappingNode {
		return nil, &ConfigError{Source: source, Err: fmt.Errorf("line %d: expected a mapping of label to pattern", doc.Line)}
	}
	specs := make([]Spec, 0, len(doc.Content)/2)
	for i := 0; i+1 < len(doc.Content); i += 2 {
		k, v := doc.Content[i], doc.Content[i+1]
		spec := Spec{Label: k.Value}
		switch v.Kind {
		case yaml.ScalarNode:
			spec.Pattern = v.Value
		case yaml.MappingNode:
			if err := v.Decode(&spec); err != nil {
				return nil, &ConfigError{Source: source, Label: k.Value, Err: err}
			}
			spec.Label = k.Value
		default:
			return nil, &ConfigError{Source: source, Label: k.Value, Err: fmt.Errorf("line %d: expected pattern string or mapping", v.Line)}
		}
		specs = append(specs, spec)
	}
	return build(source, specs)
}

// FromMap builds a rule set from label to pattern. Map iteration order is
// random, so rules are ordered by label.
func FromMap(patterns map[string]string) (*RuleSet, error) {
	labels := make([]string, 0, len(patterns))
	for l := range patterns {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	specs := make([]Spec, 0, len(labels))
	for _, l := range labels {
		specs = append(specs, Spec{Label: l, Pattern: patterns[l]})
	}
	return build("memory", specs)
}

// FromSpecs builds a rule set from specs in the given order.
func FromSpecs(specs []Spec) (*RuleSet, error) {
	return build("memory", specs)
}

func build(source string, specs []Spec) (*RuleSet, error) {
	rs := &RuleSet{source: source, rules: make([]*Rule, 0, len(specs))}
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		r, err := compile(s)
		if err != nil {
			return nil, &ConfigError{Source: source, Label: s.Label, Err: err}
		}
		if seen[r.Label] {
			return nil, &ConfigError{Source: source, Label: s.Label, Err: errors.New("duplicate label")}
		}
		seen[r.Label] = true
		rs.rules = append(rs.rules, r)
	}
	return rs, nil
}

// compile turns a spec into a rule. Go's RE2 engine matches in linear time;
// patterns that would need backtracking (look-around, back-references) fail
// here instead of at scan time.
func compile(s Spec) (*Rule, error) {
	if s.Label == "" {
		return nil, errors.New("empty label")
	}
	if s.Pattern == "" {
		return nil, errors.New("empty pattern")
	}
	expr := s.Pattern
	if s.CaseInsensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile pattern: %w", err)
	}
	if s.Score != nil && (*s.Score < 0 || *s.Score > 1) {
		return nil, fmt.Errorf("score %v outside [0,1]", *s.Score)
	}
	r := &Rule{
		Label:           s.Label,
		Pattern:         re,
		Exemplar:        s.Exemplar,
		CaseInsensitive: s.CaseInsensitive,
		Score:           s.Score,
		Validator:       s.Validate,
	}
	if s.Validate != "" {
		fn, ok := validate.Lookup(s.Validate)
		if !ok {
			return nil, fmt.Errorf("unknown validator %q (known: %v)", s.Validate, validate.Names())
		}
		r.validate = fn
	}
	return r, nil
}

// Rules returns the rules in order. Callers must not modify them.
func (rs *RuleSet) Rules() []*Rule {
	if rs == nil {
		return nil
	}
	return rs.rules
}

// Labels returns rule labels in order.
func (rs *RuleSet) Labels() []string {
	out := make([]string, 0, rs.Len())
	for _, r := range rs.Rules() {
		out = append(out, r.Label)
	}
	return out
}

// Len is the number of rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// Source names where the rules came from.
func (rs *RuleSet) Source() string {
	if rs == nil {
		return ""
	}
	return rs.source
}
