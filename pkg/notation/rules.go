package notation

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// RuleSpec is one rewrite rule as written in configuration.
// Replace may reference capture groups ($1, ${1}).
type RuleSpec struct {
	Name    string `yaml:"name" json:"name"`
	Pattern string `yaml:"pattern" json:"pattern"`
	Replace string `yaml:"replace" json:"replace"`
}

// compiledRule is a single named regex with its replacement template.
type compiledRule struct {
	name    string
	re      *regexp.Regexp
	replace string
}

// Rules is an ordered, read-only rewrite table. Each rule is applied once,
// left to right over non-overlapping matches, in table order.
type Rules struct {
	rules []compiledRule
}

// CompileRules builds a Rules table from specs. Names must be unique and a
// pattern must not match the empty string.
func CompileRules(specs []RuleSpec) (*Rules, error) {
	r := &Rules{rules: make([]compiledRule, 0, len(specs))}
	seen := make(map[string]bool, len(specs))
	for i, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("rule %d: missing name", i)
		}
		if seen[spec.Name] {
			return nil, fmt.Errorf("rule %q: duplicate name", spec.Name)
		}
		seen[spec.Name] = true

		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", spec.Name, err)
		}
		if re.MatchString("") {
			return nil, fmt.Errorf("rule %q: pattern matches the empty string", spec.Name)
		}
		r.rules = append(r.rules, compiledRule{name: spec.Name, re: re, replace: spec.Replace})
	}
	return r, nil
}

// Apply runs every rule once, in order.
func (r *Rules) Apply(s string) string {
	for _, rule := range r.rules {
		s = rule.re.ReplaceAllString(s, rule.replace)
	}
	return s
}

// Names returns the rule names in priority order.
func (r *Rules) Names() []string {
	names := make([]string, len(r.rules))
	for i, rule := range r.rules {
		names[i] = rule.name
	}
	return names
}

// Len returns the number of rules.
func (r *Rules) Len() int {
	return len(r.rules)
}

// DefaultRules returns the Guilty Gear notation table. Patterns see input that
// is already lowercased with single spaces. Specific rules come before the
// generic ones they would otherwise shadow.
func DefaultRules() []RuleSpec {
	return []RuleSpec{
		{Name: "motion-hcf", Pattern: `\bhcf[ .]?`, Replace: "41236"},
		{Name: "motion-hcb", Pattern: `\bhcb[ .]?`, Replace: "63214"},
		{Name: "motion-qcf", Pattern: `\bqcf[ .]?`, Replace: "236"},
		{Name: "motion-qcb", Pattern: `\bqcb[ .]?`, Replace: "214"},
		{Name: "motion-rdp", Pattern: `\brdp[ .]?`, Replace: "421"},
		{Name: "motion-dp", Pattern: `\bdp[ .]?`, Replace: "623"},
		{Name: "jump-prefix", Pattern: `\b(?:jump|aerial|air|j)[ .]*([1-9]*(?:hs|[pkshd]))\b`, Replace: "j$1"},
		{Name: "dash-prefix", Pattern: `\b(?:dashing|dash|running|run)[ .]*([1-9](?:hs|[pkshd]))\b`, Replace: "66$1"},
		{Name: "close-slash", Pattern: `\b(?:close|near|cl|c)[ .]*(?:slash|s)\b`, Replace: "cs"},
		{Name: "far-slash", Pattern: `\b(?:far|f)[ .]*(?:slash|s)\b`, Replace: "fs"},
		{Name: "crouch-qualifier", Pattern: `\b(?:crouching|crouch|cr|c)[ .]*(hs|[pkhd])\b`, Replace: "2$1"},
		{Name: "stand-qualifier", Pattern: `\b(?:standing|stand|st|s)[ .]*(hs|[pkhd])\b`, Replace: "5$1"},
		{Name: "heavy-slash", Pattern: `([0-9\]j~/ ]|^)hs\b`, Replace: "${1}h"},
		{Name: "motion-button-space", Pattern: `([0-9\]]) (hs|[pkshd])\b`, Replace: "$1$2"},
		{Name: "followup-separator", Pattern: ` ?[~>] ?`, Replace: "~"},
		{Name: "strip-dots", Pattern: `\.`, Replace: ""},
	}
}

// ruleFile is the on-disk shape of a rules_file.
type ruleFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

// LoadRuleFile reads rule specs from a YAML document of the form
// "rules: [{name, pattern, replace}, ...]".
func LoadRuleFile(path string) ([]RuleSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("rules %s: no rules defined", path)
	}
	return f.Rules, nil
}
