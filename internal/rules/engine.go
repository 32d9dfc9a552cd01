// Package rules provides a YAML-based rules engine for transaction
// categorization. Each rule pairs a description pattern with a category and
// a confidence score; rows that no rule claims stay uncategorized for the
// operator to resolve.
package rules

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/quidbooks/quidbooks/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var embeddedRules []byte

// MatchType defines how patterns are matched against transaction descriptions.
type MatchType string

const (
	// MatchTypeExact requires the pattern to match the entire description exactly.
	MatchTypeExact MatchType = "exact"
	// MatchTypeContains requires the pattern to be a substring of the description.
	MatchTypeContains MatchType = "contains"
)

// Rule is a single categorization rule.
//
// Rules should be created via YAML loading (NewEngine, LoadEmbedded,
// LoadFromFile) or the NewRule constructor. Both validate all invariants:
//   - Priority in range [0, 999]
//   - Confidence in range [0, 100]
//   - Pattern must not be empty after trimming
//   - MatchType must be "exact" or "contains"
//   - Category must be a valid domain.Category
//
// Direct struct construction bypasses validation; fields are exported for
// YAML unmarshaling and testing.
type Rule struct {
	Name       string    `yaml:"name"`
	Pattern    string    `yaml:"pattern"`
	MatchType  MatchType `yaml:"match_type"`
	Priority   int       `yaml:"priority"`
	Category   string    `yaml:"category"`
	Confidence int       `yaml:"confidence"`
}

// NewRule creates a validated rule for programmatic construction. YAML
// loading via NewEngine performs equivalent validation automatically.
func NewRule(name, pattern string, matchType MatchType, priority int, category string, confidence int) (*Rule, error) {
	r := Rule{
		Name:       name,
		Pattern:    pattern,
		MatchType:  matchType,
		Priority:   priority,
		Category:   category,
		Confidence: confidence,
	}
	if err := validateRule(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

func validateRule(r *Rule) error {
	if !domain.ValidateCategory(domain.Category(r.Category)) {
		return fmt.Errorf("invalid category %q", r.Category)
	}
	if r.Priority < 0 || r.Priority > 999 {
		return fmt.Errorf("priority must be in [0,999], got %d", r.Priority)
	}
	if r.Confidence < 0 || r.Confidence > 100 {
		return fmt.Errorf("confidence must be in [0,100], got %d", r.Confidence)
	}
	if r.MatchType != MatchTypeExact && r.MatchType != MatchTypeContains {
		return fmt.Errorf("invalid match_type %q (must be 'exact' or 'contains')", r.MatchType)
	}
	if strings.TrimSpace(r.Pattern) == "" {
		return fmt.Errorf("pattern cannot be empty")
	}
	return nil
}

// RuleSet is the top-level YAML structure.
type RuleSet struct {
	Rules []Rule `yaml:"rules"`
}

// Result is the outcome of applying a rule to a description.
type Result struct {
	Category   domain.Category
	Confidence int
	RuleName   string // for audit output
}

// Engine performs rule matching on transaction descriptions.
type Engine struct {
	rules    []Rule   // sorted by priority (highest first)
	patterns []string // lowercased and trimmed once at load, aligned with rules
}

// NewEngine creates a rules engine from YAML data.
func NewEngine(rulesData []byte) (*Engine, error) {
	var ruleSet RuleSet
	if err := yaml.Unmarshal(rulesData, &ruleSet); err != nil {
		return nil, fmt.Errorf("failed to parse YAML rules (check syntax, indentation, and field names): %w", err)
	}

	for i := range ruleSet.Rules {
		if err := validateRule(&ruleSet.Rules[i]); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, ruleSet.Rules[i].Name, err)
		}
	}

	// Sort by priority, highest first. SliceStable preserves YAML file order
	// for rules with equal priority so matching stays deterministic.
	sortedRules := make([]Rule, len(ruleSet.Rules))
	copy(sortedRules, ruleSet.Rules)
	sort.SliceStable(sortedRules, func(i, j int) bool {
		return sortedRules[i].Priority > sortedRules[j].Priority
	})

	patterns := make([]string, len(sortedRules))
	for i := range sortedRules {
		patterns[i] = strings.ToLower(strings.TrimSpace(sortedRules[i].Pattern))
	}

	return &Engine{rules: sortedRules, patterns: patterns}, nil
}

// LoadEmbedded loads the built-in ruleset.
func LoadEmbedded() (*Engine, error) {
	engine, err := NewEngine(embeddedRules)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded rules: %w", err)
	}
	return engine, nil
}

// LoadFromFile loads rules from a filesystem path, letting operators carry
// their own ruleset instead of the built-in one.
func LoadFromFile(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	engine, err := NewEngine(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules from %q: %w", path, err)
	}
	return engine, nil
}

// Match applies rules to a transaction description and returns the first
// match. Rules are evaluated in priority order (highest first); equal
// priorities keep their YAML file order. Returns (nil, false) when no rule
// matches, which leaves the row uncategorized rather than guessing.
func (e *Engine) Match(description string) (*Result, bool) {
	normalizedDesc := strings.ToLower(strings.TrimSpace(description))

	for i, rule := range e.rules {
		pattern := e.patterns[i]

		matched := false
		switch rule.MatchType {
		case MatchTypeExact:
			matched = normalizedDesc == pattern
		case MatchTypeContains:
			matched = strings.Contains(normalizedDesc, pattern)
		}

		if matched {
			return &Result{
				Category:   domain.Category(rule.Category),
				Confidence: rule.Confidence,
				RuleName:   rule.Name,
			}, true
		}
	}

	return nil, false
}

// Categorize applies the ruleset to each parsed row in place. Rows that
// failed parsing or already carry an operator-assigned category are left
// alone.
func (e *Engine) Categorize(rows []domain.ImportedRow) {
	for i := range rows {
		if rows[i].Status != domain.RowStatusOK || rows[i].Category != "" {
			continue
		}
		if res, ok := e.Match(rows[i].Description); ok {
			rows[i].Category = res.Category
			rows[i].Confidence = res.Confidence
		}
	}
}

// GetRules returns a copy of the rules for inspection, in priority order
// (highest first, equal priorities in YAML file order). Rule fields are all
// value types so callers cannot mutate engine state through the copies.
func (e *Engine) GetRules() []Rule {
	result := make([]Rule, len(e.rules))
	copy(result, e.rules)
	return result
}
