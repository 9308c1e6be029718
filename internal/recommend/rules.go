package recommend

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Zmugha1/sandi-bot/internal/fact"
)

// Condition is one predicate over a client's facts. Empty fields match
// anything; ValueContains matches when any listed substring occurs in the
// fact value (case-insensitive).
type Condition struct {
	Category      fact.Category `yaml:"category"`
	Predicate     string        `yaml:"predicate"`
	ValueContains []string      `yaml:"value_contains"`
}

// Rule is one declarative coaching rule. Mode "any" (default) fires when
// at least one condition is satisfied by at least one fact; mode "all"
// requires every condition to be satisfied.
type Rule struct {
	ID       string      `yaml:"id"`
	Priority int         `yaml:"priority"`
	Action   string      `yaml:"action"`
	Why      string      `yaml:"why"`
	Mode     string      `yaml:"mode"`
	Match    []Condition `yaml:"match"`
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads the static rule set. Rules are loaded once at startup
// and immutable afterwards; hot reload is out of scope. The returned
// slice is ordered by descending priority with declaration order breaking
// ties, ready for evaluation.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}

	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}

	rules := make([]Rule, 0, len(rf.Rules))
	for i, r := range rf.Rules {
		if r.Action == "" || len(r.Match) == 0 {
			return nil, fmt.Errorf("rule %d (%q) needs an action and at least one match condition", i, r.ID)
		}
		if r.Mode == "" {
			r.Mode = "any"
		}
		if r.Mode != "any" && r.Mode != "all" {
			return nil, fmt.Errorf("rule %q has unknown mode %q", r.ID, r.Mode)
		}
		rules = append(rules, r)
	}

	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})
	return rules, nil
}

// matches reports whether a single fact satisfies the condition
func (c Condition) matches(ft fact.Fact) bool {
	if c.Category != "" && c.Category != ft.Category {
		return false
	}
	if c.Predicate != "" && c.Predicate != ft.Predicate {
		return false
	}
	if len(c.ValueContains) == 0 {
		return true
	}
	value := strings.ToLower(ft.Value)
	for _, sub := range c.ValueContains {
		if sub != "" && strings.Contains(value, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
