package recommend

import (
	"strconv"
	"strings"

	"github.com/Zmugha1/sandi-bot/internal/fact"
)

// Evidence references one fact that contributed to a rule firing
type Evidence struct {
	FactHash  string        `json:"fact_hash"`
	Category  fact.Category `json:"category"`
	Predicate string        `json:"predicate"`
	Value     string        `json:"value"`
	Page      int           `json:"page"`
	Snippet   string        `json:"snippet"`
}

// Recommendation is one fired rule with its complete supporting evidence.
// Recommendations are created on demand and not persisted.
type Recommendation struct {
	RuleID   string     `json:"rule_id"`
	Action   string     `json:"action"`
	Why      string     `json:"why"`
	Evidence []Evidence `json:"evidence"`
}

// Engine evaluates the static rule set against a client's facts. The rule
// list is already priority-ordered by LoadRules.
type Engine struct {
	rules []Rule
}

// NewEngine creates a recommendation engine over an immutable rule set
func NewEngine(rules []Rule) *Engine {
	return &Engine{rules: rules}
}

// Rules returns the number of loaded rules
func (e *Engine) Rules() int {
	return len(e.rules)
}

// Recommend evaluates every rule against the client's facts, highest
// priority first. A fired rule carries every fact that satisfied its
// trigger, not just the first match, so the UI can always show "why".
// No facts, or facts that satisfy no rule, yield an empty list: that is
// the insufficient-evidence outcome, not an error.
func (e *Engine) Recommend(facts []fact.Fact) []Recommendation {
	if len(facts) == 0 {
		return nil
	}

	var out []Recommendation
	for _, rule := range e.rules {
		evidence, fired := evaluate(rule, facts)
		if !fired {
			continue
		}
		out = append(out, Recommendation{
			RuleID:   rule.ID,
			Action:   rule.Action,
			Why:      expandWhy(rule.Why, evidence),
			Evidence: evidence,
		})
	}
	return out
}

// evaluate collects, in fact append order, every fact satisfying any of
// the rule's conditions. Mode "all" additionally requires each condition
// to be satisfied by at least one fact.
func evaluate(rule Rule, facts []fact.Fact) ([]Evidence, bool) {
	satisfied := make([]bool, len(rule.Match))
	seen := make(map[string]struct{})
	var evidence []Evidence

	for _, ft := range facts {
		hit := false
		for ci, cond := range rule.Match {
			if cond.matches(ft) {
				satisfied[ci] = true
				hit = true
			}
		}
		if !hit {
			continue
		}
		if _, dup := seen[ft.ContentHash]; dup {
			continue
		}
		seen[ft.ContentHash] = struct{}{}
		evidence = append(evidence, Evidence{
			FactHash:  ft.ContentHash,
			Category:  ft.Category,
			Predicate: ft.Predicate,
			Value:     ft.Value,
			Page:      ft.SourcePage,
			Snippet:   ft.SourceSnippet,
		})
	}

	if len(evidence) == 0 {
		return nil, false
	}
	if rule.Mode == "all" {
		for _, ok := range satisfied {
			if !ok {
				return nil, false
			}
		}
	}
	return evidence, true
}

// expandWhy substitutes the first evidence fact into the explanation
// template: {value} and {page} placeholders.
func expandWhy(why string, evidence []Evidence) string {
	if len(evidence) == 0 || !strings.Contains(why, "{") {
		return why
	}
	first := evidence[0]
	why = strings.ReplaceAll(why, "{value}", first.Value)
	why = strings.ReplaceAll(why, "{page}", strconv.Itoa(first.Page))
	return why
}
