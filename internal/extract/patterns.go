package extract

import (
	"regexp"

	"github.com/Zmugha1/sandi-bot/internal/fact"
)

// headingRule maps a normalized section heading to a fact category.
// Rules are matched in declaration order against each candidate line.
type headingRule struct {
	heading  string
	category fact.Category
}

// headingRules is the fixed vocabulary of report section headings.
// Matching is case- and accent-insensitive (see normalizeHeading).
var headingRules = []headingRule{
	{"behavioral", fact.CategoryBehavioral},
	{"behavioral traits", fact.CategoryBehavioral},
	{"key traits", fact.CategoryBehavioral},
	{"strengths", fact.CategoryBehavioral},
	{"driving forces", fact.CategoryDrivingForce},
	{"communication", fact.CategoryCommunication},
	{"communication tips", fact.CategoryCommunication},
	{"dos and donts", fact.CategoryCommunication},
	{"do and dont", fact.CategoryCommunication},
	{"motivators", fact.CategoryMotivator},
	{"preferences", fact.CategoryMotivator},
	{"risks", fact.CategoryRisk},
	{"areas for improvement", fact.CategoryRisk},
	{"checklist", fact.CategoryCommunication},
}

// triggerRule captures the clause following a fixed linguistic phrase.
// The first capture group is the fact value.
type triggerRule struct {
	re        *regexp.Regexp
	predicate string
}

// triggerRules is the fixed, ordered set of trigger phrases. Order matters:
// when two matches start at the same offset, the earlier rule wins.
var triggerRules = []triggerRule{
	{regexp.MustCompile(`(?i)tends to\s+([^.;!?\n]+)`), "tends_to"},
	{regexp.MustCompile(`(?i)prefers\s+([^.;!?\n]+)`), "prefers"},
	{regexp.MustCompile(`(?i)often\s+([^.;!?\n]+)`), "often"},
	{regexp.MustCompile(`(?i)likes to\s+([^.;!?\n]+)`), "likes_to"},
	{regexp.MustCompile(`(?i)typically\s+([^.;!?\n]+)`), "typically"},
	{regexp.MustCompile(`(?i)motivated by\s+([^.;!?\n]+)`), "motivated_by"},
	{regexp.MustCompile(`(?i)driven by\s+([^.;!?\n]+)`), "driven_by"},
	{regexp.MustCompile(`(?i)values\s+([^.;!?\n]+)`), "values"},
	{regexp.MustCompile(`(?i)needs\s+([^.;!?\n]+)`), "needs"},
	{regexp.MustCompile(`(?i)avoids?\s+([^.;!?\n]+)`), "avoids"},
	{regexp.MustCompile(`(?i)watch (?:out for|for)\s+([^.;!?\n]+)`), "watch_for"},
	{regexp.MustCompile(`(?i)tendency to\s+([^.;!?\n]+)`), "tendency_to"},
	{regexp.MustCompile(`(?i)risks?\s*:\s*([^.;!?\n]+)`), "risk_of"},
}

// bulletRe matches bulleted or numbered list lines used by the notes
// fallback when a section has no trigger matches.
var bulletRe = regexp.MustCompile(`^\s*(?:[-*\x{2022}]|\d+[.)])\s+(.+)$`)
