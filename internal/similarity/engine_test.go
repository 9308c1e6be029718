package similarity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zmugha1/sandi-bot/internal/fact"
)

func poolOfFive() []Candidate {
	return []Candidate{
		{ClientID: "c2", Tokens: []string{"behavioral:tends_to:move fast"}},
		{ClientID: "c3", Tokens: []string{
			"driving_force:motivated_by:recognition",
			"risk:avoids:money talk",
		}},
		{ClientID: "c4", Tokens: []string{"behavioral:prefers:email"}},
		{ClientID: "c5", Tokens: []string{"risk:avoids:money talk"}},
		{ClientID: "c6", Tokens: nil},
	}
}

func targetTokens() []string {
	return []string{
		"driving_force:motivated_by:recognition",
		"risk:avoids:money talk",
		"behavioral:tends_to:prepare thoroughly",
	}
}

func TestRank_SharedTokensOutrankDisjoint(t *testing.T) {
	e := NewEngine(poolOfFive())
	matches := e.Rank(targetTokens(), nil, 3)
	require.Len(t, matches, 3)

	// c3 shares 2 of the target's 3 tokens and must rank strictly above
	// every zero-overlap candidate
	assert.Equal(t, "c3", matches[0].ClientID)
	assert.Greater(t, matches[0].Score, 0.0)
	assert.Equal(t, "c5", matches[1].ClientID)

	pos := map[string]int{}
	for i, m := range e.Rank(targetTokens(), nil, 0) {
		pos[m.ClientID] = i
	}
	assert.Less(t, pos["c3"], pos["c4"])
}

func TestRank_ZeroScoreCandidatesIncluded(t *testing.T) {
	e := NewEngine(poolOfFive())
	matches := e.Rank(targetTokens(), nil, 10)
	require.Len(t, matches, 5)

	var zeros []string
	for _, m := range matches {
		if m.Score == 0 {
			zeros = append(zeros, m.ClientID)
		}
	}
	// no non-zero floor: disjoint candidates stay, ordered by id
	assert.Equal(t, []string{"c2", "c4", "c6"}, zeros)
}

func TestRank_TiesBreakByClientIDAscending(t *testing.T) {
	e := NewEngine([]Candidate{
		{ClientID: "b", Tokens: []string{"risk:avoids:money talk"}},
		{ClientID: "a", Tokens: []string{"risk:avoids:money talk"}},
	})
	matches := e.Rank([]string{"risk:avoids:money talk"}, nil, 10)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ClientID)
	assert.Equal(t, "b", matches[1].ClientID)
	assert.Equal(t, matches[0].Score, matches[1].Score)
}

func TestRank_Deterministic(t *testing.T) {
	e := NewEngine(poolOfFive())
	first := e.Rank(targetTokens(), nil, 10)
	second := e.Rank(targetTokens(), nil, 10)
	assert.Equal(t, first, second)
}

func TestRank_TopNTruncatesAndDefaults(t *testing.T) {
	e := NewEngine(poolOfFive())
	assert.Len(t, e.Rank(targetTokens(), nil, 2), 2)
	// topN <= 0 falls back to DefaultTopN
	assert.Len(t, e.Rank(targetTokens(), nil, 0), 5)
}

func TestRank_ExtrasJoinPool(t *testing.T) {
	e := NewEngine(nil)
	extras := []Candidate{{ClientID: "ingested-1", Tokens: targetTokens()}}
	matches := e.Rank(targetTokens(), extras, 10)
	require.Len(t, matches, 1)
	assert.Equal(t, "ingested-1", matches[0].ClientID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
}

func TestRank_OverlapExplanation(t *testing.T) {
	e := NewEngine(poolOfFive())
	matches := e.Rank(targetTokens(), nil, 1)
	require.Len(t, matches, 1)
	assert.Equal(t, []string{
		"driving_force:motivated_by:recognition",
		"risk:avoids:money talk",
	}, matches[0].Overlap)
}

func TestCandidateFromFacts(t *testing.T) {
	f := fact.Fact{
		ClientID:  "c1",
		Category:  fact.CategoryRisk,
		Predicate: "avoids",
		Value:     "Money Talk",
	}
	cand := CandidateFromFacts("c1", "retail", []fact.Fact{f})
	assert.Equal(t, []string{"risk:avoids:money talk"}, cand.Tokens)
	assert.Equal(t, "retail", cand.BusinessType)
}

func TestLoadSeeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
clients:
  - client_id: seed-1
    business_type: retail
    traits: ["move fast", "prefers: email"]
    drivers: [recognition]
    risks: [money talk]
`), 0o644))

	seeds, err := LoadSeeds(path)
	require.NoError(t, err)
	require.Len(t, seeds, 1)
	assert.Equal(t, "seed-1", seeds[0].ClientID)
	assert.Equal(t, []string{
		"behavioral:tends_to:move fast",
		"behavioral:prefers:email",
		"driving_force:motivated_by:recognition",
		"risk:avoids:money talk",
	}, seeds[0].Tokens)
}

func TestLoadSeeds_MissingFileIsEmptyPool(t *testing.T) {
	seeds, err := LoadSeeds(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, seeds)
}
