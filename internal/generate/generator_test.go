package generate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zmugha1/sandi-bot/internal/fact"
	"github.com/Zmugha1/sandi-bot/pkg/errors"
)

// mockCompleter returns scripted responses and records the prompts it saw
type mockCompleter struct {
	responses []string
	calls     int
	systems   []string
}

func (m *mockCompleter) Complete(_ context.Context, systemPrompt, _ string, _ int) (string, error) {
	m.systems = append(m.systems, systemPrompt)
	resp := m.responses[m.calls]
	m.calls++
	return resp, nil
}

func packFacts() []fact.Fact {
	mk := func(cat fact.Category, predicate, value string, page int) fact.Fact {
		f := fact.Fact{
			ClientID:      "c1",
			Category:      cat,
			Predicate:     predicate,
			Value:         value,
			SourcePage:    page,
			SourceSnippet: "snippet " + value,
		}
		f.Seal()
		return f
	}
	return []fact.Fact{
		mk(fact.CategoryDrivingForce, "motivated_by", "recognition", 3),
		mk(fact.CategoryRisk, "avoids", "money talk", 5),
	}
}

func TestGenerate_GroundedOutput(t *testing.T) {
	facts := packFacts()
	mock := &mockCompleter{responses: []string{
		"Open by acknowledging their recent wins [F1]. Put pricing on the table early [F2].\nFacts used: F1, F2",
	}}

	result, err := NewGenerator(mock).Generate(context.Background(), TaskEmail, facts)
	require.NoError(t, err)
	assert.Equal(t, 1, mock.calls)
	assert.Contains(t, result.Text, "recent wins")

	// facts_used maps citations back to content hashes of the subset
	require.Len(t, result.FactsUsed, 2)
	assert.ElementsMatch(t, []string{facts[0].ContentHash, facts[1].ContentHash}, result.FactsUsed)
}

func TestGenerate_FactsUsedSubsetOfSupplied(t *testing.T) {
	facts := packFacts()
	mock := &mockCompleter{responses: []string{
		"Lead with numbers [F2].\nFacts used: F2",
	}}

	result, err := NewGenerator(mock).Generate(context.Background(), TaskSummary, facts)
	require.NoError(t, err)
	assert.Equal(t, []string{facts[1].ContentHash}, result.FactsUsed)
}

func TestGenerate_UngroundedRetriedOnceWithStricterPrompt(t *testing.T) {
	facts := packFacts()
	mock := &mockCompleter{responses: []string{
		"They mentioned their golf handicap [F9].\nFacts used: F9", // F9 not in pack
		"Acknowledge their wins [F1].\nFacts used: F1",
	}}

	result, err := NewGenerator(mock).Generate(context.Background(), TaskEmail, facts)
	require.NoError(t, err)
	require.Equal(t, 2, mock.calls)
	assert.Equal(t, groundingInstruction, mock.systems[0])
	assert.Equal(t, stricterInstruction, mock.systems[1])
	assert.Equal(t, []string{facts[0].ContentHash}, result.FactsUsed)
}

func TestGenerate_UngroundedTwiceFails(t *testing.T) {
	mock := &mockCompleter{responses: []string{
		"Completely uncited prose about the client.",
		"Still no citations at all.",
	}}

	result, err := NewGenerator(mock).Generate(context.Background(), TaskAgenda, packFacts())
	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, errors.IsUngrounded(err))
	assert.Equal(t, 2, mock.calls)
}

func TestGenerate_EmptySubsetIsInsufficientEvidence(t *testing.T) {
	mock := &mockCompleter{}

	result, err := NewGenerator(mock).Generate(context.Background(), TaskSummary, nil)
	require.NoError(t, err)
	assert.True(t, result.Insufficient)
	// no model call happens without facts
	assert.Equal(t, 0, mock.calls)
}

func TestGenerate_NotEnoughEvidenceSentinel(t *testing.T) {
	mock := &mockCompleter{responses: []string{"Not enough evidence."}}

	result, err := NewGenerator(mock).Generate(context.Background(), TaskEmail, packFacts())
	require.NoError(t, err)
	assert.True(t, result.Insufficient)
	assert.Empty(t, result.FactsUsed)
}

func TestBuildPack_CapsAndResolves(t *testing.T) {
	var facts []fact.Fact
	for i := 0; i < 20; i++ {
		f := fact.Fact{
			ClientID:   "c1",
			Category:   fact.CategoryBehavioral,
			Predicate:  "tends_to",
			Value:      string(rune('a' + i)),
			SourcePage: i + 1,
		}
		f.Seal()
		facts = append(facts, f)
	}

	pack := BuildPack(facts)
	assert.Len(t, pack.Entries, maxPackFacts)

	hash, ok := pack.Resolve("F1")
	assert.True(t, ok)
	assert.Equal(t, facts[0].ContentHash, hash)
	_, ok = pack.Resolve("F13")
	assert.False(t, ok)
}

func TestSpecFor_UnknownTaskFallsBackToSummary(t *testing.T) {
	assert.Equal(t, taskSpecs[TaskSummary], specFor(Task("poem")))
}
