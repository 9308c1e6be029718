package graph

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zmugha1/sandi-bot/internal/fact"
)

func testFacts() []fact.Fact {
	mk := func(clientID, predicate, value string, page int) fact.Fact {
		f := fact.Fact{
			ClientID:   clientID,
			Category:   fact.CategoryRisk,
			Predicate:  predicate,
			Value:      value,
			SourcePage: page,
		}
		f.Seal()
		return f
	}
	return []fact.Fact{
		mk("c1", "avoids", "money talk", 5),
		mk("c1", "avoids", "money talk", 7), // same attribute, distinct page
		mk("c1", "avoids", "money talk", 5), // duplicate fact, same page
		mk("c2", "avoids", "money talk", 2), // shared attribute, other client
		mk("c2", "avoids", "conflict", 3),
	}
}

func TestBuild_SharedAttributeNodes(t *testing.T) {
	g := Build(testFacts(), map[string]string{"c1": "real estate"})

	nodes := g.Nodes()
	var clients, attrs int
	for _, n := range nodes {
		switch n.Kind {
		case KindClient:
			clients++
		case KindAttribute:
			attrs++
		}
	}
	// two clients, two distinct attributes; identical trait values share
	// one attribute node across clients
	assert.Equal(t, 2, clients)
	assert.Equal(t, 2, attrs)

	shared := AttributeNodeID(fact.CategoryRisk, "avoids", "money talk")
	assert.Equal(t, []string{"c1", "c2"}, g.ClientsWith(shared))
}

func TestBuild_EdgeWeightReinforcement(t *testing.T) {
	g := Build(testFacts(), nil)

	edges := g.AttributesOf("c1")
	require.Len(t, edges, 1)
	// weight 2: distinct pages 5 and 7; the page-5 duplicate adds nothing
	assert.Equal(t, 2, edges[0].Weight)
	assert.Equal(t, []int{5, 7}, edges[0].Pages)

	c2 := g.AttributesOf("c2")
	require.Len(t, c2, 2)
	for _, e := range c2 {
		assert.Equal(t, 1, e.Weight)
	}
}

func TestBuild_RebuildEquivalence(t *testing.T) {
	facts := testFacts()
	first := Build(facts, nil).Snapshot()
	second := Build(facts, nil).Snapshot()
	assert.Equal(t, first, second)
}

func TestBuild_BusinessTypeAnnotation(t *testing.T) {
	g := Build(testFacts(), map[string]string{"c1": "real estate"})
	for _, n := range g.Nodes() {
		if n.Kind == KindClient && n.ClientID == "c1" {
			assert.Equal(t, "real estate", n.BusinessType)
		}
		if n.Kind == KindClient && n.ClientID == "c2" {
			assert.Empty(t, n.BusinessType)
		}
	}
}

func TestSnapshot_WriteAndRead(t *testing.T) {
	g := Build(testFacts(), nil)
	path := filepath.Join(t.TempDir(), "kg", "graph.json")

	require.NoError(t, g.WriteSnapshot(path))
	snap, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, g.Snapshot(), snap)

	// overwritten wholesale on the next write
	g2 := Build(testFacts()[:1], nil)
	require.NoError(t, g2.WriteSnapshot(path))
	snap2, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, g2.Snapshot(), snap2)
	assert.NotEqual(t, snap, snap2)
}

func TestGraph_AttributesOfUnknownClient(t *testing.T) {
	g := Build(testFacts(), nil)
	assert.Empty(t, g.AttributesOf("nobody"))
}
