package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zmugha1/sandi-bot/internal/fact"
)

func newFact(clientID, predicate, value string, page int) fact.Fact {
	f := fact.Fact{
		ClientID:      clientID,
		Category:      fact.CategoryBehavioral,
		Predicate:     predicate,
		Value:         value,
		SourcePage:    page,
		SourceSnippet: "snippet for " + value,
	}
	f.Seal()
	return f
}

func TestStore_AppendDeduplicates(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	facts := []fact.Fact{
		newFact("c1", "tends_to", "decide quickly", 1),
		newFact("c1", "tends_to", "decide quickly", 1), // exact duplicate
		newFact("c1", "tends_to", "decide quickly", 2), // distinct page, distinct fact
	}

	n, err := s.Append(facts)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// re-appending the same candidates inserts nothing
	n, err = s.Append(facts)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, s.FactsFor("c1"), 2)
}

func TestStore_DedupScopedPerClient(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Append([]fact.Fact{
		newFact("c1", "avoids", "conflict", 1),
		newFact("c2", "avoids", "conflict", 1),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStore_NoTwoFactsShareHash(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Append([]fact.Fact{
		newFact("c1", "avoids", "conflict", 1),
		newFact("c1", "avoids", "money talk", 5),
		newFact("c1", "avoids", "conflict", 1),
		newFact("c2", "needs", "structure", 2),
	})
	require.NoError(t, err)

	seen := make(map[string]map[string]bool)
	for _, f := range s.AllFacts() {
		if seen[f.ClientID] == nil {
			seen[f.ClientID] = make(map[string]bool)
		}
		assert.False(t, seen[f.ClientID][f.ContentHash], "duplicate hash for client %s", f.ClientID)
		seen[f.ClientID][f.ContentHash] = true
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	_, err = s.Append([]fact.Fact{
		newFact("c1", "tends_to", "decide quickly", 1),
		newFact("c1", "avoids", "money talk", 5),
	})
	require.NoError(t, err)
	require.NoError(t, s.RecordIngestion(fact.IngestionRecord{
		ID:           "ing-1",
		ClientID:     "c1",
		DocumentHash: "abc123",
		Timestamp:    time.Now().UTC(),
	}))
	require.NoError(t, s.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()

	facts := s2.FactsFor("c1")
	require.Len(t, facts, 2)
	// append order survives reload
	assert.Equal(t, "decide quickly", facts[0].Value)
	assert.Equal(t, "money talk", facts[1].Value)
	assert.True(t, s2.HasDocument("c1", "abc123"))
	assert.False(t, s2.HasDocument("c2", "abc123"))
}

func TestStore_ClientIDsFirstSeenOrder(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Append([]fact.Fact{
		newFact("c2", "avoids", "conflict", 1),
		newFact("c1", "needs", "structure", 1),
		newFact("c2", "needs", "praise", 2),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c2", "c1"}, s.ClientIDs())
}

func TestStore_SaveUpload(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	path, err := s.SaveUpload("c1", "hash99", []byte("report bytes"))
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "report bytes", string(raw))
	assert.Equal(t, filepath.Join(dir, "uploads", "c1"), filepath.Dir(path))
}
