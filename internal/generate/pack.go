package generate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Zmugha1/sandi-bot/internal/fact"
)

const (
	maxPackFacts  = 12
	maxSnippetLen = 240
)

// PackEntry is one fact the model is permitted to reference, addressed by
// a short citation id (F1, F2, …) that maps back to the fact's content
// hash.
type PackEntry struct {
	Ref      string // citation id, e.g. "F1"
	FactHash string
	Line     string // rendered prompt line
}

// Pack is the bounded fact context handed to the model. Only pack entries
// may appear in generated output; the citation ids make the mapping
// verifiable.
type Pack struct {
	Entries []PackEntry
	byRef   map[string]string // ref -> fact hash
}

// BuildPack renders facts into a citation-addressable pack, capped at
// maxPackFacts entries in the order given.
func BuildPack(facts []fact.Fact) *Pack {
	if len(facts) > maxPackFacts {
		facts = facts[:maxPackFacts]
	}
	p := &Pack{byRef: make(map[string]string, len(facts))}
	for i, ft := range facts {
		ref := fmt.Sprintf("F%d", i+1)
		line := fmt.Sprintf("[%s] %s %s: %s (page %d, %q)",
			ref, ft.Category, ft.Predicate, ft.Value, ft.SourcePage,
			truncateSnippet(ft.SourceSnippet))
		p.Entries = append(p.Entries, PackEntry{Ref: ref, FactHash: ft.ContentHash, Line: line})
		p.byRef[ref] = ft.ContentHash
	}
	return p
}

// Resolve maps a citation id back to its fact hash
func (p *Pack) Resolve(ref string) (string, bool) {
	hash, ok := p.byRef[ref]
	return hash, ok
}

// Render returns the pack as prompt text, one fact per line
func (p *Pack) Render() string {
	lines := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		lines[i] = e.Line
	}
	return strings.Join(lines, "\n")
}

func truncateSnippet(s string) string {
	if len(s) <= maxSnippetLen {
		return s
	}
	n := maxSnippetLen - 3
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	cut := s[:n]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}
