package extract

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Zmugha1/sandi-bot/internal/fact"
	"github.com/Zmugha1/sandi-bot/pkg/errors"
)

const (
	maxValueChars   = 150
	maxSnippetChars = 200
	maxSentenceLen  = 240
	maxBulletFacts  = 10
)

// Extractor turns a personality report into typed fact candidates.
// Extraction is deterministic: identical bytes and client id always
// produce the identical fact list.
type Extractor struct{}

// New creates a fact extractor
func New() *Extractor {
	return &Extractor{}
}

// page is one page of report text; pages are form-feed separated in plain
// text input, and HTML input is treated as a single page.
type page struct {
	number int
	text   string
}

// section is a contiguous run of text under one recognized heading
type section struct {
	category fact.Category
	page     int
	text     string
}

// Extract parses raw document bytes into fact candidates for clientID.
// PDF, HTML and plain-text reports are accepted. Returns
// ErrNothingExtractable when the document parsed but no heading or
// trigger matched; returns ErrMalformedDocument when the bytes are not
// parseable report text at all.
func (e *Extractor) Extract(raw []byte, clientID string) ([]fact.Fact, error) {
	if len(raw) == 0 {
		return nil, errors.NewMalformedDocument("empty document", nil)
	}

	var pages []page
	if isPDF(raw) {
		var err error
		pages, err = pdfToPages(raw)
		if err != nil {
			return nil, errors.NewMalformedDocument("unparseable PDF", err)
		}
	} else {
		if !utf8.Valid(raw) {
			return nil, errors.NewMalformedDocument("document is not valid UTF-8 text", nil)
		}
		text := string(raw)
		if isHTML(text) {
			var err error
			text, err = htmlToText(text)
			if err != nil {
				return nil, errors.NewMalformedDocument("unparseable HTML", err)
			}
		}
		pages = paginate(text)
	}
	if !hasText(pages) {
		return nil, errors.NewMalformedDocument("document contains no text", nil)
	}

	sections := splitSections(pages)
	if len(sections) == 0 {
		return nil, errors.ErrNothingExtractable
	}

	var facts []fact.Fact
	for _, sec := range sections {
		secFacts := scanSection(sec, clientID)
		if len(secFacts) == 0 {
			secFacts = bulletFacts(sec, clientID)
		}
		facts = append(facts, secFacts...)
	}
	if len(facts) == 0 {
		return nil, errors.ErrNothingExtractable
	}

	for i := range facts {
		facts[i].Seal()
	}
	return facts, nil
}

// hasText reports whether any page carries non-whitespace content
func hasText(pages []page) bool {
	for _, p := range pages {
		if strings.TrimSpace(p.text) != "" {
			return true
		}
	}
	return false
}

// paginate splits plain text into pages on form feeds. Page numbers start
// at 1. A document without form feeds is a single page.
func paginate(text string) []page {
	parts := strings.Split(text, "\f")
	pages := make([]page, 0, len(parts))
	for i, p := range parts {
		pages = append(pages, page{number: i + 1, text: p})
	}
	return pages
}

// splitSections walks pages line by line, opening a new section whenever a
// line matches the heading vocabulary. The current category carries across
// page breaks. Text before the first recognized heading belongs to no
// section and yields no facts.
func splitSections(pages []page) []section {
	var sections []section
	var current *section

	flush := func() {
		if current != nil && strings.TrimSpace(current.text) != "" {
			sections = append(sections, *current)
		}
		current = nil
	}

	category := fact.Category("")
	for _, pg := range pages {
		if category != "" {
			// section continues onto this page as a new span
			flush()
			current = &section{category: category, page: pg.number}
		}
		for _, line := range strings.Split(pg.text, "\n") {
			if cat, ok := matchHeading(line); ok {
				flush()
				category = cat
				current = &section{category: cat, page: pg.number}
				continue
			}
			if current != nil {
				current.text += line + "\n"
			}
		}
	}
	flush()
	return sections
}

// matchHeading reports whether a line is a recognized section heading
func matchHeading(line string) (fact.Category, bool) {
	n := normalizeHeading(line)
	if n == "" || len(n) > 48 {
		return "", false
	}
	for _, hr := range headingRules {
		if n == hr.heading || strings.HasPrefix(n, hr.heading+" ") {
			return hr.category, true
		}
	}
	return "", false
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeHeading lowercases, strips accents and punctuation, and
// collapses whitespace so "Fuerzas Motrices:" style headings compare
// cleanly against the vocabulary.
func normalizeHeading(line string) string {
	folded, _, err := transform.String(accentStripper, line)
	if err != nil {
		folded = line
	}
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// match is one trigger hit inside a section, pre-sorted for the leftmost
// wins overlap policy
type match struct {
	start, end int
	valueStart int
	valueEnd   int
	rule       int
}

// scanSection applies every trigger rule to the section text and emits one
// fact per surviving match. Overlapping matches resolve leftmost first;
// same start offset resolves by rule declaration order.
func scanSection(sec section, clientID string) []fact.Fact {
	var matches []match
	for ri, tr := range triggerRules {
		for _, loc := range tr.re.FindAllStringSubmatchIndex(sec.text, -1) {
			matches = append(matches, match{
				start:      loc[0],
				end:        loc[1],
				valueStart: loc[2],
				valueEnd:   loc[3],
				rule:       ri,
			})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].start != matches[j].start {
			return matches[i].start < matches[j].start
		}
		return matches[i].rule < matches[j].rule
	})

	var facts []fact.Fact
	lastEnd := -1
	for _, m := range matches {
		if m.start < lastEnd {
			continue
		}
		value := trimValue(sec.text[m.valueStart:m.valueEnd])
		if value == "" {
			continue
		}
		facts = append(facts, fact.Fact{
			ClientID:      clientID,
			Category:      sec.category,
			Predicate:     triggerRules[m.rule].predicate,
			Value:         value,
			SourcePage:    sec.page,
			SourceSnippet: snippetAround(sec.text, m.start, m.end),
		})
		lastEnd = m.end
	}
	return facts
}

// bulletFacts is the notes fallback: a recognized section with no trigger
// matches still yields its bulleted lines as low-structure facts.
func bulletFacts(sec section, clientID string) []fact.Fact {
	var facts []fact.Fact
	for _, line := range strings.Split(sec.text, "\n") {
		sub := bulletRe.FindStringSubmatch(line)
		if sub == nil {
			continue
		}
		value := trimValue(sub[1])
		if len(value) < 4 {
			continue
		}
		facts = append(facts, fact.Fact{
			ClientID:      clientID,
			Category:      sec.category,
			Predicate:     "notes",
			Value:         value,
			SourcePage:    sec.page,
			SourceSnippet: strings.TrimSpace(line),
		})
		if len(facts) >= maxBulletFacts {
			break
		}
	}
	return facts
}

// trimValue bounds a captured clause: trimmed, trailing punctuation
// stripped, cut at maxValueChars on a word boundary.
func trimValue(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimRight(v, ".,:;!? ")
	if len(v) > maxValueChars {
		cut := v[:runeStart(v, maxValueChars)]
		if i := strings.LastIndexByte(cut, ' '); i > 0 {
			cut = cut[:i]
		}
		v = strings.TrimRight(cut, ".,:;!? ")
	}
	return v
}

// runeStart backs a byte offset up to the nearest rune boundary so byte
// slices never split a multibyte character
func runeStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// snippetAround returns the verbatim sentence containing [start,end), or a
// character window centered on the match when sentence bounds are missing
// or the sentence runs too long.
func snippetAround(text string, start, end int) string {
	sStart := start
	for sStart > 0 {
		c := text[sStart-1]
		if c == '.' || c == '!' || c == '?' || c == '\n' {
			break
		}
		sStart--
	}
	sEnd := end
	for sEnd < len(text) {
		c := text[sEnd]
		sEnd++
		if c == '.' || c == '!' || c == '?' || c == '\n' {
			break
		}
	}
	sentence := strings.TrimSpace(text[sStart:sEnd])
	if len(sentence) > 0 && len(sentence) <= maxSentenceLen {
		return sentence
	}

	half := maxSnippetChars / 2
	wStart := runeStart(text, start-half)
	if wStart < 0 {
		wStart = 0
	}
	wEnd := end + half
	if wEnd >= len(text) {
		wEnd = len(text)
	} else {
		wEnd = runeStart(text, wEnd)
	}
	return strings.TrimSpace(text[wStart:wEnd])
}
