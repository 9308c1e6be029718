package similarity

import (
	"math"
	"sort"
)

// DefaultTopN bounds ranking output when the caller does not ask for a
// specific cut
const DefaultTopN = 10

// Match is one ranked candidate. Overlap lists up to five tokens shared
// with the target, explaining the score.
type Match struct {
	ClientID     string   `json:"client_id"`
	BusinessType string   `json:"business_type,omitempty"`
	Score        float64  `json:"score"`
	Overlap      []string `json:"overlap,omitempty"`
}

// Engine ranks candidates against a target profile using TF-IDF weighted
// cosine similarity over category:predicate:value tokens. The seed
// population is fixed at construction; per-call extras (other ingested
// clients) join the pool at ranking time.
type Engine struct {
	seeds []Candidate
}

// NewEngine creates a similarity engine over a fixed seed population
func NewEngine(seeds []Candidate) *Engine {
	return &Engine{seeds: seeds}
}

// Seeds returns the size of the fixed seed population
func (e *Engine) Seeds() int {
	return len(e.seeds)
}

// Rank scores every pool candidate against the target tokens and returns
// them ordered by descending score, ties broken by client id ascending.
// Candidates with zero overlap score 0 and are kept; only topN truncates.
// topN <= 0 selects DefaultTopN. The ranking is exactly reproducible for
// fixed inputs.
func (e *Engine) Rank(targetTokens []string, extras []Candidate, topN int) []Match {
	if topN <= 0 {
		topN = DefaultTopN
	}

	pool := make([]Candidate, 0, len(e.seeds)+len(extras))
	pool = append(pool, e.seeds...)
	pool = append(pool, extras...)
	if len(pool) == 0 {
		return nil
	}

	target := make([]string, len(targetTokens))
	for i, t := range targetTokens {
		target[i] = normalizeToken(t)
	}

	// document frequency over pool + target, smoothed as in standard
	// tf-idf: idf = ln((1+n)/(1+df)) + 1
	docs := make([][]string, 0, len(pool)+1)
	docs = append(docs, target)
	for _, c := range pool {
		docs = append(docs, c.Tokens)
	}
	idf := inverseDocumentFrequency(docs)

	qvec := vectorize(target, idf)
	targetSet := make(map[string]struct{}, len(target))
	for _, t := range target {
		targetSet[t] = struct{}{}
	}

	matches := make([]Match, 0, len(pool))
	for _, c := range pool {
		m := Match{
			ClientID:     c.ClientID,
			BusinessType: c.BusinessType,
			Score:        cosine(qvec, vectorize(c.Tokens, idf)),
			Overlap:      overlap(targetSet, c.Tokens),
		}
		matches = append(matches, m)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ClientID < matches[j].ClientID
	})

	if len(matches) > topN {
		matches = matches[:topN]
	}
	return matches
}

func inverseDocumentFrequency(docs [][]string) map[string]float64 {
	n := float64(len(docs))
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{}, len(doc))
		for _, tok := range doc {
			if _, ok := seen[tok]; !ok {
				seen[tok] = struct{}{}
				df[tok]++
			}
		}
	}
	idf := make(map[string]float64, len(df))
	for tok, d := range df {
		idf[tok] = math.Log((1+n)/(1+float64(d))) + 1
	}
	return idf
}

// vectorize builds an L2-normalized tf-idf vector
func vectorize(tokens []string, idf map[string]float64) map[string]float64 {
	tf := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}
	vec := make(map[string]float64, len(tf))
	var norm float64
	for tok, count := range tf {
		w := float64(count) * idf[tok]
		vec[tok] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for tok := range vec {
			vec[tok] /= norm
		}
	}
	return vec
}

// cosine of two normalized vectors is their dot product
func cosine(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for tok, w := range a {
		dot += w * b[tok]
	}
	return dot
}

func overlap(targetSet map[string]struct{}, tokens []string) []string {
	seen := make(map[string]struct{})
	var shared []string
	for _, tok := range tokens {
		if _, ok := targetSet[tok]; !ok {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		shared = append(shared, tok)
	}
	sort.Strings(shared)
	if len(shared) > 5 {
		shared = shared[:5]
	}
	return shared
}
