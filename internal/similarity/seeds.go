package similarity

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Zmugha1/sandi-bot/internal/fact"
)

// Candidate is one entry of the comparison pool: a client reduced to its
// profile tokens
type Candidate struct {
	ClientID     string
	BusinessType string
	Tokens       []string
}

// seedFile is the on-disk shape of the static seed population. Trait,
// driver and risk entries are plain labels; they tokenize with the default
// predicate of their list so seed profiles live in the same token space as
// extracted facts.
type seedFile struct {
	Clients []struct {
		ClientID     string   `yaml:"client_id"`
		BusinessType string   `yaml:"business_type"`
		Traits       []string `yaml:"traits"`
		Drivers      []string `yaml:"drivers"`
		Risks        []string `yaml:"risks"`
	} `yaml:"clients"`
}

// LoadSeeds reads the static seed population. The file is loaded once at
// startup and never mutated. A missing file yields an empty pool, not an
// error: similarity then ranks only ingested clients.
func LoadSeeds(path string) ([]Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read seed population: %w", err)
	}

	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse seed population: %w", err)
	}

	seeds := make([]Candidate, 0, len(sf.Clients))
	for _, c := range sf.Clients {
		if c.ClientID == "" {
			continue
		}
		cand := Candidate{ClientID: c.ClientID, BusinessType: c.BusinessType}
		for _, t := range c.Traits {
			cand.Tokens = append(cand.Tokens, seedToken(fact.CategoryBehavioral, "tends_to", t))
		}
		for _, d := range c.Drivers {
			cand.Tokens = append(cand.Tokens, seedToken(fact.CategoryDrivingForce, "motivated_by", d))
		}
		for _, r := range c.Risks {
			cand.Tokens = append(cand.Tokens, seedToken(fact.CategoryRisk, "avoids", r))
		}
		seeds = append(seeds, cand)
	}
	return seeds, nil
}

// seedToken builds a token for a bare seed label. Labels that already
// carry an explicit "predicate: value" form keep their predicate.
func seedToken(category fact.Category, defaultPredicate, label string) string {
	predicate := defaultPredicate
	value := label
	if i := strings.Index(label, ":"); i > 0 {
		predicate = strings.TrimSpace(label[:i])
		value = label[i+1:]
	}
	return normalizeToken(fmt.Sprintf("%s:%s:%s", category, predicate, strings.TrimSpace(value)))
}

// CandidateFromFacts reduces a client's stored facts to a pool candidate
func CandidateFromFacts(clientID, businessType string, facts []fact.Fact) Candidate {
	cand := Candidate{ClientID: clientID, BusinessType: businessType}
	for _, ft := range facts {
		cand.Tokens = append(cand.Tokens, normalizeToken(ft.Token()))
	}
	return cand
}

func normalizeToken(tok string) string {
	return strings.Join(strings.Fields(strings.ToLower(tok)), " ")
}
