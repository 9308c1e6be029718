package generate

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Zmugha1/sandi-bot/internal/fact"
	"github.com/Zmugha1/sandi-bot/pkg/errors"
	"github.com/Zmugha1/sandi-bot/pkg/logger"
)

// notEnoughEvidence is the sentinel the model answers with when the pack
// cannot support the task
const notEnoughEvidence = "Not enough evidence"

// Result is the output of a grounded generation: the text plus the exact
// fact hashes it is traceable to, for rendering "Facts Used".
type Result struct {
	Text      string   `json:"text"`
	FactsUsed []string `json:"facts_used"`
	// Insufficient is set when there were no facts to reason over; the
	// caller must treat this as a valid empty outcome, not a failure.
	Insufficient bool `json:"insufficient,omitempty"`
}

// Generator wraps the external completion collaborator with the grounding
// contract: output must cite pack facts, citations are verified post hoc,
// and an ungrounded response is retried once with a stricter constraint
// before failing.
type Generator struct {
	completer Completer
	logger    *zap.Logger
}

// NewGenerator creates a grounded generator over a completion backend
func NewGenerator(completer Completer) *Generator {
	return &Generator{
		completer: completer,
		logger:    logger.Get(),
	}
}

// Generate produces task text constrained to the supplied fact subset.
// FactsUsed in the result is always a subset of the supplied facts; any
// output that cannot be mapped back is rejected with ErrUngroundedOutput
// and never returned.
func (g *Generator) Generate(ctx context.Context, task Task, facts []fact.Fact) (*Result, error) {
	if len(facts) == 0 {
		return &Result{Insufficient: true}, nil
	}

	pack := BuildPack(facts)
	userPrompt := buildUserPrompt(task, pack)
	maxTokens := specFor(task).maxTokens

	text, err := g.completer.Complete(ctx, groundingInstruction, userPrompt, maxTokens)
	if err != nil {
		return nil, err
	}
	result, verr := verify(text, pack)
	if verr == nil {
		return result, nil
	}

	// one stricter retry before surfacing the grounding failure
	g.logger.Warn("Ungrounded model output, retrying with stricter constraint",
		zap.String("task", string(task)),
		zap.Error(verr),
	)
	text, err = g.completer.Complete(ctx, stricterInstruction, userPrompt, maxTokens)
	if err != nil {
		return nil, err
	}
	result, verr = verify(text, pack)
	if verr != nil {
		g.logger.Error("Ungrounded model output after retry, discarding response",
			zap.String("task", string(task)),
			zap.Error(verr),
		)
		return nil, verr
	}
	return result, nil
}

var citationRe = regexp.MustCompile(`\[?(F\d+)\]?`)
var factsUsedLineRe = regexp.MustCompile(`(?im)^\s*facts used:\s*(.*)$`)

// verify maps the model's citations back to pack facts. Every cited id
// must resolve to a pack entry and at least one citation must be present;
// otherwise the output is ungrounded.
func verify(text string, pack *Pack) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.NewUngroundedOutput(nil, "empty response")
	}
	if strings.EqualFold(text, notEnoughEvidence) || strings.EqualFold(strings.TrimRight(text, "."), notEnoughEvidence) {
		return &Result{Text: text, Insufficient: true}, nil
	}

	var cited []string
	seen := make(map[string]struct{})

	collect := func(s string) {
		for _, m := range citationRe.FindAllStringSubmatch(s, -1) {
			ref := m[1]
			if _, dup := seen[ref]; dup {
				continue
			}
			seen[ref] = struct{}{}
			cited = append(cited, ref)
		}
	}

	body := text
	if loc := factsUsedLineRe.FindStringSubmatchIndex(text); loc != nil {
		collect(text[loc[2]:loc[3]])
		body = text[:loc[0]] + text[loc[1]:]
	}
	collect(body)

	if len(cited) == 0 {
		return nil, errors.NewUngroundedOutput(nil, "no fact citations in output")
	}

	var hashes []string
	for _, ref := range cited {
		hash, ok := pack.Resolve(ref)
		if !ok {
			return nil, errors.NewUngroundedOutput(cited, "cited fact "+ref+" is not in the supplied subset")
		}
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)

	return &Result{Text: text, FactsUsed: hashes}, nil
}
