package coach

import (
	"context"
	goerrors "errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Zmugha1/sandi-bot/internal/extract"
	"github.com/Zmugha1/sandi-bot/internal/fact"
	"github.com/Zmugha1/sandi-bot/internal/generate"
	"github.com/Zmugha1/sandi-bot/internal/graph"
	"github.com/Zmugha1/sandi-bot/internal/recommend"
	"github.com/Zmugha1/sandi-bot/internal/similarity"
	"github.com/Zmugha1/sandi-bot/internal/store"
	"github.com/Zmugha1/sandi-bot/pkg/errors"
	"github.com/Zmugha1/sandi-bot/pkg/logger"
)

// Service is the knowledge-graph pipeline facade consumed in-process by
// the dashboard layer: ingest, query, similarity, recommendations, and
// grounded generation. Operations are synchronous and single-writer; mu
// serializes ingestion against the read paths since the HTTP layer runs
// handlers concurrently.
type Service struct {
	extractor *extract.Extractor
	store     *store.Store
	simEngine *similarity.Engine
	recEngine *recommend.Engine
	generator *generate.Generator
	mirror    *graph.Mirror // nil when not configured

	snapshotPath string
	logger       *zap.Logger

	mu      sync.RWMutex
	current *graph.Graph
}

// IngestResult reports one upload: how many facts survived dedup and
// whether the document had been seen before
type IngestResult struct {
	FactsAdded      int    `json:"facts_added"`
	AlreadyIngested bool   `json:"already_ingested"`
	Note            string `json:"note,omitempty"`
}

// New wires the pipeline. rules and seeds are the immutable startup
// configuration; mirror may be nil.
func New(st *store.Store, dataDir string, rules []recommend.Rule, seeds []similarity.Candidate, completer generate.Completer, mirror *graph.Mirror) *Service {
	s := &Service{
		extractor:    extract.New(),
		store:        st,
		simEngine:    similarity.NewEngine(seeds),
		recEngine:    recommend.NewEngine(rules),
		generator:    generate.NewGenerator(completer),
		mirror:       mirror,
		snapshotPath: filepath.Join(dataDir, "kg", "graph.json"),
		logger:       logger.Get(),
	}
	s.current = graph.Build(st.AllFacts(), s.businessTypes())
	return s
}

// Ingest runs the full pipeline on one uploaded document: hash check,
// extraction, deduplicated append, graph rebuild. Re-uploading identical
// bytes for the same client is a no-op reported via AlreadyIngested.
func (s *Service) Ingest(ctx context.Context, raw []byte, clientID, businessType string) (*IngestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docHash := fact.DocumentHash(raw)
	if s.store.HasDocument(clientID, docHash) {
		s.logger.Info("Document already ingested",
			zap.String("client_id", clientID),
			zap.String("document_hash", docHash),
		)
		return &IngestResult{AlreadyIngested: true}, nil
	}

	candidates, err := s.extractor.Extract(raw, clientID)
	if err != nil {
		if goerrors.Is(err, errors.ErrNothingExtractable) {
			// parsed fine, nothing matched: record the upload so the
			// re-ingest short-circuit still holds, report zero facts
			if recErr := s.recordIngestion(clientID, docHash, businessType); recErr != nil {
				return nil, recErr
			}
			return &IngestResult{Note: "document produced no extractable facts"}, nil
		}
		return nil, err
	}
	for i := range candidates {
		candidates[i].DocumentHash = docHash
	}

	added, err := s.store.Append(candidates)
	if err != nil {
		// facts committed before the failure point stay committed; the
		// ingestion record is withheld so a retry re-runs extraction
		return nil, err
	}

	if err := s.recordIngestion(clientID, docHash, businessType); err != nil {
		return nil, err
	}
	if _, err := s.store.SaveUpload(clientID, docHash, raw); err != nil {
		s.logger.Warn("Failed to archive upload", zap.Error(err))
	}

	if err := s.rebuildGraph(ctx); err != nil {
		// the journal is the source of truth; a failed projection is
		// recoverable on the next rebuild
		s.logger.Error("Graph rebuild failed after ingest", zap.Error(err))
	}

	s.logger.Info("Document ingested",
		zap.String("client_id", clientID),
		zap.String("document_hash", docHash),
		zap.Int("facts_extracted", len(candidates)),
		zap.Int("facts_added", added),
	)
	return &IngestResult{FactsAdded: added}, nil
}

func (s *Service) recordIngestion(clientID, docHash, businessType string) error {
	return s.store.RecordIngestion(fact.IngestionRecord{
		ID:           uuid.New().String(),
		ClientID:     clientID,
		DocumentHash: docHash,
		BusinessType: businessType,
		Timestamp:    time.Now().UTC(),
	})
}

// RebuildGraph reprojects the whole graph from the journal and persists
// it: snapshot file and, when configured, the Neo4j mirror, concurrently.
// The in-memory graph swaps in regardless of persistence outcome.
func (s *Service) RebuildGraph(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebuildGraph(ctx)
}

// rebuildGraph assumes the caller holds mu
func (s *Service) rebuildGraph(ctx context.Context) error {
	g := graph.Build(s.store.AllFacts(), s.businessTypes())
	s.current = g

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return g.WriteSnapshot(s.snapshotPath)
	})
	if s.mirror != nil {
		eg.Go(func() error {
			return s.mirror.Push(egCtx, g)
		})
	}
	return eg.Wait()
}

// businessTypes maps each client to the business type of its most recent
// ingestion record
func (s *Service) businessTypes() map[string]string {
	out := make(map[string]string)
	for _, rec := range s.store.Ingestions() {
		if rec.BusinessType != "" {
			out[rec.ClientID] = rec.BusinessType
		}
	}
	return out
}

// Graph returns the current in-memory projection
func (s *Service) Graph() *graph.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// FactsFor returns the stored facts of one client in append order
func (s *Service) FactsFor(clientID string) []fact.Fact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.FactsFor(clientID)
}

// Similar ranks the seed population plus other ingested clients against
// the target client's profile vector
func (s *Service) Similar(clientID string, topN int) []similarity.Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	target := similarity.CandidateFromFacts(clientID, "", s.store.FactsFor(clientID))

	types := s.businessTypes()
	var extras []similarity.Candidate
	for _, otherID := range s.store.ClientIDs() {
		if otherID == clientID {
			continue
		}
		extras = append(extras, similarity.CandidateFromFacts(otherID, types[otherID], s.store.FactsFor(otherID)))
	}

	return s.simEngine.Rank(target.Tokens, extras, topN)
}

// Recommend evaluates the rule set against a client's facts. An empty
// list means insufficient evidence, not failure.
func (s *Service) Recommend(clientID string) []recommend.Recommendation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recEngine.Recommend(s.store.FactsFor(clientID))
}

// Generate produces grounded text for a client restricted to the given
// fact hashes. An empty factHashes slice selects all of the client's
// facts (subject to the generator's pack cap).
func (s *Service) Generate(ctx context.Context, task generate.Task, clientID string, factHashes []string) (*generate.Result, error) {
	// hold the lock only for the store read; model inference blocks for
	// its full duration
	s.mu.RLock()
	facts := s.store.FactsFor(clientID)
	s.mu.RUnlock()

	if len(factHashes) > 0 {
		allowed := make(map[string]struct{}, len(factHashes))
		for _, h := range factHashes {
			allowed[h] = struct{}{}
		}
		var subset []fact.Fact
		for _, ft := range facts {
			if _, ok := allowed[ft.ContentHash]; ok {
				subset = append(subset, ft)
			}
		}
		facts = subset
	}
	return s.generator.Generate(ctx, task, facts)
}
