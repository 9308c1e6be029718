package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Zmugha1/sandi-bot/internal/fact"
	"github.com/Zmugha1/sandi-bot/pkg/errors"
	"github.com/Zmugha1/sandi-bot/pkg/logger"
)

// Store is the durable, append-only fact journal plus the ingestion log.
// Facts are never updated or deleted; correcting a fact means appending a
// superseding one. Single-writer discipline is assumed.
type Store struct {
	dir       string
	factsFile *os.File
	ingFile   *os.File

	facts    []fact.Fact
	byClient map[string]map[string]struct{} // client_id -> content_hash set
	ingested map[string]struct{}            // client_id|document_hash
	records  []fact.IngestionRecord

	logger *zap.Logger
}

// Open loads the journals under dir, creating them when absent
func Open(dir string) (*Store, error) {
	kgDir := filepath.Join(dir, "kg")
	if err := os.MkdirAll(kgDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	s := &Store{
		dir:      dir,
		byClient: make(map[string]map[string]struct{}),
		ingested: make(map[string]struct{}),
		logger:   logger.Get(),
	}

	factsPath := filepath.Join(kgDir, "facts.jsonl")
	if err := s.loadFacts(factsPath); err != nil {
		return nil, err
	}
	ingPath := filepath.Join(kgDir, "ingestions.jsonl")
	if err := s.loadIngestions(ingPath); err != nil {
		return nil, err
	}

	var err error
	s.factsFile, err = os.OpenFile(factsPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open fact journal: %w", err)
	}
	s.ingFile, err = os.OpenFile(ingPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.factsFile.Close()
		return nil, fmt.Errorf("failed to open ingestion journal: %w", err)
	}

	s.logger.Info("Fact store opened",
		zap.String("dir", dir),
		zap.Int("facts", len(s.facts)),
		zap.Int("ingestions", len(s.records)),
	)
	return s, nil
}

// Close closes the journal files
func (s *Store) Close() error {
	if err := s.factsFile.Close(); err != nil {
		s.ingFile.Close()
		return err
	}
	return s.ingFile.Close()
}

func (s *Store) loadFacts(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read fact journal: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ft fact.Fact
		if err := json.Unmarshal(line, &ft); err != nil {
			// a torn final line from a crash is skipped, not fatal
			s.logger.Warn("Skipping unreadable journal line", zap.Error(err))
			continue
		}
		s.index(ft)
	}
	return scanner.Err()
}

func (s *Store) loadIngestions(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read ingestion journal: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec fact.IngestionRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			s.logger.Warn("Skipping unreadable ingestion line", zap.Error(err))
			continue
		}
		s.records = append(s.records, rec)
		s.ingested[rec.ClientID+"|"+rec.DocumentHash] = struct{}{}
	}
	return scanner.Err()
}

func (s *Store) index(ft fact.Fact) {
	hashes, ok := s.byClient[ft.ClientID]
	if !ok {
		hashes = make(map[string]struct{})
		s.byClient[ft.ClientID] = hashes
	}
	hashes[ft.ContentHash] = struct{}{}
	s.facts = append(s.facts, ft)
}

// Append deduplicates and appends candidate facts, returning the number
// actually inserted. A candidate whose content hash already exists for its
// client is skipped silently. Each fact is flushed before the next one is
// attempted, so a failure mid-batch keeps everything written so far.
func (s *Store) Append(candidates []fact.Fact) (int, error) {
	inserted := 0
	for _, ft := range candidates {
		if ft.ContentHash == "" {
			ft.Seal()
		}
		if hashes, ok := s.byClient[ft.ClientID]; ok {
			if _, dup := hashes[ft.ContentHash]; dup {
				continue
			}
		}
		if ft.CreatedAt == "" {
			ft.CreatedAt = time.Now().UTC().Format(time.RFC3339)
		}

		line, err := json.Marshal(ft)
		if err != nil {
			return inserted, errors.NewJournalAppendFailed(ft.ClientID, err)
		}
		if _, err := s.factsFile.Write(append(line, '\n')); err != nil {
			return inserted, errors.NewJournalAppendFailed(ft.ClientID, err)
		}
		if err := s.factsFile.Sync(); err != nil {
			return inserted, errors.NewJournalAppendFailed(ft.ClientID, err)
		}

		s.index(ft)
		inserted++
	}
	return inserted, nil
}

// FactsFor returns the facts for one client in append order
func (s *Store) FactsFor(clientID string) []fact.Fact {
	var out []fact.Fact
	for _, ft := range s.facts {
		if ft.ClientID == clientID {
			out = append(out, ft)
		}
	}
	return out
}

// AllFacts returns every stored fact in append order
func (s *Store) AllFacts() []fact.Fact {
	out := make([]fact.Fact, len(s.facts))
	copy(out, s.facts)
	return out
}

// ClientIDs returns the ids of all clients with at least one fact, in
// first-seen order
func (s *Store) ClientIDs() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, ft := range s.facts {
		if _, ok := seen[ft.ClientID]; !ok {
			seen[ft.ClientID] = struct{}{}
			out = append(out, ft.ClientID)
		}
	}
	return out
}

// HasDocument reports whether a document hash was already ingested for a
// client (idempotent re-upload detection)
func (s *Store) HasDocument(clientID, documentHash string) bool {
	_, ok := s.ingested[clientID+"|"+documentHash]
	return ok
}

// RecordIngestion appends one upload record to the ingestion journal
func (s *Store) RecordIngestion(rec fact.IngestionRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode ingestion record: %w", err)
	}
	if _, err := s.ingFile.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append ingestion record: %w", err)
	}
	if err := s.ingFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync ingestion journal: %w", err)
	}
	s.records = append(s.records, rec)
	s.ingested[rec.ClientID+"|"+rec.DocumentHash] = struct{}{}
	return nil
}

// Ingestions returns all ingestion records in append order
func (s *Store) Ingestions() []fact.IngestionRecord {
	out := make([]fact.IngestionRecord, len(s.records))
	copy(out, s.records)
	return out
}

// SaveUpload archives raw document bytes under the uploads directory.
// Archival is best-effort bookkeeping; a failure here never blocks
// ingestion.
func (s *Store) SaveUpload(clientID, documentHash string, raw []byte) (string, error) {
	sub := filepath.Join(s.dir, "uploads", sanitize(clientID))
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return "", err
	}
	name := time.Now().UTC().Format("20060102_150405") + "_" + documentHash
	path := filepath.Join(sub, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) > 80 {
		out = out[:80]
	}
	return string(out)
}
