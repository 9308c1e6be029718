package fact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Category classifies an extracted fact
type Category string

const (
	CategoryBehavioral    Category = "behavioral"
	CategoryDrivingForce  Category = "driving_force"
	CategoryCommunication Category = "communication"
	CategoryMotivator     Category = "motivator"
	CategoryRisk          Category = "risk"
	CategoryOther         Category = "other"
)

// Fact is an atomic extracted statement with source attribution
type Fact struct {
	ClientID      string   `json:"client_id"`
	Category      Category `json:"category"`
	Predicate     string   `json:"predicate"`
	Value         string   `json:"value"`
	SourcePage    int      `json:"source_page"`
	SourceSnippet string   `json:"source_snippet"`
	ContentHash   string   `json:"content_hash"`
	DocumentHash  string   `json:"document_hash,omitempty"`
	CreatedAt     string   `json:"created_at,omitempty"`
}

// IngestionRecord tracks one document upload for a client
type IngestionRecord struct {
	ID           string    `json:"id"`
	ClientID     string    `json:"client_id"`
	DocumentHash string    `json:"document_hash"`
	BusinessType string    `json:"business_type,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// ContentHash computes the deterministic dedup hash over the identity
// fields of a fact. Snippets are excluded so re-phrased evidence windows
// do not defeat dedup.
func ContentHash(clientID string, category Category, predicate, value string, page int) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%d", clientID, category, predicate, value, page)
	return hex.EncodeToString(h.Sum(nil))
}

// DocumentHash identifies raw uploaded bytes for idempotent re-upload
// detection
func DocumentHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:32]
}

// Seal fills in the content hash from the fact's identity fields
func (f *Fact) Seal() {
	f.ContentHash = ContentHash(f.ClientID, f.Category, f.Predicate, f.Value, f.SourcePage)
}

// Token returns the profile-vector token for this fact
func (f *Fact) Token() string {
	return fmt.Sprintf("%s:%s:%s", f.Category, f.Predicate, f.Value)
}

// ValidCategory reports whether c is one of the known categories
func ValidCategory(c Category) bool {
	switch c {
	case CategoryBehavioral, CategoryDrivingForce, CategoryCommunication,
		CategoryMotivator, CategoryRisk, CategoryOther:
		return true
	}
	return false
}
