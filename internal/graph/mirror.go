package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/Zmugha1/sandi-bot/pkg/errors"
	"github.com/Zmugha1/sandi-bot/pkg/logger"
)

// Mirror pushes the in-memory graph into Neo4j for external inspection
// and visualization. It is a write-only side channel: nothing in the
// pipeline reads the mirror back, and a mirror failure never invalidates
// the in-process graph.
type Mirror struct {
	driver neo4j.DriverWithContext
	uri    string
	logger *zap.Logger
}

// NewMirror connects a mirror to a Neo4j instance
func NewMirror(uri, user, password string) (*Mirror, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, errors.NewMirrorFailed(uri, err)
	}
	return &Mirror{
		driver: driver,
		uri:    uri,
		logger: logger.Get(),
	}, nil
}

// Close closes the Neo4j driver connection
func (m *Mirror) Close(ctx context.Context) error {
	return m.driver.Close(ctx)
}

// Verify checks connectivity to the mirror
func (m *Mirror) Verify(ctx context.Context) error {
	if err := m.driver.VerifyConnectivity(ctx); err != nil {
		return errors.NewMirrorFailed(m.uri, err)
	}
	return nil
}

// Push replaces the mirrored graph with the current one. The mirror holds
// only derived data, so a wholesale clear-and-rewrite mirrors the
// rebuild-from-scratch semantics of the snapshot file.
func (m *Mirror) Push(ctx context.Context, g *Graph) error {
	session := m.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	if _, err := session.Run(ctx,
		`MATCH (n) WHERE n:Client OR n:Attribute DETACH DELETE n`, nil); err != nil {
		return errors.NewMirrorFailed(m.uri, fmt.Errorf("failed to clear mirror: %w", err))
	}

	for _, n := range g.Nodes() {
		var query string
		params := map[string]interface{}{"id": n.ID}
		switch n.Kind {
		case KindClient:
			query = `
				MERGE (c:Client {id: $id})
				SET c.client_id = $clientID,
				    c.business_type = $businessType
			`
			params["clientID"] = n.ClientID
			params["businessType"] = n.BusinessType
		case KindAttribute:
			query = `
				MERGE (a:Attribute {id: $id})
				SET a.category = $category,
				    a.predicate = $predicate,
				    a.value = $value
			`
			params["category"] = string(n.Category)
			params["predicate"] = n.Predicate
			params["value"] = n.Value
		}
		if _, err := session.Run(ctx, query, params); err != nil {
			return errors.NewMirrorFailed(m.uri, fmt.Errorf("failed to mirror node %s: %w", n.ID, err))
		}
	}

	for _, e := range g.Edges() {
		query := `
			MATCH (c:Client {id: $clientNodeID})
			MATCH (a:Attribute {id: $attributeNodeID})
			MERGE (c)-[r:HAS_ATTRIBUTE]->(a)
			SET r.weight = $weight,
			    r.pages = $pages
		`
		pages := make([]interface{}, len(e.Pages))
		for i, p := range e.Pages {
			pages[i] = p
		}
		if _, err := session.Run(ctx, query, map[string]interface{}{
			"clientNodeID":    e.ClientNodeID,
			"attributeNodeID": e.AttributeNodeID,
			"weight":          e.Weight,
			"pages":           pages,
		}); err != nil {
			return errors.NewMirrorFailed(m.uri, fmt.Errorf("failed to mirror edge: %w", err))
		}
	}

	m.logger.Info("Graph mirrored",
		zap.String("uri", m.uri),
		zap.Int("nodes", len(g.Nodes())),
		zap.Int("edges", len(g.Edges())),
	)
	return nil
}
