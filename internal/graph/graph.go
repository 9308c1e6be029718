package graph

import (
	"fmt"
	"sort"

	"github.com/Zmugha1/sandi-bot/internal/fact"
)

// NodeKind discriminates the two node types in the coaching graph
type NodeKind string

const (
	KindClient    NodeKind = "client"
	KindAttribute NodeKind = "attribute"
)

// Node is either a client or a shared attribute. Attribute identity is
// value-equality over (category, predicate, value): two clients with an
// identical trait share one attribute node.
type Node struct {
	ID           string        `json:"id"`
	Kind         NodeKind      `json:"kind"`
	ClientID     string        `json:"client_id,omitempty"`
	BusinessType string        `json:"business_type,omitempty"`
	Category     fact.Category `json:"category,omitempty"`
	Predicate    string        `json:"predicate,omitempty"`
	Value        string        `json:"value,omitempty"`
}

// Edge links a client node to an attribute node. Weight starts at 1 and
// increments only when a distinct fact (a different source page) reinforces
// the same attribute; the page joins the evidence list instead of creating
// a parallel edge.
type Edge struct {
	ClientNodeID    string `json:"client_node_id"`
	AttributeNodeID string `json:"attribute_node_id"`
	Weight          int    `json:"weight"`
	Pages           []int  `json:"pages"`
}

// Graph is a derived, disposable projection of the fact store. It is
// rebuilt from scratch and never the source of truth.
type Graph struct {
	nodes map[string]*Node
	edges map[string]*Edge // key: clientNodeID + "->" + attributeNodeID
}

// ClientNodeID returns the stable node id for a client
func ClientNodeID(clientID string) string {
	return "client:" + clientID
}

// AttributeNodeID returns the stable node id for an attribute
func AttributeNodeID(category fact.Category, predicate, value string) string {
	return fmt.Sprintf("attr:%s:%s:%s", category, predicate, value)
}

// Build projects facts into a typed graph. businessTypes is an optional
// client_id -> business_type annotation for client nodes.
func Build(facts []fact.Fact, businessTypes map[string]string) *Graph {
	g := &Graph{
		nodes: make(map[string]*Node),
		edges: make(map[string]*Edge),
	}
	for _, ft := range facts {
		cid := ClientNodeID(ft.ClientID)
		if _, ok := g.nodes[cid]; !ok {
			g.nodes[cid] = &Node{
				ID:           cid,
				Kind:         KindClient,
				ClientID:     ft.ClientID,
				BusinessType: businessTypes[ft.ClientID],
			}
		}

		aid := AttributeNodeID(ft.Category, ft.Predicate, ft.Value)
		if _, ok := g.nodes[aid]; !ok {
			g.nodes[aid] = &Node{
				ID:        aid,
				Kind:      KindAttribute,
				Category:  ft.Category,
				Predicate: ft.Predicate,
				Value:     ft.Value,
			}
		}

		ekey := cid + "->" + aid
		if e, ok := g.edges[ekey]; ok {
			if !containsInt(e.Pages, ft.SourcePage) {
				e.Pages = append(e.Pages, ft.SourcePage)
				e.Weight++
			}
			continue
		}
		g.edges[ekey] = &Edge{
			ClientNodeID:    cid,
			AttributeNodeID: aid,
			Weight:          1,
			Pages:           []int{ft.SourcePage},
		}
	}
	return g
}

// AttributeEdge pairs an attribute node with the edge carrying its evidence
type AttributeEdge struct {
	Attribute Node  `json:"attribute"`
	Weight    int   `json:"weight"`
	Pages     []int `json:"pages"`
}

// AttributesOf returns the outgoing edges of a client, ordered by
// attribute node id for reproducibility
func (g *Graph) AttributesOf(clientID string) []AttributeEdge {
	cid := ClientNodeID(clientID)
	var out []AttributeEdge
	for _, e := range g.edges {
		if e.ClientNodeID != cid {
			continue
		}
		attr := g.nodes[e.AttributeNodeID]
		pages := make([]int, len(e.Pages))
		copy(pages, e.Pages)
		sort.Ints(pages)
		out = append(out, AttributeEdge{Attribute: *attr, Weight: e.Weight, Pages: pages})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Attribute.ID < out[j].Attribute.ID })
	return out
}

// ClientsWith returns the ids of all clients holding the given attribute,
// ascending
func (g *Graph) ClientsWith(attributeNodeID string) []string {
	var out []string
	for _, e := range g.edges {
		if e.AttributeNodeID == attributeNodeID {
			out = append(out, g.nodes[e.ClientNodeID].ClientID)
		}
	}
	sort.Strings(out)
	return out
}

// Nodes returns all nodes ordered by id
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Edges returns all edges ordered by (client, attribute) id with sorted
// page lists
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		pages := make([]int, len(e.Pages))
		copy(pages, e.Pages)
		sort.Ints(pages)
		out = append(out, Edge{
			ClientNodeID:    e.ClientNodeID,
			AttributeNodeID: e.AttributeNodeID,
			Weight:          e.Weight,
			Pages:           pages,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClientNodeID != out[j].ClientNodeID {
			return out[i].ClientNodeID < out[j].ClientNodeID
		}
		return out[i].AttributeNodeID < out[j].AttributeNodeID
	})
	return out
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
