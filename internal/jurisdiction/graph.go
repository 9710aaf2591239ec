package jurisdiction

import (
	"context"
	"fmt"
	"strings"
	"sync"

	id "fieldops/pkg/domain"
	"fieldops/pkg/platform/sentinel"
)

// Node is one administrative unit. ParentID is empty for a root.
type Node struct {
	ID           id.JurisdictionID
	ParentID     id.JurisdictionID
	LevelID      string
	Abbreviation string
	Name         string
}

// IsRoot reports whether the node has no parent.
func (n Node) IsRoot() bool { return n.ParentID == "" }

// Graph is the read-only jurisdiction data source.
type Graph interface {
	// Node returns sentinel.ErrNotFound for unknown ids.
	Node(ctx context.Context, jurisdictionID id.JurisdictionID) (*Node, error)
	// Children returns the direct children of every parent, in one round trip.
	Children(ctx context.Context, parents []id.JurisdictionID) ([]id.JurisdictionID, error)
}

// InMemoryGraph is a Graph over a fixed node list.
type InMemoryGraph struct {
	mu       sync.RWMutex
	nodes    map[id.JurisdictionID]Node
	children map[id.JurisdictionID][]id.JurisdictionID
}

// NewInMemoryGraph indexes nodes. Ids must be unique; parents need not be
// present so partial extracts of the reference data load cleanly.
func NewInMemoryGraph(nodes []Node) (*InMemoryGraph, error) {
	g := &InMemoryGraph{
		nodes:    make(map[id.JurisdictionID]Node, len(nodes)),
		children: make(map[id.JurisdictionID][]id.JurisdictionID),
	}
	for _, n := range nodes {
		if err := g.add(n); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Add inserts a node; the graph only grows.
func (g *InMemoryGraph) Add(n Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.add(n)
}

// cleanNode trims the identifiers a node is joined on.
func cleanNode(n Node) Node {
	n.ID = id.JurisdictionID(strings.TrimSpace(string(n.ID)))
	n.ParentID = id.JurisdictionID(strings.TrimSpace(string(n.ParentID)))
	return n
}

func (g *InMemoryGraph) add(n Node) error {
	n = cleanNode(n)
	if n.ID == "" {
		return fmt.Errorf("jurisdiction node without id")
	}
	if _, dup := g.nodes[n.ID]; dup {
		return fmt.Errorf("jurisdiction %s: %w", n.ID, sentinel.ErrAlreadyUsed)
	}
	g.nodes[n.ID] = n
	if n.ParentID != "" {
		g.children[n.ParentID] = append(g.children[n.ParentID], n.ID)
	}
	return nil
}

func (g *InMemoryGraph) Node(_ context.Context, jurisdictionID id.JurisdictionID) (*Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[jurisdictionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &n, nil
}

func (g *InMemoryGraph) Children(_ context.Context, parents []id.JurisdictionID) ([]id.JurisdictionID, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []id.JurisdictionID
	for _, p := range parents {
		out = append(out, g.children[p]...)
	}
	return out, nil
}
