package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/OFFIS-RIT/curator/pkg/common"
)

// Snapshot is a portable copy of a whole graph. Nodes are ordered by id and
// edges by source node, then insertion order.
type Snapshot struct {
	Nodes []common.Node `json:"nodes"`
	Edges []common.Edge `json:"edges"`
}

// Export copies every node and edge of g into a Snapshot.
func Export(ctx context.Context, g PropertyGraph) (*Snapshot, error) {
	nodes, err := g.Nodes(ctx, common.TypeThing)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	snap := &Snapshot{Nodes: nodes, Edges: make([]common.Edge, 0)}
	for _, n := range nodes {
		edges, err := g.OutgoingEdges(ctx, n.ID, "")
		if err != nil {
			return nil, fmt.Errorf("failed to list edges of %s: %w", n.ID, err)
		}
		snap.Edges = append(snap.Edges, edges...)
	}
	return snap, nil
}

// Import adds the content of snap to g: all nodes first, then all edges.
func Import(ctx context.Context, g PropertyGraph, snap *Snapshot) error {
	for _, n := range snap.Nodes {
		if _, err := g.CreateNode(ctx, n.Type, n.ID); err != nil {
			return fmt.Errorf("failed to import node %s: %w", n.ID, err)
		}
	}
	for _, e := range snap.Edges {
		if err := g.AddEdge(ctx, e); err != nil {
			return fmt.Errorf("failed to import edge %s -%s-> %s: %w", e.Source, e.Label, e.Target, err)
		}
	}
	return nil
}

// ReadSnapshot decodes a JSON snapshot.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	snap := new(Snapshot)
	if err := json.NewDecoder(r).Decode(snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}

// WriteSnapshot encodes snap as indented JSON.
func WriteSnapshot(w io.Writer, snap *Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
