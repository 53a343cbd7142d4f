package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/OFFIS-RIT/curator/internal/util"
	"github.com/OFFIS-RIT/curator/pkg/common"
)

// MemoryGraph is an in-memory PropertyGraph. All methods are safe for
// concurrent use; mutations take the write lock, queries the read lock.
//
// Outgoing edges are indexed by source, incoming node edges by target.
// Literal targets only appear in the outgoing index.
type MemoryGraph struct {
	mu    sync.RWMutex
	nodes map[string]common.Node
	out   map[string][]common.Edge
	in    map[string][]common.Edge
}

// NewMemoryGraph returns an empty graph.
func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		nodes: make(map[string]common.Node),
		out:   make(map[string][]common.Edge),
		in:    make(map[string][]common.Edge),
	}
}

func (g *MemoryGraph) CreateNode(ctx context.Context, typ common.NodeType, id string) (common.Node, error) {
	if !typ.Valid() {
		return common.Node{}, fmt.Errorf("unknown node type %q", typ)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if id == "" {
		for {
			generated, err := util.NewID()
			if err != nil {
				return common.Node{}, fmt.Errorf("failed to generate node id: %w", err)
			}
			if _, exists := g.nodes[generated]; !exists {
				id = generated
				break
			}
		}
	}
	if _, exists := g.nodes[id]; exists {
		return common.Node{}, fmt.Errorf("%w: %s", ErrNodeExists, id)
	}

	node := common.Node{ID: id, Type: typ}
	g.nodes[id] = node
	return node, nil
}

func (g *MemoryGraph) GetNode(ctx context.Context, id string) (common.Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	node, ok := g.nodes[id]
	if !ok {
		return common.Node{}, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return node, nil
}

func (g *MemoryGraph) DeleteNode(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	for _, e := range g.out[id] {
		if e.Target.IsNode() && e.Target.ID != id {
			g.in[e.Target.ID] = filterEdges(g.in[e.Target.ID], func(o common.Edge) bool {
				return o.Source == id
			})
		}
	}
	for _, e := range g.in[id] {
		if e.Source != id {
			g.out[e.Source] = filterEdges(g.out[e.Source], func(o common.Edge) bool {
				return o.Target.IsNode() && o.Target.ID == id
			})
		}
	}

	delete(g.out, id)
	delete(g.in, id)
	delete(g.nodes, id)
	return nil
}

func (g *MemoryGraph) Nodes(ctx context.Context, typ common.NodeType) ([]common.Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	res := make([]common.Node, 0)
	for _, node := range g.nodes {
		if node.Type.Is(typ) {
			res = append(res, node)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].ID < res[j].ID
	})
	return res, nil
}

func (g *MemoryGraph) AddEdge(ctx context.Context, edge common.Edge) error {
	if edge.Label == "" {
		return fmt.Errorf("%w: edge label", ErrMissingParameter)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[edge.Source]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, edge.Source)
	}
	if edge.Target.IsNode() {
		if _, ok := g.nodes[edge.Target.ID]; !ok {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, edge.Target.ID)
		}
		g.in[edge.Target.ID] = append(g.in[edge.Target.ID], edge)
	}
	g.out[edge.Source] = append(g.out[edge.Source], edge)
	return nil
}

func (g *MemoryGraph) RemoveEdge(ctx context.Context, edge common.Edge) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	same := func(o common.Edge) bool { return o == edge }

	before := len(g.out[edge.Source])
	g.out[edge.Source] = filterEdges(g.out[edge.Source], same)
	if len(g.out[edge.Source]) == before {
		return fmt.Errorf("%w: %s -%s-> %s", ErrEdgeNotFound, edge.Source, edge.Label, edge.Target)
	}
	if edge.Target.IsNode() {
		g.in[edge.Target.ID] = filterEdges(g.in[edge.Target.ID], same)
	}
	return nil
}

func (g *MemoryGraph) HasEdge(ctx context.Context, edge common.Edge) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, o := range g.out[edge.Source] {
		if o == edge {
			return true, nil
		}
	}
	return false, nil
}

func (g *MemoryGraph) OutgoingEdges(ctx context.Context, id string, label string) ([]common.Edge, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return selectEdges(g.out[id], label), nil
}

func (g *MemoryGraph) IncomingEdges(ctx context.Context, id string, label string) ([]common.Edge, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return selectEdges(g.in[id], label), nil
}

func selectEdges(edges []common.Edge, label string) []common.Edge {
	res := make([]common.Edge, 0, len(edges))
	for _, e := range edges {
		if label == "" || e.Label == label {
			res = append(res, e)
		}
	}
	return res
}

// filterEdges drops every edge matching drop. It always allocates so that
// slices previously handed out to callers are never mutated.
func filterEdges(edges []common.Edge, drop func(common.Edge) bool) []common.Edge {
	res := make([]common.Edge, 0, len(edges))
	for _, e := range edges {
		if !drop(e) {
			res = append(res, e)
		}
	}
	return res
}
