package graph

import (
	"context"

	"github.com/OFFIS-RIT/curator/pkg/common"
)

// PropertyGraph is a mutable, directed multigraph of typed nodes and labeled
// edges. Edges point either to another node or to a literal value.
//
// Every curation algorithm in this module works against this interface
// only. Two implementations exist: MemoryGraph for in-process work and the
// PostgreSQL backed store in pkg/store/pgx.
//
// Implementations report unknown nodes with ErrNodeNotFound and duplicate
// ids with ErrNodeExists. Edge listings are returned in insertion order.
type PropertyGraph interface {
	// CreateNode adds a node of the given type. An empty id lets the graph
	// generate one.
	CreateNode(ctx context.Context, typ common.NodeType, id string) (common.Node, error)
	GetNode(ctx context.Context, id string) (common.Node, error)
	// DeleteNode removes the node together with every incident edge.
	DeleteNode(ctx context.Context, id string) error
	// Nodes lists all nodes of typ or one of its subtypes, ordered by id.
	Nodes(ctx context.Context, typ common.NodeType) ([]common.Node, error)

	AddEdge(ctx context.Context, edge common.Edge) error
	// RemoveEdge removes every edge identical to edge.
	RemoveEdge(ctx context.Context, edge common.Edge) error
	HasEdge(ctx context.Context, edge common.Edge) (bool, error)

	// OutgoingEdges lists edges leaving id. An empty label matches any label.
	OutgoingEdges(ctx context.Context, id string, label string) ([]common.Edge, error)
	// IncomingEdges lists edges whose target is the node id.
	IncomingEdges(ctx context.Context, id string, label string) ([]common.Edge, error)
}

// PatternReacher is implemented by graphs that can evaluate a Pattern
// natively instead of step by step through edge listings.
type PatternReacher interface {
	Reach(ctx context.Context, from string, pattern Pattern) ([]string, error)
}
