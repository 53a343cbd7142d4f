package merge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/OFFIS-RIT/curator/pkg/common"
	"github.com/OFFIS-RIT/curator/pkg/graph"
	"github.com/OFFIS-RIT/curator/pkg/logger"
)

// ContextMerger merges nodes that are connected to exactly the same
// neighbours of a given type through the same labels.
type ContextMerger struct {
	graph  graph.PropertyGraph
	merger *Merger
}

func NewContextMerger(g graph.PropertyGraph) *ContextMerger {
	return &ContextMerger{graph: g, merger: NewMerger(g)}
}

// Run merges all nodes of the selection whose signature is identical.
// Nodes without any connection to a restriction-typed neighbour share the
// signature "Type()" and are merged with each other as well.
func (c *ContextMerger) Run(ctx context.Context, selection []string, restriction common.NodeType) (Stats, error) {
	if !restriction.Valid() {
		return Stats{}, fmt.Errorf("%w: valid restriction type, got %q", graph.ErrMissingParameter, restriction)
	}

	buckets := make(map[string][]string)
	for _, id := range selection {
		if err := ctx.Err(); err != nil {
			return Stats{}, err
		}
		sig, err := c.Signature(ctx, id, restriction)
		if err != nil {
			return Stats{}, err
		}
		buckets[sig] = append(buckets[sig], id)
	}

	groups := make([][]string, 0, len(buckets))
	for _, members := range buckets {
		members = distinctSorted(members)
		if len(members) > 1 {
			groups = append(groups, members)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })
	logger.Debug("[Merge] context signatures computed", "nodes", len(selection), "signatures", len(buckets), "groups", len(groups))

	return c.merger.Merge(ctx, groups)
}

// Signature returns the context signature of id: its type followed by the
// sorted "label-neighbour" pairs of every connection to a node whose type is
// restriction or a subtype of it. Direction is not part of the signature.
func (c *ContextMerger) Signature(ctx context.Context, id string, restriction common.NodeType) (string, error) {
	node, err := c.graph.GetNode(ctx, id)
	if err != nil {
		return "", err
	}
	conns, err := graph.FindConnections(ctx, c.graph, id)
	if err != nil {
		return "", err
	}

	keys := make([]string, 0, len(conns))
	seen := make(map[string]struct{}, len(conns))
	for _, conn := range conns {
		if !conn.Neighbor.IsNode() {
			continue
		}
		neighbor, err := c.graph.GetNode(ctx, conn.Neighbor.ID)
		if err != nil {
			return "", fmt.Errorf("failed to resolve neighbour of %s: %w", id, err)
		}
		if !neighbor.Type.Is(restriction) {
			continue
		}
		key := conn.Label + "-" + neighbor.ID
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return string(node.Type) + "(" + strings.Join(keys, ",") + ")", nil
}
