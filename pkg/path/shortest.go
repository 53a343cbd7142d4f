package path

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/OFFIS-RIT/curator/pkg/graph"
	"github.com/OFFIS-RIT/curator/pkg/logger"
)

// PathNode is one step of a search result. Walking Prev leads back to the
// source, which has no predecessor and distance 0.
type PathNode struct {
	Prev     *PathNode `json:"-"`
	Node     string    `json:"node"`
	Distance int       `json:"distance"`
}

// Path returns the node ids from the source to n.
func (n *PathNode) Path() []string {
	if n == nil {
		return nil
	}
	res := make([]string, n.Distance+1)
	i := n.Distance
	for cur := n; cur != nil && i >= 0; cur = cur.Prev {
		res[i] = cur.Node
		i--
	}
	return res
}

// Finder searches minimum-hop paths over a PropertyGraph, moving one
// pattern match per hop.
type Finder struct {
	graph graph.PropertyGraph
	// Parallel bounds the number of concurrent searches in Distances.
	// Values below 1 mean one search at a time.
	Parallel int
}

func NewFinder(g graph.PropertyGraph) *Finder {
	return &Finder{graph: g, Parallel: 1}
}

// Find returns the nearest target reachable from source, or nil when no
// target can be reached. Each hop follows pattern exactly once and costs 1.
// When several targets are equally near, the one discovered first wins.
func (f *Finder) Find(ctx context.Context, source string, targets []string, pattern graph.Pattern) (*PathNode, error) {
	if err := pattern.Validate(); err != nil {
		return nil, err
	}
	if _, err := f.graph.GetNode(ctx, source); err != nil {
		return nil, err
	}

	isTarget := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		isTarget[t] = struct{}{}
	}
	start := &PathNode{Node: source}
	if _, ok := isTarget[source]; ok {
		return start, nil
	}

	open := newOpenSet()
	closed := make(map[string]struct{})
	open.Push(start)

	expanded := 0
	for open.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		current := open.Pop()
		neighbors, err := graph.Reach(ctx, f.graph, current.Node, pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to expand %s: %w", current.Node, err)
		}
		for _, id := range neighbors {
			next := &PathNode{Prev: current, Node: id, Distance: current.Distance + 1}
			if _, ok := isTarget[id]; ok {
				logger.Debug("[Path] target reached", "source", source, "target", id, "distance", next.Distance, "expanded", expanded)
				return next, nil
			}
			if _, ok := closed[id]; ok {
				continue
			}
			open.Push(next)
		}
		closed[current.Node] = struct{}{}
		expanded++
	}

	logger.Debug("[Path] no target reachable", "source", source, "expanded", expanded)
	return nil, nil
}

// Distance is the outcome of one search started by Distances. Path is nil
// when no target was reachable from Source.
type Distance struct {
	Source string    `json:"source"`
	Path   *PathNode `json:"path"`
}

// Distances runs Find for every source concurrently, bounded by Parallel.
// The graph must be safe for concurrent reads. Results keep the order of
// sources; the first failing search cancels the rest.
func (f *Finder) Distances(ctx context.Context, sources, targets []string, pattern graph.Pattern) ([]Distance, error) {
	if err := pattern.Validate(); err != nil {
		return nil, err
	}

	limit := f.Parallel
	if limit < 1 {
		limit = 1
	}

	res := make([]Distance, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, src := range sources {
		g.Go(func() error {
			p, err := f.Find(gctx, src, targets, pattern)
			if err != nil {
				return fmt.Errorf("shortest path from %s: %w", src, err)
			}
			res[i] = Distance{Source: src, Path: p}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}
