package merge

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/curator/pkg/common"
	"github.com/OFFIS-RIT/curator/pkg/graph"
	"github.com/OFFIS-RIT/curator/pkg/logger"
)

// XRefMerger merges nodes of a selection that share cross reference values
// under one authority.
type XRefMerger struct {
	graph  graph.PropertyGraph
	policy KeyPolicy
	merger *Merger
}

func NewXRefMerger(g graph.PropertyGraph, policy KeyPolicy) *XRefMerger {
	return &XRefMerger{
		graph:  g,
		policy: policy,
		merger: NewMerger(g),
	}
}

// Run indexes the whole selection first and then merges every group of two
// or more nodes in one Merger call.
func (x *XRefMerger) Run(ctx context.Context, selection []string) (Stats, error) {
	if x.policy.Authority == "" {
		return Stats{}, fmt.Errorf("%w: authority", graph.ErrMissingParameter)
	}

	ix, err := computeKeyIndex(ctx, x.graph, selection, x.policy)
	if err != nil {
		return Stats{}, err
	}
	groups := ix.Groups(2)
	logger.Debug("[XRef] indexed selection", "authority", x.policy.Authority, "nodes", len(selection), "groups", len(groups))

	return x.merger.Merge(ctx, groups)
}

// XRefLinker adds an edge from every node of a "from" selection to every
// node of a "to" selection that shares a cross reference key.
type XRefLinker struct {
	graph    graph.PropertyGraph
	policy   KeyPolicy
	property string
}

func NewXRefLinker(g graph.PropertyGraph, policy KeyPolicy, property string) *XRefLinker {
	return &XRefLinker{
		graph:    g,
		policy:   policy,
		property: property,
	}
}

// Run links the two selections and returns the number of edges created.
// Both selections are indexed independently and edges only ever point from
// a "from" node to a "to" node. Existing edges are not added again.
func (l *XRefLinker) Run(ctx context.Context, from, to []string) (int, error) {
	if l.policy.Authority == "" {
		return 0, fmt.Errorf("%w: authority", graph.ErrMissingParameter)
	}
	if l.property == "" {
		return 0, fmt.Errorf("%w: property", graph.ErrMissingParameter)
	}

	// Sequential on purpose: a transactional store shares one connection.
	fromIx, err := computeKeyIndex(ctx, l.graph, from, l.policy)
	if err != nil {
		return 0, err
	}
	toIx, err := computeKeyIndex(ctx, l.graph, to, l.policy)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, key := range fromIx.Keys() {
		targets := toIx.Bucket(key)
		if len(targets) == 0 {
			continue
		}
		for _, src := range fromIx.Bucket(key) {
			for _, dst := range targets {
				if err := ctx.Err(); err != nil {
					return created, err
				}
				edge := common.Edge{Source: src, Label: l.property, Target: common.NodeTerm(dst)}
				exists, err := l.graph.HasEdge(ctx, edge)
				if err != nil {
					return created, err
				}
				if exists {
					continue
				}
				if err := l.graph.AddEdge(ctx, edge); err != nil {
					return created, fmt.Errorf("failed to link %s to %s: %w", src, dst, err)
				}
				created++
			}
		}
	}

	logger.Debug("[XRef] linked selections", "authority", l.policy.Authority, "property", l.property, "edges", created)
	return created, nil
}
