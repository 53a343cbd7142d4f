package merge

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/OFFIS-RIT/curator/pkg/common"
	"github.com/OFFIS-RIT/curator/pkg/graph"
	"github.com/OFFIS-RIT/curator/pkg/logger"
)

// Stats summarizes a merge run.
type Stats struct {
	// Groups is the number of groups with at least two members.
	Groups int `json:"groups"`
	// Removed is the number of nodes deleted in favour of a survivor.
	Removed int `json:"removed"`
	// EdgesAdded counts the edges re-pointed onto survivors.
	EdgesAdded int `json:"edges_added"`
}

func (s *Stats) add(o Stats) {
	s.Groups += o.Groups
	s.Removed += o.Removed
	s.EdgesAdded += o.EdgesAdded
}

// Merger collapses groups of redundant nodes into one survivor each.
type Merger struct {
	graph graph.PropertyGraph
}

func NewMerger(g graph.PropertyGraph) *Merger {
	return &Merger{graph: g}
}

// Merge collapses every group into its lexicographically smallest member.
//
// All connections of all members are re-pointed onto the survivor before the
// other members are deleted. An edge between two members of the same group
// becomes a self-loop on the survivor. Edges the survivor already has are
// not added again, and members that no longer exist are ignored, so merging
// an already merged group changes nothing.
//
// Groups are processed one after another. When a group fails, the groups
// before it stay merged and the returned Stats cover them.
func (m *Merger) Merge(ctx context.Context, groups [][]string) (Stats, error) {
	var stats Stats
	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		s, err := m.mergeGroup(ctx, group)
		stats.add(s)
		if err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (m *Merger) mergeGroup(ctx context.Context, group []string) (Stats, error) {
	members, err := m.existing(ctx, distinctSorted(group))
	if err != nil {
		return Stats{}, err
	}
	if len(members) < 2 {
		return Stats{}, nil
	}
	survivor := members[0]

	inGroup := make(map[string]struct{}, len(members))
	for _, id := range members {
		inGroup[id] = struct{}{}
	}

	var stats Stats
	seen := make(map[string]struct{})
	for _, id := range members {
		conns, err := graph.FindConnections(ctx, m.graph, id)
		if err != nil {
			return stats, fmt.Errorf("failed to collect connections of %s: %w", id, err)
		}
		for _, c := range conns {
			if c.Neighbor.IsNode() {
				if _, ok := inGroup[c.Neighbor.ID]; ok {
					c.Neighbor = common.NodeTerm(survivor)
				}
			}
			key := c.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			edge := c.EdgeFor(survivor)
			exists, err := m.graph.HasEdge(ctx, edge)
			if err != nil {
				return stats, err
			}
			if exists {
				continue
			}
			if err := m.graph.AddEdge(ctx, edge); err != nil {
				return stats, fmt.Errorf("failed to re-point edge onto %s: %w", survivor, err)
			}
			stats.EdgesAdded++
		}
	}

	for _, id := range members[1:] {
		if err := m.graph.DeleteNode(ctx, id); err != nil {
			return stats, fmt.Errorf("failed to delete merged node %s: %w", id, err)
		}
		stats.Removed++
	}
	stats.Groups = 1

	logger.Debug("[Merge] collapsed group", "survivor", survivor, "removed", stats.Removed, "edges", stats.EdgesAdded)
	return stats, nil
}

// existing drops members that are no longer in the graph. A non-empty group
// without any remaining member is an error.
func (m *Merger) existing(ctx context.Context, members []string) ([]string, error) {
	if len(members) == 0 {
		return members, nil
	}
	res := make([]string, 0, len(members))
	for _, id := range members {
		_, err := m.graph.GetNode(ctx, id)
		if errors.Is(err, graph.ErrNodeNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		res = append(res, id)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("%w: no member of group %v", graph.ErrNodeNotFound, members)
	}
	return res, nil
}

func distinctSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	res := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		res = append(res, id)
	}
	sort.Strings(res)
	return res
}
