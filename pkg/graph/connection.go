package graph

import (
	"context"

	"github.com/OFFIS-RIT/curator/pkg/common"
)

// FindConnections returns one Connection per edge touching id: outgoing
// edges with their target, incoming edges with their source. Connections
// are de-duplicated by (direction, label, neighbor) and keep the order in
// which the graph lists the edges, outgoing first.
func FindConnections(ctx context.Context, g PropertyGraph, id string) ([]common.Connection, error) {
	out, err := g.OutgoingEdges(ctx, id, "")
	if err != nil {
		return nil, err
	}
	in, err := g.IncomingEdges(ctx, id, "")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(out)+len(in))
	res := make([]common.Connection, 0, len(out)+len(in))
	add := func(c common.Connection) {
		key := c.Key()
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		res = append(res, c)
	}

	for _, e := range out {
		add(common.Connection{Direction: common.Outgoing, Label: e.Label, Neighbor: e.Target})
	}
	for _, e := range in {
		add(common.Connection{Direction: common.Incoming, Label: e.Label, Neighbor: common.NodeTerm(e.Source)})
	}

	return res, nil
}
