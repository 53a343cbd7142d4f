package merge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/OFFIS-RIT/curator/pkg/graph"
)

// KeySeparator joins the values of a composite key.
const KeySeparator = ";"

// KeyPolicy controls how nodes are keyed by their cross references.
type KeyPolicy struct {
	// Authority selects the cross references that provide keys.
	Authority string `json:"authority" validate:"required"`
	// UniqueKeys fails the run when a node has more than one value.
	UniqueKeys bool `json:"unique_keys"`
	// AllMustMatch keys a node by all of its values at once, so two nodes
	// only match when their value sets are equal.
	AllMustMatch bool `json:"all_must_match"`
}

// keyIndex groups nodes that share at least one key. Groups are closed
// transitively: nodes sharing a key with any member join the whole group.
type keyIndex struct {
	parent map[string]string
	owner  map[string]string
	keys   []string
	// comps caches root -> sorted members; reset by add.
	comps map[string][]string
}

func newKeyIndex() *keyIndex {
	return &keyIndex{
		parent: make(map[string]string),
		owner:  make(map[string]string),
	}
}

func (ix *keyIndex) find(x string) string {
	if _, ok := ix.parent[x]; !ok {
		ix.parent[x] = x
	}
	if ix.parent[x] != x {
		ix.parent[x] = ix.find(ix.parent[x])
	}
	return ix.parent[x]
}

func (ix *keyIndex) union(x, y string) {
	px, py := ix.find(x), ix.find(y)
	if px == py {
		return
	}
	// Keep the smaller id as root so group order is stable.
	if px < py {
		ix.parent[py] = px
	} else {
		ix.parent[px] = py
	}
}

func (ix *keyIndex) add(node, key string) {
	ix.comps = nil
	ix.find(node)
	owner, ok := ix.owner[key]
	if !ok {
		ix.owner[key] = node
		ix.keys = append(ix.keys, key)
		return
	}
	ix.union(node, owner)
}

// Keys returns all registered keys in sorted order.
func (ix *keyIndex) Keys() []string {
	keys := append([]string(nil), ix.keys...)
	sort.Strings(keys)
	return keys
}

// components returns root -> sorted members, computed once per index state.
func (ix *keyIndex) components() map[string][]string {
	if ix.comps != nil {
		return ix.comps
	}
	comps := make(map[string][]string)
	for id := range ix.parent {
		root := ix.find(id)
		comps[root] = append(comps[root], id)
	}
	for _, group := range comps {
		sort.Strings(group)
	}
	ix.comps = comps
	return comps
}

// Bucket returns the sorted group holding key, or nil for unknown keys. The
// slice is shared with the index and must not be modified.
func (ix *keyIndex) Bucket(key string) []string {
	owner, ok := ix.owner[key]
	if !ok {
		return nil
	}
	return ix.components()[ix.find(owner)]
}

// Groups returns every group with at least minSize members, ordered by
// their smallest member.
func (ix *keyIndex) Groups(minSize int) [][]string {
	comps := ix.components()
	res := make([][]string, 0, len(comps))
	for _, group := range comps {
		if len(group) < minSize {
			continue
		}
		res = append(res, append([]string(nil), group...))
	}
	sort.Slice(res, func(i, j int) bool { return res[i][0] < res[j][0] })
	return res
}

// computeKeyIndex keys every node of the selection by the values of its
// cross references under policy.Authority. Nodes without such values are
// skipped.
func computeKeyIndex(ctx context.Context, g graph.PropertyGraph, selection []string, policy KeyPolicy) (*keyIndex, error) {
	ix := newKeyIndex()
	for _, node := range selection {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		values, err := graph.XRefValues(ctx, g, node, policy.Authority)
		if err != nil {
			return nil, fmt.Errorf("failed to read cross references of %s: %w", node, err)
		}
		if len(values) == 0 {
			continue
		}
		if policy.UniqueKeys && len(values) > 1 {
			return nil, &graph.InconsistencyError{
				Node:      node,
				Authority: policy.Authority,
				Reason:    fmt.Sprintf("%d values where a unique key is required", len(values)),
			}
		}
		if policy.AllMustMatch {
			ix.add(node, strings.Join(values, KeySeparator))
			continue
		}
		for _, v := range values {
			ix.add(node, v)
		}
	}
	return ix, nil
}
