package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/OFFIS-RIT/curator/pkg/common"
)

// XRefID returns the id a cross reference for authority and value is stored
// under. Deterministic ids keep the graph free of duplicate cross references.
func XRefID(authority, value string) string {
	return authority + ":" + value
}

// EnsureAuthority returns the id of the authority called name, creating the
// node if needed.
func EnsureAuthority(ctx context.Context, g PropertyGraph, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: authority name", ErrMissingParameter)
	}
	_, err := g.CreateNode(ctx, common.TypeAuthority, name)
	if err == nil {
		return name, nil
	}
	if !errors.Is(err, ErrNodeExists) {
		return "", err
	}
	return name, expectType(ctx, g, name, common.TypeAuthority)
}

// EnsureXRef returns the cross reference for authority and value, creating
// it with its hasAuthority and hasValue edges if it does not exist yet.
func EnsureXRef(ctx context.Context, g PropertyGraph, authority, value string) (string, error) {
	if authority == "" || value == "" {
		return "", fmt.Errorf("%w: authority and value are required", ErrMissingParameter)
	}
	if err := expectType(ctx, g, authority, common.TypeAuthority); err != nil {
		return "", err
	}

	id := XRefID(authority, value)
	_, err := g.CreateNode(ctx, common.TypeCrossReference, id)
	if errors.Is(err, ErrNodeExists) {
		return id, expectType(ctx, g, id, common.TypeCrossReference)
	}
	if err != nil {
		return "", err
	}

	err = g.AddEdge(ctx, common.Edge{Source: id, Label: common.LabelHasAuthority, Target: common.NodeTerm(authority)})
	if err != nil {
		return "", fmt.Errorf("failed to link xref authority: %w", err)
	}
	err = g.AddEdge(ctx, common.Edge{Source: id, Label: common.LabelHasValue, Target: common.LiteralTerm(value)})
	if err != nil {
		return "", fmt.Errorf("failed to set xref value: %w", err)
	}
	return id, nil
}

// AttachXRef gives node the cross reference (authority, value). Attaching
// the same cross reference twice is a no-op.
func AttachXRef(ctx context.Context, g PropertyGraph, node, authority, value string) (string, error) {
	xref, err := EnsureXRef(ctx, g, authority, value)
	if err != nil {
		return "", err
	}
	edge := common.Edge{Source: node, Label: common.LabelHasXRef, Target: common.NodeTerm(xref)}
	exists, err := g.HasEdge(ctx, edge)
	if err != nil {
		return "", err
	}
	if !exists {
		if err := g.AddEdge(ctx, edge); err != nil {
			return "", err
		}
	}
	return xref, nil
}

// XRefAuthority returns the authority of a cross reference. ok is false when
// the cross reference has none.
func XRefAuthority(ctx context.Context, g PropertyGraph, xref string) (string, bool, error) {
	edges, err := g.OutgoingEdges(ctx, xref, common.LabelHasAuthority)
	if err != nil {
		return "", false, err
	}
	ids := distinctTargets(edges, common.TermNode)
	switch len(ids) {
	case 0:
		return "", false, nil
	case 1:
		return ids[0], true, nil
	default:
		return "", false, &InconsistencyError{Node: xref, Reason: fmt.Sprintf("%d authorities on cross reference", len(ids))}
	}
}

// XRefValue returns the value of a cross reference. ok is false when the
// cross reference has none.
func XRefValue(ctx context.Context, g PropertyGraph, xref string) (string, bool, error) {
	edges, err := g.OutgoingEdges(ctx, xref, common.LabelHasValue)
	if err != nil {
		return "", false, err
	}
	values := distinctTargets(edges, common.TermLiteral)
	switch len(values) {
	case 0:
		return "", false, nil
	case 1:
		return values[0], true, nil
	default:
		return "", false, &InconsistencyError{Node: xref, Reason: fmt.Sprintf("%d values on cross reference", len(values))}
	}
}

// XRefValues returns the sorted, distinct values of the cross references of
// node that belong to authority.
func XRefValues(ctx context.Context, g PropertyGraph, node, authority string) ([]string, error) {
	edges, err := g.OutgoingEdges(ctx, node, common.LabelHasXRef)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	values := make([]string, 0)
	for _, e := range edges {
		if !e.Target.IsNode() {
			continue
		}
		auth, ok, err := XRefAuthority(ctx, g, e.Target.ID)
		if err != nil {
			return nil, err
		}
		if !ok || auth != authority {
			continue
		}
		value, ok, err := XRefValue(ctx, g, e.Target.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		values = append(values, value)
	}
	sort.Strings(values)
	return values, nil
}

func distinctTargets(edges []common.Edge, kind common.TermKind) []string {
	seen := make(map[string]struct{})
	res := make([]string, 0, len(edges))
	for _, e := range edges {
		if e.Target.Kind != kind {
			continue
		}
		v := e.Target.ID
		if kind == common.TermLiteral {
			v = e.Target.Literal
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		res = append(res, v)
	}
	return res
}

func expectType(ctx context.Context, g PropertyGraph, id string, typ common.NodeType) error {
	node, err := g.GetNode(ctx, id)
	if err != nil {
		return err
	}
	if !node.Type.Is(typ) {
		return fmt.Errorf("node %s has type %s, expected %s", id, node.Type, typ)
	}
	return nil
}
