package graph

import (
	"context"
	"fmt"
	"strings"
)

// Step is one hop of a Pattern: follow edges labeled Label, against their
// direction when Inverse is set.
type Step struct {
	Label   string `json:"label"`
	Inverse bool   `json:"inverse,omitempty"`
}

// Pattern is a path expression over edge labels. Following a pattern from
// a node means taking every step in order.
type Pattern struct {
	Steps []Step `json:"steps"`
}

// ParsePattern reads the textual form of a pattern: steps separated by "/",
// an inverted step prefixed with "^", e.g. "involves/^involves".
func ParsePattern(s string) (Pattern, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Pattern{}, fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}

	parts := strings.Split(s, "/")
	p := Pattern{Steps: make([]Step, 0, len(parts))}
	for _, part := range parts {
		part = strings.TrimSpace(part)
		inverse := strings.HasPrefix(part, "^")
		label := strings.TrimSpace(strings.TrimPrefix(part, "^"))
		if label == "" || strings.ContainsAny(label, "^ \t") {
			return Pattern{}, fmt.Errorf("%w: bad step %q in %q", ErrInvalidPattern, part, s)
		}
		p.Steps = append(p.Steps, Step{Label: label, Inverse: inverse})
	}
	return p, nil
}

// MustParsePattern is like ParsePattern but panics on error.
func MustParsePattern(s string) Pattern {
	p, err := ParsePattern(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pattern) String() string {
	parts := make([]string, len(p.Steps))
	for i, step := range p.Steps {
		if step.Inverse {
			parts[i] = "^" + step.Label
		} else {
			parts[i] = step.Label
		}
	}
	return strings.Join(parts, "/")
}

// Validate checks that the pattern has at least one well formed step.
func (p Pattern) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidPattern)
	}
	for _, step := range p.Steps {
		if step.Label == "" {
			return fmt.Errorf("%w: empty label", ErrInvalidPattern)
		}
	}
	return nil
}

// Reach returns every node reachable from `from` by following p exactly,
// excluding `from` itself. Results are de-duplicated and listed in
// discovery order. Graphs implementing PatternReacher answer directly.
func Reach(ctx context.Context, g PropertyGraph, from string, p Pattern) ([]string, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if r, ok := g.(PatternReacher); ok {
		return r.Reach(ctx, from, p)
	}

	frontier := []string{from}
	for _, step := range p.Steps {
		next := make([]string, 0)
		seen := make(map[string]struct{})
		for _, id := range frontier {
			ids, err := stepFrom(ctx, g, id, step)
			if err != nil {
				return nil, err
			}
			for _, n := range ids {
				if _, ok := seen[n]; ok {
					continue
				}
				seen[n] = struct{}{}
				next = append(next, n)
			}
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}

	res := make([]string, 0, len(frontier))
	for _, id := range frontier {
		if id != from {
			res = append(res, id)
		}
	}
	return res, nil
}

func stepFrom(ctx context.Context, g PropertyGraph, id string, step Step) ([]string, error) {
	if step.Inverse {
		edges, err := g.IncomingEdges(ctx, id, step.Label)
		if err != nil {
			return nil, err
		}
		res := make([]string, 0, len(edges))
		for _, e := range edges {
			res = append(res, e.Source)
		}
		return res, nil
	}

	edges, err := g.OutgoingEdges(ctx, id, step.Label)
	if err != nil {
		return nil, err
	}
	res := make([]string, 0, len(edges))
	for _, e := range edges {
		if e.Target.IsNode() {
			res = append(res, e.Target.ID)
		}
	}
	return res, nil
}
