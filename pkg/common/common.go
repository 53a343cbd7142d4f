package common

import (
	"fmt"
	"strings"
)

// Well-known edge labels used by cross references.
const (
	LabelHasXRef      = "hasXRef"
	LabelHasAuthority = "hasAuthority"
	LabelHasValue     = "hasValue"
)

// Node represents an individual in the property graph. A node only carries
// its identity and a type tag; every relationship is expressed as an Edge.
type Node struct {
	ID   string   `json:"id"`
	Type NodeType `json:"type"`
}

// TermKind distinguishes node references from literal values.
type TermKind string

const (
	TermNode    TermKind = "node"
	TermLiteral TermKind = "literal"
)

// Term is the object of an edge. It either references another node by id
// or holds a literal value. Numeric literals are carried in their decimal
// string form.
type Term struct {
	Kind    TermKind `json:"kind"`
	ID      string   `json:"id,omitempty"`
	Literal string   `json:"literal,omitempty"`
}

// NodeTerm returns a Term referencing the node with the given id.
func NodeTerm(id string) Term {
	return Term{Kind: TermNode, ID: id}
}

// LiteralTerm returns a Term holding a literal value.
func LiteralTerm(value string) Term {
	return Term{Kind: TermLiteral, Literal: value}
}

func (t Term) IsNode() bool {
	return t.Kind == TermNode
}

func (t Term) IsLiteral() bool {
	return t.Kind == TermLiteral
}

// String renders node terms as their id and literals quoted, so that a node
// and a literal with the same text never collide.
func (t Term) String() string {
	if t.IsNode() {
		return t.ID
	}
	return fmt.Sprintf("%q", t.Literal)
}

// Edge represents a directed, labeled relationship from a source node to a
// target term. The graph is a multigraph: identical edges may coexist.
type Edge struct {
	Source string `json:"source"`
	Label  string `json:"label"`
	Target Term   `json:"target"`
}

// Direction tells whether a connection leaves or enters the node it was
// computed for.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
)

func (d Direction) String() string {
	if d == Incoming {
		return "in"
	}
	return "out"
}

// Connection is one edge incident to a node, seen from that node. Neighbor
// is the opposite endpoint: the target for outgoing edges and the source
// (always a node) for incoming ones.
//
// Connections are derived values and are never stored.
type Connection struct {
	Direction Direction `json:"direction"`
	Label     string    `json:"label"`
	Neighbor  Term      `json:"neighbor"`
}

// Key returns the identity of the connection: direction, label and neighbor.
func (c Connection) Key() string {
	var b strings.Builder
	b.WriteString(c.Direction.String())
	b.WriteByte('|')
	b.WriteString(c.Label)
	b.WriteByte('|')
	b.WriteString(c.Neighbor.String())
	return b.String()
}

// EdgeFor rebuilds the edge this connection describes, with node standing
// in for the endpoint the connection was computed from.
func (c Connection) EdgeFor(node string) Edge {
	if c.Direction == Incoming {
		return Edge{Source: c.Neighbor.ID, Label: c.Label, Target: NodeTerm(node)}
	}
	return Edge{Source: node, Label: c.Label, Target: c.Neighbor}
}
