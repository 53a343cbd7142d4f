package common

import "fmt"

// NodeType is the type tag of a node. The set of types is closed; subtyping
// is expressed through the parent table below instead of inheritance.
type NodeType string

const (
	TypeThing          NodeType = "Thing"
	TypeRecordObject   NodeType = "RecordObject"
	TypeGene           NodeType = "Gene"
	TypeAllele         NodeType = "Allele"
	TypeSpecies        NodeType = "Species"
	TypeMolecule       NodeType = "Molecule"
	TypeProtein        NodeType = "Protein"
	TypeExperiment     NodeType = "Experiment"
	TypeCrossReference NodeType = "CrossReference"
	TypeAuthority      NodeType = "Authority"
)

var parents = map[NodeType]NodeType{
	TypeRecordObject:   TypeThing,
	TypeGene:           TypeRecordObject,
	TypeAllele:         TypeRecordObject,
	TypeSpecies:        TypeRecordObject,
	TypeMolecule:       TypeRecordObject,
	TypeProtein:        TypeMolecule,
	TypeExperiment:     TypeThing,
	TypeCrossReference: TypeThing,
	TypeAuthority:      TypeThing,
}

// AllTypes lists every known node type, parents before children.
var AllTypes = []NodeType{
	TypeThing,
	TypeRecordObject,
	TypeGene,
	TypeAllele,
	TypeSpecies,
	TypeMolecule,
	TypeProtein,
	TypeExperiment,
	TypeCrossReference,
	TypeAuthority,
}

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	if t == TypeThing {
		return true
	}
	_, ok := parents[t]
	return ok
}

// Is reports whether t equals other or descends from it.
func (t NodeType) Is(other NodeType) bool {
	for cur := t; cur != ""; cur = parents[cur] {
		if cur == other {
			return true
		}
	}
	return false
}

// ParseNodeType converts a type name into a NodeType.
func ParseNodeType(name string) (NodeType, error) {
	t := NodeType(name)
	if !t.Valid() {
		return "", fmt.Errorf("unknown node type %q", name)
	}
	return t, nil
}

// Subtypes returns t and all of its descendants.
func Subtypes(t NodeType) []NodeType {
	var res []NodeType
	for _, candidate := range AllTypes {
		if candidate.Is(t) {
			res = append(res, candidate)
		}
	}
	return res
}
