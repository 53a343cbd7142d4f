package merge

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/OFFIS-RIT/curator/pkg/common"
	"github.com/OFFIS-RIT/curator/pkg/graph"
)

func TestContextMerger(t *testing.T) {
	ctx := context.Background()
	g := graph.NewMemoryGraph()
	for _, id := range []string{"r1", "r2", "r3", "r4"} {
		mustNode(t, g, common.TypeGene, id)
	}
	for _, id := range []string{"e1", "e2", "e3"} {
		mustNode(t, g, common.TypeExperiment, id)
	}
	mustEdge(t, g, "e1", "involves", "r1")
	mustEdge(t, g, "e1", "involves", "r2")
	mustEdge(t, g, "e2", "involves", "r2")
	mustEdge(t, g, "e2", "involves", "r1")
	mustEdge(t, g, "e3", "involves", "r3")
	mustEdge(t, g, "e3", "involves", "r4")
	// Connections to other types do not count.
	mustEdge(t, g, "e2", "follows", "e3")

	m := NewContextMerger(g)
	sig1, err := m.Signature(ctx, "e1", common.TypeRecordObject)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig1 != "Experiment(involves-r1,involves-r2)" {
		t.Fatalf("unexpected signature %q", sig1)
	}
	sig2, _ := m.Signature(ctx, "e2", common.TypeRecordObject)
	if sig1 != sig2 {
		t.Fatalf("signatures differ: %q vs %q", sig1, sig2)
	}

	stats, err := m.Run(ctx, []string{"e1", "e2", "e3"}, common.TypeRecordObject)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Groups != 1 || stats.Removed != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if got := nodeIDs(t, g, common.TypeExperiment); !reflect.DeepEqual(got, []string{"e1", "e3"}) {
		t.Fatalf("remaining experiments = %v", got)
	}
	if got := nodeIDs(t, g, common.TypeRecordObject); len(got) != 4 {
		t.Fatalf("records must be untouched, got %v", got)
	}
	ok, _ := g.HasEdge(ctx, common.Edge{Source: "e1", Label: "follows", Target: common.NodeTerm("e3")})
	if !ok {
		t.Fatal("expected survivor to inherit follows edge")
	}
}

func TestContextMerger_SignatureVariants(t *testing.T) {
	ctx := context.Background()
	g := graph.NewMemoryGraph()
	mustNode(t, g, common.TypeProtein, "p")
	mustNode(t, g, common.TypeSpecies, "s")
	mustNode(t, g, common.TypeExperiment, "e")
	mustNode(t, g, common.TypeExperiment, "empty")
	mustEdge(t, g, "e", "measures", "p")
	mustEdge(t, g, "s", "studiedIn", "e")
	if err := g.AddEdge(ctx, common.Edge{Source: "e", Label: "note", Target: common.LiteralTerm("p")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name        string
		id          string
		restriction common.NodeType
		want        string
	}{
		{"subtypes included", "e", common.TypeRecordObject, "Experiment(measures-p,studiedIn-s)"},
		{"narrow restriction", "e", common.TypeMolecule, "Experiment(measures-p)"},
		{"no matching neighbours", "e", common.TypeAuthority, "Experiment()"},
		{"isolated node", "empty", common.TypeRecordObject, "Experiment()"},
	}
	m := NewContextMerger(g)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Signature(ctx, tt.id, tt.restriction)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Signature() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := m.Run(ctx, []string{"e"}, common.NodeType("Banana")); !errors.Is(err, graph.ErrMissingParameter) {
		t.Fatalf("expected ErrMissingParameter, got %v", err)
	}
	if _, err := m.Run(ctx, []string{"missing"}, common.TypeRecordObject); !errors.Is(err, graph.ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
}
