package graph

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/OFFIS-RIT/curator/pkg/common"
)

func TestAttachXRef(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGraph()
	mustNode(t, g, common.TypeGene, "gene")
	if _, err := EnsureAuthority(ctx, g, "EntrezGene"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := EnsureAuthority(ctx, g, "EntrezGene"); err != nil {
		t.Fatalf("EnsureAuthority must be idempotent, got %v", err)
	}

	for range 2 {
		if _, err := AttachXRef(ctx, g, "gene", "EntrezGene", "672"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, err := AttachXRef(ctx, g, "gene", "EntrezGene", "7157"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, _ := g.OutgoingEdges(ctx, "gene", common.LabelHasXRef)
	if len(out) != 2 {
		t.Fatalf("expected 2 xref edges, got %d", len(out))
	}

	values, err := XRefValues(ctx, g, "gene", "EntrezGene")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(values, []string{"672", "7157"}) {
		t.Fatalf("XRefValues() = %v", values)
	}

	values, err = XRefValues(ctx, g, "gene", "UniProt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("expected no values for other authority, got %v", values)
	}
}

func TestEnsureXRefRequiresAuthority(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGraph()
	if _, err := EnsureXRef(ctx, g, "Nowhere", "1"); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
	if _, err := EnsureXRef(ctx, g, "", "1"); !errors.Is(err, ErrMissingParameter) {
		t.Fatalf("expected ErrMissingParameter, got %v", err)
	}
}

func TestXRefInconsistency(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGraph()
	if _, err := EnsureAuthority(ctx, g, "A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	xref, err := EnsureXRef(ctx, g, "A", "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.AddEdge(ctx, common.Edge{Source: xref, Label: common.LabelHasValue, Target: common.LiteralTerm("2")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, _, err = XRefValue(ctx, g, xref)
	if !errors.Is(err, ErrInconsistent) {
		t.Fatalf("expected ErrInconsistent, got %v", err)
	}
	var inc *InconsistencyError
	if !errors.As(err, &inc) || inc.Node != xref {
		t.Fatalf("expected InconsistencyError naming %s, got %v", xref, err)
	}

	if _, err := EnsureAuthority(ctx, g, "B"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.AddEdge(ctx, common.Edge{Source: xref, Label: common.LabelHasAuthority, Target: common.NodeTerm("B")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := XRefAuthority(ctx, g, xref); !errors.Is(err, ErrInconsistent) {
		t.Fatalf("expected ErrInconsistent, got %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := NewMemoryGraph()
	mustNode(t, src, common.TypeGene, "a")
	mustNode(t, src, common.TypeExperiment, "e")
	mustEdge(t, src, "e", "involves", "a")
	if err := src.AddEdge(ctx, common.Edge{Source: "a", Label: "symbol", Target: common.LiteralTerm("TP53")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, err := Export(ctx, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded, err := ReadSnapshot(&buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dst := NewMemoryGraph()
	if err := Import(ctx, dst, decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	again, err := Export(ctx, dst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(snap, again) {
		t.Fatalf("snapshot changed after import:\n%+v\n%+v", snap, again)
	}
}
