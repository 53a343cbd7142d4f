package merge

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/OFFIS-RIT/curator/pkg/common"
	"github.com/OFFIS-RIT/curator/pkg/graph"
)

func TestXRefMerger_Transitive(t *testing.T) {
	ctx := context.Background()
	g := newGraph(t)
	mustRecord(t, g, "a", "a", "b")
	mustRecord(t, g, "b", "b", "c")
	mustRecord(t, g, "c", "c")
	mustRecord(t, g, "d", "d")

	stats, err := NewXRefMerger(g, KeyPolicy{Authority: authority}).Run(ctx, []string{"a", "b", "c", "d"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Groups != 1 || stats.Removed != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if got := nodeIDs(t, g, common.TypeRecordObject); !reflect.DeepEqual(got, []string{"a", "d"}) {
		t.Fatalf("remaining records = %v", got)
	}

	values, err := graph.XRefValues(ctx, g, "a", authority)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(values, []string{"a", "b", "c"}) {
		t.Fatalf("survivor xrefs = %v", values)
	}

	again, err := NewXRefMerger(g, KeyPolicy{Authority: authority}).Run(ctx, nodeIDs(t, g, common.TypeRecordObject))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != (Stats{}) {
		t.Fatalf("second run must be a no-op, got %+v", again)
	}
}

func TestXRefMerger_AllMustMatch(t *testing.T) {
	ctx := context.Background()
	g := newGraph(t)
	mustRecord(t, g, "a", "b", "a")
	mustRecord(t, g, "b", "a", "b")
	mustRecord(t, g, "c", "c")
	mustRecord(t, g, "d", "a")

	policy := KeyPolicy{Authority: authority, AllMustMatch: true}
	if _, err := NewXRefMerger(g, policy).Run(ctx, []string{"a", "b", "c", "d"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := nodeIDs(t, g, common.TypeRecordObject); !reflect.DeepEqual(got, []string{"a", "c", "d"}) {
		t.Fatalf("remaining records = %v", got)
	}
}

func TestXRefMerger_UniqueKeys(t *testing.T) {
	tests := []struct {
		name    string
		unique  bool
		wantErr bool
	}{
		{"enforced", true, true},
		{"not enforced", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			g := newGraph(t)
			mustRecord(t, g, "a", "1", "2")
			mustRecord(t, g, "b", "2")

			policy := KeyPolicy{Authority: authority, UniqueKeys: tt.unique}
			_, err := NewXRefMerger(g, policy).Run(ctx, []string{"a", "b"})
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var inc *graph.InconsistencyError
			if !errors.As(err, &inc) {
				t.Fatalf("expected InconsistencyError, got %v", err)
			}
			if inc.Node != "a" || inc.Authority != authority {
				t.Fatalf("error names wrong node/authority: %+v", inc)
			}
			if got := nodeIDs(t, g, common.TypeRecordObject); len(got) != 2 {
				t.Fatalf("nothing may be merged on failure, got %v", got)
			}
		})
	}
}

func TestXRefMerger_IgnoresOtherAuthorities(t *testing.T) {
	ctx := context.Background()
	g := newGraph(t)
	if _, err := graph.EnsureAuthority(ctx, g, "UniProt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustRecord(t, g, "a")
	mustRecord(t, g, "b")
	for _, id := range []string{"a", "b"} {
		if _, err := graph.AttachXRef(ctx, g, id, "UniProt", "P04637"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	stats, err := NewXRefMerger(g, KeyPolicy{Authority: authority}).Run(ctx, []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Groups != 0 {
		t.Fatalf("expected no groups, got %+v", stats)
	}
}

func TestXRefMerger_MissingAuthority(t *testing.T) {
	g := newGraph(t)
	if _, err := NewXRefMerger(g, KeyPolicy{}).Run(context.Background(), nil); !errors.Is(err, graph.ErrMissingParameter) {
		t.Fatalf("expected ErrMissingParameter, got %v", err)
	}
}

func TestXRefLinker(t *testing.T) {
	ctx := context.Background()
	g := newGraph(t)
	mustRecord(t, g, "f1", "1")
	mustRecord(t, g, "f2", "2")
	mustRecord(t, g, "f3", "9")
	mustRecord(t, g, "t1", "1")
	mustRecord(t, g, "t2", "1", "2")

	linker := NewXRefLinker(g, KeyPolicy{Authority: authority}, "sameAs")
	created, err := linker.Run(ctx, []string{"f1", "f2", "f3"}, []string{"t1", "t2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created != 4 {
		t.Fatalf("expected 4 new edges, got %d", created)
	}

	for _, tt := range []struct {
		src, dst string
		want     bool
	}{
		{"f1", "t1", true},
		{"f1", "t2", true},
		{"f2", "t1", true},
		{"f2", "t2", true},
		{"t1", "f1", false},
		{"f1", "f2", false},
		{"t1", "t2", false},
		{"f3", "t1", false},
	} {
		ok, err := g.HasEdge(ctx, common.Edge{Source: tt.src, Label: "sameAs", Target: common.NodeTerm(tt.dst)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok != tt.want {
			t.Fatalf("edge %s -> %s present=%v, want %v", tt.src, tt.dst, ok, tt.want)
		}
	}

	created, err = linker.Run(ctx, []string{"f1", "f2", "f3"}, []string{"t1", "t2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created != 0 {
		t.Fatalf("re-run must not duplicate edges, created %d", created)
	}
	out, _ := g.OutgoingEdges(ctx, "f1", "sameAs")
	if len(out) != 2 {
		t.Fatalf("expected 2 edges from f1, got %v", out)
	}
}

func TestXRefLinker_MissingParameters(t *testing.T) {
	g := newGraph(t)
	tests := []struct {
		name     string
		policy   KeyPolicy
		property string
	}{
		{"no authority", KeyPolicy{}, "sameAs"},
		{"no property", KeyPolicy{Authority: authority}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewXRefLinker(g, tt.policy, tt.property).Run(context.Background(), nil, nil)
			if !errors.Is(err, graph.ErrMissingParameter) {
				t.Fatalf("expected ErrMissingParameter, got %v", err)
			}
		})
	}
}

func TestKeyIndexGroups(t *testing.T) {
	ix := newKeyIndex()
	ix.add("c", "k2")
	ix.add("b", "k1")
	ix.add("a", "k1")
	ix.add("b", "k2")
	ix.add("z", "k3")
	ix.add("y", "k4")
	ix.add("x", "k4")

	want := [][]string{{"a", "b", "c"}, {"x", "y"}}
	if got := ix.Groups(2); !reflect.DeepEqual(got, want) {
		t.Fatalf("Groups(2) = %v, want %v", got, want)
	}
	if got := ix.Bucket("k2"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("Bucket(k2) = %v", got)
	}
	if got := ix.Bucket("nope"); got != nil {
		t.Fatalf("Bucket(nope) = %v", got)
	}
	if got := ix.Keys(); !reflect.DeepEqual(got, []string{"k1", "k2", "k3", "k4"}) {
		t.Fatalf("Keys() = %v", got)
	}
}

func TestKeyIndexComponentsCached(t *testing.T) {
	ix := newKeyIndex()
	ix.add("a", "k1")
	ix.add("b", "k1")
	ix.add("c", "k2")

	first := ix.Bucket("k1")
	second := ix.Bucket("k1")
	if len(first) == 0 || &first[0] != &second[0] {
		t.Fatal("expected buckets to be served from one component computation")
	}
	if got := ix.Bucket("k2"); !reflect.DeepEqual(got, []string{"c"}) {
		t.Fatalf("Bucket(k2) = %v", got)
	}

	ix.add("c", "k1")
	if got := ix.Bucket("k2"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("Bucket(k2) after union = %v", got)
	}
	groups := ix.Groups(1)
	groups[0][0] = "mutated"
	if got := ix.Bucket("k1"); got[0] != "a" {
		t.Fatalf("Groups must not expose the cached slices, got %v", got)
	}
}
