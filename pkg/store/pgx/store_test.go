package pgx

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/OFFIS-RIT/curator/internal/util"
	"github.com/OFFIS-RIT/curator/pkg/common"
	"github.com/OFFIS-RIT/curator/pkg/graph"
	"github.com/OFFIS-RIT/curator/pkg/merge"
	"github.com/OFFIS-RIT/curator/pkg/path"
	"github.com/jackc/pgx/v5/pgxpool"
)

// newTestStore connects to DATABASE_URL, applies the schema and returns a
// store for a fresh graph. Tests are skipped without a database.
func newTestStore(t *testing.T) *GraphStore {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile("../../../migrations/000001_graph.up.sql")
	if err != nil {
		t.Fatalf("failed to read schema: %v", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}

	id, err := util.NewID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, err := NewGraphStore(pool, "test-"+id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.EnsureGraph(ctx); err != nil {
		t.Fatalf("EnsureGraph failed: %v", err)
	}
	t.Cleanup(func() { _ = s.DropGraph(context.Background()) })
	return s
}

func TestGraphStore_Nodes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateNode(ctx, common.TypeGene, "g1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.CreateNode(ctx, common.TypeGene, "g1"); !errors.Is(err, graph.ErrNodeExists) {
		t.Fatalf("expected ErrNodeExists, got %v", err)
	}
	if _, err := s.CreateNode(ctx, common.TypeGene, "g\x002"); !errors.Is(err, graph.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	p, err := s.CreateNode(ctx, common.TypeProtein, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !util.IsID(p.ID) {
		t.Fatalf("expected generated id, got %q", p.ID)
	}

	nodes, err := s.Nodes(ctx, common.TypeMolecule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(nodes, []common.Node{p}) {
		t.Fatalf("Nodes(Molecule) = %v", nodes)
	}

	if err := s.DeleteNode(ctx, "g1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.GetNode(ctx, "g1"); !errors.Is(err, graph.ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
	if err := s.DeleteNode(ctx, "g1"); !errors.Is(err, graph.ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestGraphStore_Edges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		if _, err := s.CreateNode(ctx, common.TypeGene, id); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	rel := common.Edge{Source: "a", Label: "rel", Target: common.NodeTerm("b")}
	lit := common.Edge{Source: "a", Label: "symbol", Target: common.LiteralTerm("TP53\x00")}
	for _, e := range []common.Edge{rel, rel, lit} {
		if err := s.AddEdge(ctx, e); err != nil {
			t.Fatalf("AddEdge failed: %v", err)
		}
	}
	if err := s.AddEdge(ctx, common.Edge{Source: "a", Label: "rel", Target: common.NodeTerm("zz")}); !errors.Is(err, graph.ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}

	out, err := s.OutgoingEdges(ctx, "a", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []common.Edge{rel, rel, {Source: "a", Label: "symbol", Target: common.LiteralTerm("TP53")}}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("OutgoingEdges = %v, want %v", out, want)
	}

	if err := s.RemoveEdge(ctx, rel); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok, _ := s.HasEdge(ctx, rel); ok {
		t.Fatal("expected all identical edges to be removed")
	}
	if err := s.RemoveEdge(ctx, rel); !errors.Is(err, graph.ErrEdgeNotFound) {
		t.Fatalf("expected ErrEdgeNotFound, got %v", err)
	}

	if err := s.AddEdge(ctx, rel); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.DeleteNode(ctx, "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, _ = s.OutgoingEdges(ctx, "a", "rel")
	if len(out) != 0 {
		t.Fatalf("expected cascading delete of edges, got %v", out)
	}
}

func TestGraphStore_MergeAndPath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"S", "X", "X2", "Y", "T"} {
		if _, err := s.CreateNode(ctx, common.TypeGene, id); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	for _, e := range [][2]string{{"S", "X"}, {"X2", "Y"}, {"Y", "T"}} {
		if err := s.AddEdge(ctx, common.Edge{Source: e[0], Label: "next", Target: common.NodeTerm(e[1])}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	f := path.NewFinder(s)
	p, err := f.Find(ctx, "S", []string{"T"}, graph.MustParsePattern("next"))
	if err != nil || p != nil {
		t.Fatalf("expected no path before merge, got %v, %v", p, err)
	}

	err = s.WithTx(ctx, func(tx *GraphStore) error {
		_, err := merge.NewMerger(tx).Merge(ctx, [][]string{{"X2", "X"}})
		return err
	})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	p, err = f.Find(ctx, "S", []string{"T"}, graph.MustParsePattern("next"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil || !reflect.DeepEqual(p.Path(), []string{"S", "X", "Y", "T"}) {
		t.Fatalf("unexpected path %v", p.Path())
	}

	reached, err := s.Reach(ctx, "Y", graph.MustParsePattern("^next/next"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reached) != 0 {
		t.Fatalf("expected self to be excluded, got %v", reached)
	}
}

func TestGraphStore_WithTxRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx *GraphStore) error {
		if _, err := tx.CreateNode(ctx, common.TypeGene, "g"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := s.GetNode(ctx, "g"); !errors.Is(err, graph.ErrNodeNotFound) {
		t.Fatalf("expected rollback, got %v", err)
	}
}

func TestGraphStore_Jobs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, err := s.CreateJob(ctx, "job1", "xref_merge", []byte(`{"authority":"EntrezGene"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Status != JobQueued {
		t.Fatalf("unexpected status %s", job.Status)
	}
	if err := s.SetJobStatus(ctx, "job1", JobFailed, nil, errors.New("boom")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.GetJob(ctx, "job1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != JobFailed || got.Error != "boom" {
		t.Fatalf("unexpected job %+v", got)
	}
	if _, err := s.GetJob(ctx, "nope"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
	jobs, err := s.ListJobs(ctx, 0)
	if err != nil || len(jobs) != 1 {
		t.Fatalf("ListJobs = %v, %v", jobs, err)
	}
}
