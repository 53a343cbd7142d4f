package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/curator/pkg/graph"
	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// PostgreSQL error codes mapped onto graph errors.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// GraphStore implements graph.PropertyGraph on PostgreSQL. Every store is
// scoped to one graph id; nodes and edges of other graphs are invisible.
//
// A store created from a pool is safe for concurrent use. A store bound to
// a transaction through WithTx must stay on one goroutine.
type GraphStore struct {
	conn    pgxIConn
	graphID string
}

var (
	_ graph.PropertyGraph  = (*GraphStore)(nil)
	_ graph.PatternReacher = (*GraphStore)(nil)
)

// NewGraphStore returns a store for graphID using conn, which is usually a
// *pgxpool.Pool or a pgx.Tx.
func NewGraphStore(conn pgxIConn, graphID string) (*GraphStore, error) {
	if graphID == "" {
		return nil, fmt.Errorf("%w: graph id", graph.ErrMissingParameter)
	}
	return &GraphStore{conn: conn, graphID: graphID}, nil
}

func (s *GraphStore) GraphID() string {
	return s.graphID
}

// EnsureGraph registers the graph id. Nodes can only be created in a
// registered graph.
func (s *GraphStore) EnsureGraph(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `INSERT INTO graphs (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, s.graphID)
	return err
}

// DropGraph deletes the graph with all of its nodes and edges.
func (s *GraphStore) DropGraph(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `DELETE FROM graphs WHERE id = $1`, s.graphID)
	return err
}

// WithTx runs fn with a store bound to a new transaction. The transaction
// commits when fn returns nil and rolls back otherwise, so a failing merge
// leaves the graph untouched.
func (s *GraphStore) WithTx(ctx context.Context, fn func(tx *GraphStore) error) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&GraphStore{conn: tx, graphID: s.graphID}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
