package pgx

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/curator/internal/util"
	"github.com/OFFIS-RIT/curator/pkg/common"
	"github.com/OFFIS-RIT/curator/pkg/graph"
)

// edgeColumns splits a target into the nullable target_id and
// target_literal columns.
func edgeColumns(t common.Term) (kind string, id, literal *string) {
	if t.IsNode() {
		v := t.ID
		return string(common.TermNode), &v, nil
	}
	v := util.SanitizePostgresText(t.Literal)
	return string(common.TermLiteral), nil, &v
}

const matchEdgeSQL = `
	graph_id = $1 AND source = $2 AND label = $3 AND target_kind = $4
	AND target_id IS NOT DISTINCT FROM $5
	AND target_literal IS NOT DISTINCT FROM $6`

func (s *GraphStore) AddEdge(ctx context.Context, edge common.Edge) error {
	if edge.Label == "" {
		return fmt.Errorf("%w: edge label", graph.ErrMissingParameter)
	}
	kind, id, literal := edgeColumns(edge.Target)

	_, err := s.conn.Exec(ctx, `
		INSERT INTO graph_edges (graph_id, source, label, target_kind, target_id, target_literal)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		s.graphID, edge.Source, edge.Label, kind, id, literal,
	)
	if pgErrorCode(err) == codeForeignKeyViolation {
		return fmt.Errorf("%w: edge %s -%s-> %s", graph.ErrNodeNotFound, edge.Source, edge.Label, edge.Target)
	}
	return err
}

func (s *GraphStore) RemoveEdge(ctx context.Context, edge common.Edge) error {
	kind, id, literal := edgeColumns(edge.Target)
	tag, err := s.conn.Exec(ctx, `DELETE FROM graph_edges WHERE`+matchEdgeSQL,
		s.graphID, edge.Source, edge.Label, kind, id, literal)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s -%s-> %s", graph.ErrEdgeNotFound, edge.Source, edge.Label, edge.Target)
	}
	return nil
}

func (s *GraphStore) HasEdge(ctx context.Context, edge common.Edge) (bool, error) {
	kind, id, literal := edgeColumns(edge.Target)
	var exists bool
	err := s.conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM graph_edges WHERE`+matchEdgeSQL+`)`,
		s.graphID, edge.Source, edge.Label, kind, id, literal).Scan(&exists)
	return exists, err
}

func (s *GraphStore) OutgoingEdges(ctx context.Context, id string, label string) ([]common.Edge, error) {
	if _, err := s.GetNode(ctx, id); err != nil {
		return nil, err
	}
	return s.listEdges(ctx, `
		SELECT source, label, target_kind, target_id, target_literal FROM graph_edges
		WHERE graph_id = $1 AND source = $2 AND ($3 = '' OR label = $3)
		ORDER BY seq`, id, label)
}

func (s *GraphStore) IncomingEdges(ctx context.Context, id string, label string) ([]common.Edge, error) {
	if _, err := s.GetNode(ctx, id); err != nil {
		return nil, err
	}
	return s.listEdges(ctx, `
		SELECT source, label, target_kind, target_id, target_literal FROM graph_edges
		WHERE graph_id = $1 AND target_kind = 'node' AND target_id = $2 AND ($3 = '' OR label = $3)
		ORDER BY seq`, id, label)
}

func (s *GraphStore) listEdges(ctx context.Context, sql string, id, label string) ([]common.Edge, error) {
	rows, err := s.conn.Query(ctx, sql, s.graphID, id, label)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make([]common.Edge, 0)
	for rows.Next() {
		var (
			e       common.Edge
			kind    string
			target  *string
			literal *string
		)
		if err := rows.Scan(&e.Source, &e.Label, &kind, &target, &literal); err != nil {
			return nil, err
		}
		switch common.TermKind(kind) {
		case common.TermNode:
			if target == nil {
				return nil, fmt.Errorf("edge from %s has node target without id", e.Source)
			}
			e.Target = common.NodeTerm(*target)
		default:
			v := ""
			if literal != nil {
				v = *literal
			}
			e.Target = common.LiteralTerm(v)
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
