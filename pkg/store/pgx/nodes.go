package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/curator/internal/util"
	"github.com/OFFIS-RIT/curator/pkg/common"
	"github.com/OFFIS-RIT/curator/pkg/graph"
	pgxv5 "github.com/jackc/pgx/v5"
)

func (s *GraphStore) CreateNode(ctx context.Context, typ common.NodeType, id string) (common.Node, error) {
	if !typ.Valid() {
		return common.Node{}, fmt.Errorf("unknown node type %q", typ)
	}
	if id == "" {
		generated, err := util.NewID()
		if err != nil {
			return common.Node{}, err
		}
		id = generated
	}
	if err := checkNodeID(id); err != nil {
		return common.Node{}, err
	}

	_, err := s.conn.Exec(ctx, `INSERT INTO graph_nodes (graph_id, id, type) VALUES ($1, $2, $3)`, s.graphID, id, string(typ))
	switch pgErrorCode(err) {
	case "":
	case codeUniqueViolation:
		return common.Node{}, fmt.Errorf("%w: %s", graph.ErrNodeExists, id)
	case codeForeignKeyViolation:
		return common.Node{}, fmt.Errorf("graph %s is not registered: %w", s.graphID, err)
	}
	if err != nil {
		return common.Node{}, err
	}
	return common.Node{ID: id, Type: typ}, nil
}

// checkNodeID rejects ids PostgreSQL text columns cannot store unchanged.
func checkNodeID(id string) error {
	if !util.IsPostgresText(id) {
		return fmt.Errorf("%w: %q", graph.ErrInvalidID, id)
	}
	return nil
}

func (s *GraphStore) GetNode(ctx context.Context, id string) (common.Node, error) {
	var typ string
	err := s.conn.QueryRow(ctx, `SELECT type FROM graph_nodes WHERE graph_id = $1 AND id = $2`, s.graphID, id).Scan(&typ)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return common.Node{}, fmt.Errorf("%w: %s", graph.ErrNodeNotFound, id)
	}
	if err != nil {
		return common.Node{}, err
	}
	return common.Node{ID: id, Type: common.NodeType(typ)}, nil
}

// DeleteNode removes the node. Incident edges go with it through the
// cascading foreign keys of graph_edges.
func (s *GraphStore) DeleteNode(ctx context.Context, id string) error {
	tag, err := s.conn.Exec(ctx, `DELETE FROM graph_nodes WHERE graph_id = $1 AND id = $2`, s.graphID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", graph.ErrNodeNotFound, id)
	}
	return nil
}

func (s *GraphStore) Nodes(ctx context.Context, typ common.NodeType) ([]common.Node, error) {
	subtypes := common.Subtypes(typ)
	types := make([]string, 0, len(subtypes))
	for _, t := range subtypes {
		types = append(types, string(t))
	}

	rows, err := s.conn.Query(ctx, `
		SELECT id, type FROM graph_nodes
		WHERE graph_id = $1 AND type = ANY($2)
		ORDER BY id`, s.graphID, types)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make([]common.Node, 0)
	for rows.Next() {
		var id, t string
		if err := rows.Scan(&id, &t); err != nil {
			return nil, err
		}
		res = append(res, common.Node{ID: id, Type: common.NodeType(t)})
	}
	return res, rows.Err()
}
