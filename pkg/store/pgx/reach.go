package pgx

import (
	"context"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/curator/pkg/graph"
)

// buildReachSQL turns a pattern into one join over graph_edges. $1 is the
// graph id, $2 the start node and $3.. the step labels. Results are ordered
// by the first edge sequence that reached them, which matches the discovery
// order of the step-by-step evaluation.
func buildReachSQL(p graph.Pattern) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	var (
		from  []string
		where []string
		seqs  []string
	)
	prev := "$2"
	next := ""
	for i, step := range p.Steps {
		alias := fmt.Sprintf("e%d", i+1)
		from = append(from, "graph_edges "+alias)
		where = append(where,
			fmt.Sprintf("%s.graph_id = $1", alias),
			fmt.Sprintf("%s.label = $%d", alias, i+3),
			fmt.Sprintf("%s.target_kind = 'node'", alias),
		)
		if step.Inverse {
			where = append(where, fmt.Sprintf("%s.target_id = %s", alias, prev))
			next = alias + ".source"
		} else {
			where = append(where, fmt.Sprintf("%s.source = %s", alias, prev))
			next = alias + ".target_id"
		}
		seqs = append(seqs, alias+".seq")
		prev = next
	}
	where = append(where, next+" <> $2")

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(next)
	b.WriteString(" AS node FROM ")
	b.WriteString(strings.Join(from, ", "))
	b.WriteString(" WHERE ")
	b.WriteString(strings.Join(where, " AND "))
	b.WriteString(" GROUP BY ")
	b.WriteString(next)
	b.WriteString(" ORDER BY MIN(ARRAY[")
	b.WriteString(strings.Join(seqs, ", "))
	b.WriteString("])")
	return b.String(), nil
}

// Reach evaluates the pattern inside PostgreSQL.
func (s *GraphStore) Reach(ctx context.Context, from string, p graph.Pattern) ([]string, error) {
	sql, err := buildReachSQL(p)
	if err != nil {
		return nil, err
	}
	args := make([]any, 0, len(p.Steps)+2)
	args = append(args, s.graphID, from)
	for _, step := range p.Steps {
		args = append(args, step.Label)
	}

	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate pattern %s: %w", p, err)
	}
	defer rows.Close()

	res := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		res = append(res, id)
	}
	return res, rows.Err()
}
