package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/curator/pkg/common"
	"github.com/OFFIS-RIT/curator/pkg/graph"
	"github.com/OFFIS-RIT/curator/pkg/merge"
	"github.com/go-playground/validator"
)

type JobKind string

const (
	JobXRefMerge    JobKind = "xref_merge"
	JobXRefLink     JobKind = "xref_link"
	JobContextMerge JobKind = "context_merge"
	JobSnapshot     JobKind = "snapshot"
)

// JobMsg is the body of a message on the curation queue.
type JobMsg struct {
	ID      string          `json:"id" validate:"required"`
	GraphID string          `json:"graph_id" validate:"required"`
	Kind    JobKind         `json:"kind" validate:"required,oneof=xref_merge xref_link context_merge snapshot"`
	Params  json.RawMessage `json:"params"`
}

// Selection picks nodes either by explicit ids or by type. A type selects
// all nodes of that type and its subtypes.
type Selection struct {
	Type string   `json:"type"`
	IDs  []string `json:"ids"`
}

func (s Selection) Resolve(ctx context.Context, g graph.PropertyGraph) ([]string, error) {
	if len(s.IDs) > 0 {
		return s.IDs, nil
	}
	typ, err := common.ParseNodeType(s.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: selection needs ids or a valid type: %v", graph.ErrMissingParameter, err)
	}
	nodes, err := g.Nodes(ctx, typ)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return ids, nil
}

type XRefMergeParams struct {
	Selection Selection       `json:"selection"`
	Policy    merge.KeyPolicy `json:"policy"`
}

type XRefLinkParams struct {
	From     Selection       `json:"from"`
	To       Selection       `json:"to"`
	Policy   merge.KeyPolicy `json:"policy"`
	Property string          `json:"property" validate:"required"`
}

type ContextMergeParams struct {
	Selection   Selection `json:"selection"`
	Restriction string    `json:"restriction" validate:"required"`
}

// JobResult is stored with the job and published on TopicJobDone.
type JobResult struct {
	Merge       *merge.Stats `json:"merge,omitempty"`
	EdgesAdded  *int         `json:"edges_added,omitempty"`
	SnapshotKey string       `json:"snapshot_key,omitempty"`
}

// SnapshotSink stores an exported snapshot and returns where it went.
type SnapshotSink func(ctx context.Context, graphID string, snap *graph.Snapshot) (string, error)

var validate = validator.New()

// ParseJobMsg decodes and validates a queue message, including the
// parameters of its kind.
func ParseJobMsg(body []byte) (*JobMsg, error) {
	msg := new(JobMsg)
	if err := json.Unmarshal(body, msg); err != nil {
		return nil, fmt.Errorf("failed to decode job message: %w", err)
	}
	if err := validate.Struct(msg); err != nil {
		return nil, fmt.Errorf("invalid job message: %w", err)
	}
	if _, err := msg.params(); err != nil {
		return nil, err
	}
	return msg, nil
}

func (m *JobMsg) params() (any, error) {
	var p any
	switch m.Kind {
	case JobXRefMerge:
		p = new(XRefMergeParams)
	case JobXRefLink:
		p = new(XRefLinkParams)
	case JobContextMerge:
		p = new(ContextMergeParams)
	case JobSnapshot:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown job kind %q", m.Kind)
	}
	if len(m.Params) == 0 {
		return nil, fmt.Errorf("%w: params of %s job", graph.ErrMissingParameter, m.Kind)
	}
	if err := json.Unmarshal(m.Params, p); err != nil {
		return nil, fmt.Errorf("failed to decode %s params: %w", m.Kind, err)
	}
	if err := validate.Struct(p); err != nil {
		return nil, fmt.Errorf("invalid %s params: %w", m.Kind, err)
	}
	if cm, ok := p.(*ContextMergeParams); ok {
		if _, err := restrictionType(cm.Restriction); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func restrictionType(name string) (common.NodeType, error) {
	typ, err := common.ParseNodeType(name)
	if err != nil {
		return "", fmt.Errorf("%w: restriction: %v", graph.ErrMissingParameter, err)
	}
	return typ, nil
}

// Execute runs the job against g. Mutating jobs expect the caller to hold
// the graph's write lease.
func Execute(ctx context.Context, g graph.PropertyGraph, msg *JobMsg, sink SnapshotSink) (*JobResult, error) {
	p, err := msg.params()
	if err != nil {
		return nil, err
	}

	switch params := p.(type) {
	case *XRefMergeParams:
		ids, err := params.Selection.Resolve(ctx, g)
		if err != nil {
			return nil, err
		}
		stats, err := merge.NewXRefMerger(g, params.Policy).Run(ctx, ids)
		if err != nil {
			return nil, err
		}
		return &JobResult{Merge: &stats}, nil

	case *XRefLinkParams:
		from, err := params.From.Resolve(ctx, g)
		if err != nil {
			return nil, err
		}
		to, err := params.To.Resolve(ctx, g)
		if err != nil {
			return nil, err
		}
		n, err := merge.NewXRefLinker(g, params.Policy, params.Property).Run(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return &JobResult{EdgesAdded: &n}, nil

	case *ContextMergeParams:
		restriction, err := restrictionType(params.Restriction)
		if err != nil {
			return nil, err
		}
		ids, err := params.Selection.Resolve(ctx, g)
		if err != nil {
			return nil, err
		}
		stats, err := merge.NewContextMerger(g).Run(ctx, ids, restriction)
		if err != nil {
			return nil, err
		}
		return &JobResult{Merge: &stats}, nil
	}

	// Snapshot.
	if sink == nil {
		return nil, fmt.Errorf("%w: snapshot sink", graph.ErrMissingParameter)
	}
	snap, err := graph.Export(ctx, g)
	if err != nil {
		return nil, err
	}
	key, err := sink(ctx, msg.GraphID, snap)
	if err != nil {
		return nil, err
	}
	return &JobResult{SnapshotKey: key}, nil
}
