package graph

import (
	"errors"
	"fmt"
)

var (
	ErrNodeNotFound     = errors.New("node not found")
	ErrNodeExists       = errors.New("node already exists")
	ErrEdgeNotFound     = errors.New("edge not found")
	ErrInvalidPattern   = errors.New("invalid pattern")
	ErrMissingParameter = errors.New("missing parameter")
	ErrInconsistent     = errors.New("graph inconsistency")
	ErrInvalidID        = errors.New("invalid node id")
)

// InconsistencyError reports a violated structural invariant, e.g. a cross
// reference with two values or a node holding several keys under a policy
// that demands a unique one. It is fatal for the running operation.
type InconsistencyError struct {
	Node      string
	Authority string
	Reason    string
}

func (e *InconsistencyError) Error() string {
	if e.Authority != "" {
		return fmt.Sprintf("inconsistent node %s (authority %s): %s", e.Node, e.Authority, e.Reason)
	}
	return fmt.Sprintf("inconsistent node %s: %s", e.Node, e.Reason)
}

func (e *InconsistencyError) Is(target error) bool {
	return target == ErrInconsistent
}
