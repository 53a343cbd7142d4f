package routes

import (
	"context"
	"net/http"

	"github.com/OFFIS-RIT/curator/pkg/common"
	pgstore "github.com/OFFIS-RIT/curator/pkg/store/pgx"

	"github.com/labstack/echo/v4"
)

type edgeBody struct {
	Source string `json:"source" validate:"required"`
	Label  string `json:"label" validate:"required"`
	// Exactly one of Target and Literal must be set.
	Target  string  `json:"target"`
	Literal *string `json:"literal"`
}

func (b edgeBody) edge() (common.Edge, bool) {
	switch {
	case b.Target != "" && b.Literal == nil:
		return common.Edge{Source: b.Source, Label: b.Label, Target: common.NodeTerm(b.Target)}, true
	case b.Target == "" && b.Literal != nil:
		return common.Edge{Source: b.Source, Label: b.Label, Target: common.LiteralTerm(*b.Literal)}, true
	}
	return common.Edge{}, false
}

func AddEdgeHandler(c echo.Context) error {
	return mutateEdge(c, http.StatusCreated, func(ctx context.Context, tx *pgstore.GraphStore, e common.Edge) error {
		return tx.AddEdge(ctx, e)
	})
}

// RemoveEdgeHandler removes every edge identical to the one described in
// the body.
func RemoveEdgeHandler(c echo.Context) error {
	return mutateEdge(c, http.StatusOK, func(ctx context.Context, tx *pgstore.GraphStore, e common.Edge) error {
		return tx.RemoveEdge(ctx, e)
	})
}

func mutateEdge(c echo.Context, status int, fn func(context.Context, *pgstore.GraphStore, common.Edge) error) error {
	data := new(edgeBody)
	if err := bindAndValidate(c, data); err != nil {
		return badRequest(c, "Invalid request body")
	}
	edge, ok := data.edge()
	if !ok {
		return badRequest(c, "Exactly one of target and literal is required")
	}

	store, err := graphStore(c)
	if err != nil {
		return writeError(c, err)
	}
	err = withWriteLease(c, store, func(ctx context.Context, tx *pgstore.GraphStore) error {
		return fn(ctx, tx, edge)
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(status, edge)
}
