package routes

import (
	"context"
	"net/http"

	"github.com/OFFIS-RIT/curator/pkg/common"
	"github.com/OFFIS-RIT/curator/pkg/graph"
	pgstore "github.com/OFFIS-RIT/curator/pkg/store/pgx"

	"github.com/labstack/echo/v4"
)

func CreateNodeHandler(c echo.Context) error {
	type createNodeBody struct {
		ID   string `json:"id"`
		Type string `json:"type" validate:"required"`
	}

	data := new(createNodeBody)
	if err := bindAndValidate(c, data); err != nil {
		return badRequest(c, "Invalid request body")
	}
	typ, err := common.ParseNodeType(data.Type)
	if err != nil {
		return badRequest(c, err.Error())
	}

	store, err := graphStore(c)
	if err != nil {
		return writeError(c, err)
	}

	var node common.Node
	err = withWriteLease(c, store, func(ctx context.Context, tx *pgstore.GraphStore) error {
		node, err = tx.CreateNode(ctx, typ, data.ID)
		return err
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, node)
}

// GetNodeHandler returns the node together with all of its connections.
func GetNodeHandler(c echo.Context) error {
	type getNodeResponse struct {
		Node        common.Node         `json:"node"`
		Connections []common.Connection `json:"connections"`
	}

	store, err := graphStore(c)
	if err != nil {
		return writeError(c, err)
	}

	ctx := c.Request().Context()
	id := c.Param("id")
	node, err := store.GetNode(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	conns, err := graph.FindConnections(ctx, store, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, getNodeResponse{Node: node, Connections: conns})
}

func DeleteNodeHandler(c echo.Context) error {
	store, err := graphStore(c)
	if err != nil {
		return writeError(c, err)
	}
	id := c.Param("id")
	err = withWriteLease(c, store, func(ctx context.Context, tx *pgstore.GraphStore) error {
		return tx.DeleteNode(ctx, id)
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AddXRefHandler attaches a cross reference to a node, creating the
// authority and the cross reference on first use.
func AddXRefHandler(c echo.Context) error {
	type addXRefBody struct {
		Authority string `json:"authority" validate:"required"`
		Value     string `json:"value" validate:"required"`
	}

	data := new(addXRefBody)
	if err := bindAndValidate(c, data); err != nil {
		return badRequest(c, "Invalid request body")
	}

	store, err := graphStore(c)
	if err != nil {
		return writeError(c, err)
	}
	id := c.Param("id")

	var xref string
	err = withWriteLease(c, store, func(ctx context.Context, tx *pgstore.GraphStore) error {
		if _, err := tx.GetNode(ctx, id); err != nil {
			return err
		}
		if _, err := graph.EnsureAuthority(ctx, tx, data.Authority); err != nil {
			return err
		}
		xref, err = graph.AttachXRef(ctx, tx, id, data.Authority, data.Value)
		return err
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"xref": xref})
}
