package routes

import (
	"context"
	"net/http"

	"github.com/OFFIS-RIT/curator/internal/storage"
	"github.com/OFFIS-RIT/curator/pkg/logger"
	pgstore "github.com/OFFIS-RIT/curator/pkg/store/pgx"

	"github.com/labstack/echo/v4"
)

func CreateGraphHandler(c echo.Context) error {
	type createGraphBody struct {
		ID string `json:"id" validate:"required"`
	}

	data := new(createGraphBody)
	if err := bindAndValidate(c, data); err != nil {
		return badRequest(c, "Invalid request body")
	}

	store, err := pgstore.NewGraphStore(appOf(c).DBConn, data.ID)
	if err != nil {
		return writeError(c, err)
	}
	if err := store.EnsureGraph(c.Request().Context()); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": data.ID})
}

// DeleteGraphHandler drops the graph and its stored snapshots.
func DeleteGraphHandler(c echo.Context) error {
	store, err := graphStore(c)
	if err != nil {
		return writeError(c, err)
	}

	err = withWriteLease(c, store, func(ctx context.Context, tx *pgstore.GraphStore) error {
		return tx.DropGraph(ctx)
	})
	if err != nil {
		return writeError(c, err)
	}

	if s3 := appOf(c).S3; s3 != nil {
		if err := storage.DeleteSnapshots(c.Request().Context(), s3, store.GraphID()); err != nil {
			logger.Warn("[Server] Failed to delete snapshots of dropped graph", "graph", store.GraphID(), "err", err)
		}
	}
	return c.NoContent(http.StatusNoContent)
}
