package routes

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/OFFIS-RIT/curator/internal/server/middleware"
	"github.com/OFFIS-RIT/curator/pkg/graph"
	"github.com/OFFIS-RIT/curator/pkg/leaselock"
	"github.com/OFFIS-RIT/curator/pkg/logger"
	pgstore "github.com/OFFIS-RIT/curator/pkg/store/pgx"

	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Message string `json:"message"`
}

func appOf(c echo.Context) *middleware.App {
	return c.(*middleware.AppContext).App
}

func graphStore(c echo.Context) (*pgstore.GraphStore, error) {
	return pgstore.NewGraphStore(appOf(c).DBConn, c.Param("graph"))
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, graph.ErrNodeNotFound),
		errors.Is(err, graph.ErrEdgeNotFound),
		errors.Is(err, pgstore.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, graph.ErrNodeExists),
		errors.Is(err, graph.ErrInconsistent),
		errors.Is(err, leaselock.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, graph.ErrInvalidPattern),
		errors.Is(err, graph.ErrMissingParameter),
		errors.Is(err, graph.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("[Server] Request failed", "path", c.Path(), "err", err)
		return c.JSON(status, errorResponse{Message: "Internal server error"})
	}
	return c.JSON(status, errorResponse{Message: err.Error()})
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Message: message})
}

// bindAndValidate binds path params and body into data and validates it.
func bindAndValidate(c echo.Context, data any) error {
	if err := c.Bind(data); err != nil {
		return err
	}
	return c.Validate(data)
}

// withWriteLease runs fn in one transaction while holding the graph's
// write lease. It does not wait for a busy lease, the client gets 409.
func withWriteLease(c echo.Context, store *pgstore.GraphStore, fn func(ctx context.Context, tx *pgstore.GraphStore) error) error {
	app := appOf(c)
	ttl := app.LockTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return app.Locks.WithGraphLease(c.Request().Context(), store.GraphID(), leaselock.Options{
		TTL:         ttl,
		TokenPrefix: "server-",
	}, func(ctx context.Context) error {
		return store.WithTx(ctx, func(tx *pgstore.GraphStore) error {
			return fn(ctx, tx)
		})
	})
}
