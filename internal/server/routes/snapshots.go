package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/curator/internal/storage"
	"github.com/OFFIS-RIT/curator/pkg/logger"

	"github.com/labstack/echo/v4"
)

// GetSnapshotsHandler lists the stored snapshots of a graph, newest first,
// each with a presigned download link.
func GetSnapshotsHandler(c echo.Context) error {
	app := appOf(c)
	if app.S3 == nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Message: "Snapshot storage is not configured"})
	}

	ctx := c.Request().Context()
	snaps, err := storage.ListSnapshots(ctx, app.S3, c.Param("graph"))
	if err != nil {
		return writeError(c, err)
	}
	for i := range snaps {
		link, err := storage.GenerateDownloadLink(ctx, app.S3, snaps[i].Key)
		if err != nil {
			logger.Warn("[Server] Failed to sign snapshot link", "key", snaps[i].Key, "err", err)
			continue
		}
		snaps[i].URL = link
	}
	return c.JSON(http.StatusOK, snaps)
}
