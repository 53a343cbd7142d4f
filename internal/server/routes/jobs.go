package routes

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/OFFIS-RIT/curator/internal/queue"
	"github.com/OFFIS-RIT/curator/internal/server/middleware"
	"github.com/OFFIS-RIT/curator/internal/util"
	"github.com/OFFIS-RIT/curator/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CreateJobHandler records a curation job and hands it to the worker. The
// job runs asynchronously; its state is polled with GetJobHandler.
func CreateJobHandler(c echo.Context) error {
	type createJobBody struct {
		Kind   queue.JobKind   `json:"kind" validate:"required"`
		Params json.RawMessage `json:"params"`
	}

	data := new(createJobBody)
	if err := bindAndValidate(c, data); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user := c.(*middleware.AppContext).User
	if data.Kind == queue.JobSnapshot && !middleware.HasPermission(user, middleware.PermGraphExport) {
		return c.JSON(http.StatusForbidden, errorResponse{Message: "Forbidden: missing permission " + middleware.PermGraphExport})
	}

	store, err := graphStore(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx := c.Request().Context()
	if err := store.EnsureGraph(ctx); err != nil {
		return writeError(c, err)
	}

	id, err := util.NewID()
	if err != nil {
		return writeError(c, err)
	}
	body, err := json.Marshal(queue.JobMsg{ID: id, GraphID: store.GraphID(), Kind: data.Kind, Params: data.Params})
	if err != nil {
		return writeError(c, err)
	}
	if _, err := queue.ParseJobMsg(body); err != nil {
		return badRequest(c, err.Error())
	}

	job, err := store.CreateJob(ctx, id, string(data.Kind), data.Params)
	if err != nil {
		return writeError(c, err)
	}
	if err := queue.PublishFIFO(appOf(c).Queue, queue.CurationQueue, body); err != nil {
		logger.Error("[Server] Failed to publish curation job", "job", id, "err", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "Failed to queue job"})
	}

	logger.Info("[Server] Queued curation job", "job", id, "graph", store.GraphID(), "kind", data.Kind, "user", user.UserID)
	return c.JSON(http.StatusAccepted, job)
}

func GetJobHandler(c echo.Context) error {
	store, err := graphStore(c)
	if err != nil {
		return writeError(c, err)
	}
	job, err := store.GetJob(c.Request().Context(), c.Param("job"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, job)
}

func GetJobsHandler(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return badRequest(c, "Invalid limit")
		}
		limit = n
	}

	store, err := graphStore(c)
	if err != nil {
		return writeError(c, err)
	}
	jobs, err := store.ListJobs(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, jobs)
}
