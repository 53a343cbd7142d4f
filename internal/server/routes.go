package server

import (
	"github.com/OFFIS-RIT/curator/internal/server/middleware"
	"github.com/OFFIS-RIT/curator/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, app *middleware.App) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})
	if app.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(app.Metrics.Handler()))
	}

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Graph routes
	apiRoutes.POST("/graphs", routes.CreateGraphHandler, middleware.RequirePermission(middleware.PermGraphEdit))
	apiRoutes.DELETE("/graphs/:graph", routes.DeleteGraphHandler, middleware.RequirePermission(middleware.PermGraphEdit))

	// Node and edge routes
	apiRoutes.POST("/graphs/:graph/nodes", routes.CreateNodeHandler, middleware.RequirePermission(middleware.PermGraphEdit))
	apiRoutes.GET("/graphs/:graph/nodes/:id", routes.GetNodeHandler, middleware.RequirePermission(middleware.PermGraphView))
	apiRoutes.DELETE("/graphs/:graph/nodes/:id", routes.DeleteNodeHandler, middleware.RequirePermission(middleware.PermGraphEdit))
	apiRoutes.POST("/graphs/:graph/nodes/:id/xrefs", routes.AddXRefHandler, middleware.RequirePermission(middleware.PermGraphEdit))
	apiRoutes.POST("/graphs/:graph/edges", routes.AddEdgeHandler, middleware.RequirePermission(middleware.PermGraphEdit))
	apiRoutes.DELETE("/graphs/:graph/edges", routes.RemoveEdgeHandler, middleware.RequirePermission(middleware.PermGraphEdit))

	// Path routes
	apiRoutes.POST("/graphs/:graph/paths", routes.ShortestPathHandler, middleware.RequirePermission(middleware.PermGraphView))
	apiRoutes.POST("/graphs/:graph/distances", routes.DistancesHandler, middleware.RequirePermission(middleware.PermGraphView))

	// Curation job routes
	apiRoutes.POST("/graphs/:graph/jobs", routes.CreateJobHandler, middleware.RequirePermission(middleware.PermGraphCurate))
	apiRoutes.GET("/graphs/:graph/jobs", routes.GetJobsHandler, middleware.RequireAnyPermission(middleware.PermGraphView, middleware.PermGraphCurate))
	apiRoutes.GET("/graphs/:graph/jobs/:job", routes.GetJobHandler, middleware.RequireAnyPermission(middleware.PermGraphView, middleware.PermGraphCurate))

	// Snapshot routes
	apiRoutes.GET("/graphs/:graph/snapshots", routes.GetSnapshotsHandler, middleware.RequirePermission(middleware.PermGraphExport))
}
