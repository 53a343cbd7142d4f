package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/curator/pkg/graph"
	"github.com/OFFIS-RIT/curator/pkg/path"

	"github.com/labstack/echo/v4"
)

type pathResponse struct {
	Source   string   `json:"source"`
	Found    bool     `json:"found"`
	Distance int      `json:"distance"`
	Path     []string `json:"path"`
}

func newPathResponse(source string, p *path.PathNode) pathResponse {
	res := pathResponse{Source: source, Path: make([]string, 0)}
	if p != nil {
		res.Found = true
		res.Distance = p.Distance
		res.Path = p.Path()
	}
	return res
}

// ShortestPathHandler finds the nearest of the given targets from source,
// moving one pattern match per hop.
func ShortestPathHandler(c echo.Context) error {
	type shortestPathBody struct {
		Source  string   `json:"source" validate:"required"`
		Targets []string `json:"targets" validate:"required,min=1"`
		Pattern string   `json:"pattern" validate:"required"`
	}

	data := new(shortestPathBody)
	if err := bindAndValidate(c, data); err != nil {
		return badRequest(c, "Invalid request body")
	}
	pattern, err := graph.ParsePattern(data.Pattern)
	if err != nil {
		return badRequest(c, err.Error())
	}

	store, err := graphStore(c)
	if err != nil {
		return writeError(c, err)
	}

	app := appOf(c)
	p, err := path.NewFinder(store).Find(c.Request().Context(), data.Source, data.Targets, pattern)
	if app.Metrics != nil {
		app.Metrics.ObservePath(p != nil, err)
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newPathResponse(data.Source, p))
}

// DistancesHandler runs one shortest path search per source.
func DistancesHandler(c echo.Context) error {
	type distancesBody struct {
		Sources []string `json:"sources" validate:"required,min=1"`
		Targets []string `json:"targets" validate:"required,min=1"`
		Pattern string   `json:"pattern" validate:"required"`
	}

	data := new(distancesBody)
	if err := bindAndValidate(c, data); err != nil {
		return badRequest(c, "Invalid request body")
	}
	pattern, err := graph.ParsePattern(data.Pattern)
	if err != nil {
		return badRequest(c, err.Error())
	}

	store, err := graphStore(c)
	if err != nil {
		return writeError(c, err)
	}

	app := appOf(c)
	finder := path.NewFinder(store)
	finder.Parallel = app.PathParallel
	dists, err := finder.Distances(c.Request().Context(), data.Sources, data.Targets, pattern)
	if err != nil {
		if app.Metrics != nil {
			app.Metrics.ObservePath(false, err)
		}
		return writeError(c, err)
	}

	res := make([]pathResponse, 0, len(dists))
	for _, d := range dists {
		if app.Metrics != nil {
			app.Metrics.ObservePath(d.Path != nil, nil)
		}
		res = append(res, newPathResponse(d.Source, d.Path))
	}
	return c.JSON(http.StatusOK, res)
}
