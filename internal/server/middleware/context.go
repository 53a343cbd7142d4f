package middleware

import (
	"time"

	"github.com/OFFIS-RIT/curator/pkg/leaselock"
	"github.com/OFFIS-RIT/curator/pkg/metrics"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"
)

type AppUser struct {
	UserID      string
	Role        string
	Permissions []string
}

// App holds the process wide dependencies handed to every request.
type App struct {
	DBConn  *pgxpool.Pool
	Queue   *amqp091.Channel
	Keyfunc jwt.Keyfunc
	S3      *s3.Client
	Locks   *leaselock.Client
	Metrics *metrics.Collector

	// PathParallel bounds concurrent searches of a distances request.
	PathParallel int
	LockTTL      time.Duration

	MasterAPIKey   string
	MasterUserID   string
	MasterUserRole string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}

// MetricsMiddleware records request counts and durations per route
// template, e.g. /api/graphs/:graph/nodes/:id.
func MetricsMiddleware(collector *metrics.Collector) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			collector.ObserveHTTP(c.Request().Method, c.Path(), status, time.Since(start))
			return err
		}
	}
}
