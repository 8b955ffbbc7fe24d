package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/poklin/poklin/internal/api/metrics"
)

// Metrics records request count and latency per registered route. A handler
// error is written by the error handler first so the recorded status is the
// one sent, then returned for outer middleware such as the request logger.
// Echo's error handler skips committed responses, so nothing is written twice.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
