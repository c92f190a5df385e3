package server

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/yf-river/LifeOS/metrics"
)

// observe counts requests by route, method and final status
func (s *Server) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)

		status := c.Response().Status
		if err != nil && !c.Response().Committed {
			status, _ = statusOf(err)
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}

		metrics.HTTPRequests.WithLabelValues(route, c.Request().Method, strconv.Itoa(status)).Inc()
		return err
	}
}
