package middleware

import (
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/patient-records/internal/metrics"
)

// Metrics records request latency by method, route template and status.
// Requests that matched no route are recorded under "unmatched" so ids in
// paths never become label values.
func Metrics(m *metrics.Metrics) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)

            status := c.Response().Status
            if err != nil {
                var he *echo.HTTPError
                if errors.As(err, &he) {
                    status = he.Code
                } else {
                    status = http.StatusInternalServerError
                }
            }
            route := c.Path()
            if route == "" {
                route = "unmatched"
            }
            m.ObserveRequest(c.Request().Method, route, status, time.Since(start))
            return err
        }
    }
}
