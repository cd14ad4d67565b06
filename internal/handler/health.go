package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// Health handles GET /healthz for load balancers.  It answers "ok" without
// touching the patient store.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Root handles GET / with the static greeting.
func Root(c echo.Context) error {
    return c.JSON(http.StatusOK, messageResponse{Message: "Hello World"})
}

// About handles GET /about with the static service description.
func About(c echo.Context) error {
    return c.JSON(http.StatusOK, messageResponse{Message: "This is a simple FastAPI application."})
}
