package router

import (
	"github.com/labstack/echo/v4"

	"github.com/w3cp/w3cp/internal/handler"
)

// registerSystemRoutes registers endpoints that are not part of the charge
// point API. They are never behind auth.
func registerSystemRoutes(r *echo.Echo, h *handler.Handlers) {
	r.GET("/status", h.Health.CheckHealth)
}
