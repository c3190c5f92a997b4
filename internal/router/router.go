// Package router initializes the HTTP router (using Echo).
//
// It registers the middlewares and defines the API route groups, mapping
// specific paths to their corresponding handlers.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/w3cp/w3cp/internal/handler"
	"github.com/w3cp/w3cp/internal/middleware"
	"github.com/w3cp/w3cp/internal/server"
)

// NewRouter builds the Echo instance with the global middleware chain and
// every route. New Relic runs first so the later middleware and handlers
// find the transaction.
func NewRouter(s *server.Server, h *handler.Handlers) *echo.Echo {
	middlewares := middleware.NewMiddlewares(s)

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true
	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	router.Use(
		middlewares.Tracing.NewRelicMiddleware(),
		middlewares.Tracing.EnhanceTracing(),
		middleware.RequestID(),
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Global.RequestLogger(),
		middlewares.Global.Recover(),
		middlewares.Global.CORS(),
		middlewares.Global.Secure(),
		middlewares.RateLimit.Limit(),
	)

	registerSystemRoutes(router, h)

	api := router.Group("/api", middlewares.Auth.RequireAuth)
	registerStatusRoutes(api, h)
	registerSimulatorRoutes(api, h)
	registerSessionRoutes(api, h)

	return router
}
