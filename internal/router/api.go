package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/w3cp/w3cp/internal/chargepoint/simulator"
	"github.com/w3cp/w3cp/internal/handler"
)

func registerStatusRoutes(api *echo.Group, h *handler.Handlers) {
	api.GET("/status", handler.Handle(h.Status.Handler, h.Status.GetStatus, http.StatusOK))
}

func registerSimulatorRoutes(api *echo.Group, h *handler.Handlers) {
	sim := h.Simulator
	g := api.Group("/sim")

	actions := map[string]func(*simulator.Simulator){
		"/connector/actions/plug":          (*simulator.Simulator).Plug,
		"/connector/actions/unplug":        (*simulator.Simulator).Unplug,
		"/connector/actions/stop-charging": (*simulator.Simulator).StopCharging,
		"/connector/actions/fault":         (*simulator.Simulator).Fault,
		"/connector/actions/clear-fault":   (*simulator.Simulator).ClearFault,
		"/connector/low-level/lock":        (*simulator.Simulator).Lock,
		"/connector/low-level/unlock":      (*simulator.Simulator).Unlock,
		"/connector/low-level/relay/close": (*simulator.Simulator).CloseRelay,
		"/connector/low-level/relay/open":  (*simulator.Simulator).OpenRelay,
		"/metering/reset":                  (*simulator.Simulator).ResetEnergy,
	}
	for path, fn := range actions {
		g.POST(path, handler.HandleNoContent(sim.Handler, sim.Action(fn), http.StatusNoContent))
	}

	g.POST("/connector/actions/start-charging", handler.HandleNoContent(sim.Handler, sim.StartCharging, http.StatusNoContent))
	g.POST("/connector/low-level/cp", handler.HandleNoContent(sim.Handler, sim.SetControlPilot, http.StatusNoContent))
	g.POST("/connector/low-level/pwm", handler.HandleNoContent(sim.Handler, sim.SetPwm, http.StatusNoContent))
	g.POST("/config/ev", handler.HandleNoContent(sim.Handler, sim.ConfigureEV, http.StatusNoContent))

	g.GET("/state", handler.Handle(sim.Handler, sim.GetState, http.StatusOK))
	g.GET("/connector/status", handler.Handle(sim.Handler, sim.GetConnector, http.StatusOK))
	g.GET("/metering/status", handler.Handle(sim.Handler, sim.GetMetering, http.StatusOK))
}

func registerSessionRoutes(api *echo.Group, h *handler.Handlers) {
	api.GET("/sessions", handler.Handle(h.Sessions.Handler, h.Sessions.ListSessions, http.StatusOK))
	api.GET("/sessions/:id", handler.Handle(h.Sessions.Handler, h.Sessions.GetSession, http.StatusOK))
}
