// Package handler is the HTTP entry point after the router.
//
// It binds and validates requests with the validation package, calls the
// service layer and writes JSON responses.
package handler

import (
	"github.com/w3cp/w3cp/internal/server"
	"github.com/w3cp/w3cp/internal/service"
)

// Handlers groups all HTTP handlers.
type Handlers struct {
	Health    *HealthHandler
	Status    *StatusHandler
	Simulator *SimulatorHandler
	Sessions  *SessionHandler
}

// NewHandlers builds every handler on top of the services.
func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(s, services.ChargePoint),
		Status:    NewStatusHandler(s, services.ChargePoint),
		Simulator: NewSimulatorHandler(s, services.ChargePoint),
		Sessions:  NewSessionHandler(s, services.Sessions),
	}
}
