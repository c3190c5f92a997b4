package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/w3cp/w3cp/internal/server"
	"github.com/w3cp/w3cp/internal/service"
	"github.com/w3cp/w3cp/internal/validation"
	"github.com/w3cp/w3cp/model"
)

// StatusHandler serves the status the charge point would report.
type StatusHandler struct {
	Handler
	chargePoint *service.ChargePointService
}

func NewStatusHandler(s *server.Server, chargePoint *service.ChargePointService) *StatusHandler {
	return &StatusHandler{
		Handler:     NewHandler(s),
		chargePoint: chargePoint,
	}
}

// GetStatus assembles the full charge point status.
func (h *StatusHandler) GetStatus(c echo.Context, _ *validation.EmptyRequest) (*model.ChargePointStatus, error) {
	return h.chargePoint.Status(c.Request().Context())
}
