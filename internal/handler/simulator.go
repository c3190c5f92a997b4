package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/w3cp/w3cp/internal/chargepoint/simulator"
	"github.com/w3cp/w3cp/internal/server"
	"github.com/w3cp/w3cp/internal/service"
	"github.com/w3cp/w3cp/internal/validation"
	"github.com/w3cp/w3cp/model"
)

// PortQuery selects a charge port. Zero means the first configured port.
type PortQuery struct {
	ChargePortID int `query:"chargePortId" json:"-" validate:"gte=0"`
}

// Port is nil when no port was given.
func (q PortQuery) Port() *int {
	if q.ChargePortID == 0 {
		return nil
	}
	id := q.ChargePortID
	return &id
}

// PortRequest is the input of simulator actions that only pick a port.
type PortRequest struct {
	PortQuery
}

func (r *PortRequest) Validate() error { return validation.Struct(r) }

// StartChargingRequest optionally carries what the vehicle reports about
// itself.
type StartChargingRequest struct {
	PortQuery
	EvInfo *model.EvInfo `json:"evInfo"`
}

func (r *StartChargingRequest) Validate() error { return validation.Struct(r) }

// ControlPilotRequest forces a control pilot voltage and duty cycle.
type ControlPilotRequest struct {
	PortQuery
	CPVoltage    float64 `json:"cpVoltage"`
	PwmDutyCycle float64 `json:"pwmDutyCycle"`
}

func (r *ControlPilotRequest) Validate() error { return validation.Struct(r) }

// PwmRequest sets the PWM duty cycle in percent.
type PwmRequest struct {
	PortQuery
	DutyCycle float64 `json:"dutyCycle" validate:"gte=0,lte=100"`
}

func (r *PwmRequest) Validate() error { return validation.Struct(r) }

// EVConfigRequest changes the simulated vehicle. Omitted fields are kept.
type EVConfigRequest struct {
	PortQuery
	MaxCurrentA *float64 `json:"maxCurrentA" validate:"omitempty,gte=0"`
	SocPercent  *float64 `json:"socPercent" validate:"omitempty,gte=0,lte=100"`
	Phases      *int     `json:"phases" validate:"omitempty,gte=1,lte=3"`
}

func (r *EVConfigRequest) Validate() error { return validation.Struct(r) }

// SimulatorHandler drives the simulated hardware of a charge port.
type SimulatorHandler struct {
	Handler
	chargePoint *service.ChargePointService
}

// NewSimulatorHandler serves the simulator API of every port.
func NewSimulatorHandler(s *server.Server, chargePoint *service.ChargePointService) *SimulatorHandler {
	return &SimulatorHandler{
		Handler:     NewHandler(s),
		chargePoint: chargePoint,
	}
}

// Action returns a no-content handler that applies fn to the selected
// port's simulator.
func (h *SimulatorHandler) Action(fn func(*simulator.Simulator)) HandlerFuncNoContent[PortRequest] {
	return func(c echo.Context, req *PortRequest) error {
		return h.chargePoint.Simulate(req.Port(), fn)
	}
}

// StartCharging plugs in if needed and starts charging.
func (h *SimulatorHandler) StartCharging(c echo.Context, req *StartChargingRequest) error {
	return h.chargePoint.StartCharging(req.Port(), req.EvInfo)
}

// SetControlPilot applies a raw control pilot sample.
func (h *SimulatorHandler) SetControlPilot(c echo.Context, req *ControlPilotRequest) error {
	return h.chargePoint.Simulate(req.Port(), func(sim *simulator.Simulator) {
		sim.SetControlPilot(req.CPVoltage, req.PwmDutyCycle)
	})
}

func (h *SimulatorHandler) SetPwm(c echo.Context, req *PwmRequest) error {
	return h.chargePoint.Simulate(req.Port(), func(sim *simulator.Simulator) {
		sim.SetPwmDutyCycle(req.DutyCycle)
	})
}

func (h *SimulatorHandler) ConfigureEV(c echo.Context, req *EVConfigRequest) error {
	return h.chargePoint.Simulate(req.Port(), func(sim *simulator.Simulator) {
		sim.ConfigureEV(simulator.EVConfig{
			MaxCurrentA: req.MaxCurrentA,
			SocPercent:  req.SocPercent,
			Phases:      req.Phases,
		})
	})
}

// GetState returns the simulated hardware and vehicle state.
func (h *SimulatorHandler) GetState(c echo.Context, req *PortRequest) (*simulator.State, error) {
	return h.chargePoint.SimulatorState(req.Port())
}

// GetConnector returns the connector as it appears in the status report.
func (h *SimulatorHandler) GetConnector(c echo.Context, req *PortRequest) (*model.Connector, error) {
	return h.chargePoint.Connector(c.Request().Context(), req.Port())
}

// GetMetering returns the meter readings of the port.
func (h *SimulatorHandler) GetMetering(c echo.Context, req *PortRequest) (*model.EnergyStatus, error) {
	return h.chargePoint.Metering(c.Request().Context(), req.Port())
}
