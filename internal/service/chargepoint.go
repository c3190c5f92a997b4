package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/w3cp/w3cp/internal/chargepoint"
	"github.com/w3cp/w3cp/internal/chargepoint/chargeport"
	"github.com/w3cp/w3cp/internal/chargepoint/simulator"
	"github.com/w3cp/w3cp/internal/errs"
	"github.com/w3cp/w3cp/internal/server"
	"github.com/w3cp/w3cp/model"
)

var (
	codePortNotFound    = "CHARGE_PORT_NOT_FOUND"
	codeSimulatorOff    = "SIMULATOR_DISABLED"
	codeAlreadyCharging = "ALREADY_CHARGING"
)

// ChargePointService exposes the runtime to the HTTP layer. A nil port id
// selects the first configured port.
type ChargePointService struct {
	runtime *chargepoint.Runtime
}

// NewChargePointService wraps the runtime of s.
func NewChargePointService(s *server.Server) *ChargePointService {
	return &ChargePointService{runtime: s.Runtime}
}

// Status assembles the current charge point status without sending it.
func (cs *ChargePointService) Status(ctx context.Context) (*model.ChargePointStatus, error) {
	status, err := cs.runtime.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("assemble status: %w", err)
	}
	return &status, nil
}

// Port resolves portID, nil meaning the default port.
func (cs *ChargePointService) Port(portID *int) (*chargeport.Port, error) {
	port, err := cs.runtime.Port(cs.resolve(portID))
	if err != nil {
		return nil, mapRuntimeError(err)
	}
	return port, nil
}

// Connector returns the connector status of a port.
func (cs *ChargePointService) Connector(ctx context.Context, portID *int) (*model.Connector, error) {
	port, err := cs.Port(portID)
	if err != nil {
		return nil, err
	}
	return port.Connector.Fetch(ctx)
}

// Metering returns the energy status of a port.
func (cs *ChargePointService) Metering(ctx context.Context, portID *int) (*model.EnergyStatus, error) {
	port, err := cs.Port(portID)
	if err != nil {
		return nil, err
	}
	return port.Metering.Fetch(ctx)
}

// Simulate runs fn against the simulator of the selected port.
func (cs *ChargePointService) Simulate(portID *int, fn func(*simulator.Simulator)) error {
	sim, err := cs.simulator(portID)
	if err != nil {
		return err
	}
	fn(sim)
	return nil
}

// SimulatorState returns the simulated state of a port.
func (cs *ChargePointService) SimulatorState(portID *int) (*simulator.State, error) {
	sim, err := cs.simulator(portID)
	if err != nil {
		return nil, err
	}
	state := sim.State()
	return &state, nil
}

// StartCharging starts charging on the selected port, seeding the
// simulated battery from ev when given.
func (cs *ChargePointService) StartCharging(portID *int, ev *model.EvInfo) error {
	sim, err := cs.simulator(portID)
	if err != nil {
		return err
	}
	if err := sim.StartCharging(ev); err != nil {
		return mapRuntimeError(err)
	}
	return nil
}

func (cs *ChargePointService) simulator(portID *int) (*simulator.Simulator, error) {
	sim, err := cs.runtime.Simulator(cs.resolve(portID))
	if err != nil {
		return nil, mapRuntimeError(err)
	}
	return sim, nil
}

func (cs *ChargePointService) resolve(portID *int) int {
	if portID == nil {
		return cs.runtime.DefaultPortID()
	}
	return *portID
}

// BackendConnection reports whether a backend is configured and, if so,
// whether the connection is verified.
func (cs *ChargePointService) BackendConnection() (configured, verified bool) {
	client := cs.runtime.Connection()
	if client == nil {
		return false, false
	}
	return true, client.Verified()
}

func mapRuntimeError(err error) error {
	switch {
	case errors.Is(err, chargepoint.ErrUnknownPort):
		return errs.NewNotFoundError(err.Error(), true, &codePortNotFound)
	case errors.Is(err, chargepoint.ErrSimulatorDisabled):
		return errs.NewNotFoundError("Simulator is disabled on this charge point", true, &codeSimulatorOff)
	case errors.Is(err, simulator.ErrAlreadyCharging):
		return errs.NewBadRequestError("Charge port is already charging", true, &codeAlreadyCharging, nil, nil)
	default:
		return err
	}
}
