package chargeport

import (
	"time"

	"github.com/w3cp/w3cp/model"
)

// ConnectorEvent is a hardware observation applied to the connector state.
type ConnectorEvent interface {
	applyTo(s *connectorState)
}

// ControlPilotSample is a measured control pilot voltage and PWM duty cycle.
type ControlPilotSample struct {
	CPVoltage    float64
	PwmDutyCycle float64
}

func (e ControlPilotSample) applyTo(s *connectorState) {
	s.lastRawCPVoltage = &e.CPVoltage
	s.pwmDutyCycle = &e.PwmDutyCycle
	state := InferIec61851State(e.CPVoltage)
	s.iec61851State = &state
}

// LockChanged reports the cable lock actuator state.
type LockChanged struct {
	Locked bool
}

func (e LockChanged) applyTo(s *connectorState) {
	s.locked = &e.Locked
}

// RelayChanged reports the main contactor state.
type RelayChanged struct {
	Closed bool
}

func (e RelayChanged) applyTo(s *connectorState) {
	s.relayClosed = &e.Closed
}

// ModeDetected reports the detected IEC 61851 charging mode and edition.
type ModeDetected struct {
	Mode    model.Iec61851ChargingMode
	Edition model.Iec61851Edition
}

func (e ModeDetected) applyTo(s *connectorState) {
	s.chargingMode = &e.Mode
	s.iec61851Edition = &e.Edition
}

// EnergyConfig reports the supported energy direction and current type.
type EnergyConfig struct {
	Direction   model.EnergyDirection
	CurrentType model.CurrentType
}

func (e EnergyConfig) applyTo(s *connectorState) {
	s.energyDirection = &e.Direction
	s.currentType = &e.CurrentType
}

// PhysicalConfig reports the physical interface and connector standard.
type PhysicalConfig struct {
	InterfaceType     model.InterfaceType
	ConnectorStandard string
}

func (e PhysicalConfig) applyTo(s *connectorState) {
	s.interfaceType = &e.InterfaceType
	s.connectorStandard = &e.ConnectorStandard
}

// InferIec61851State maps a control pilot voltage onto the IEC 61851 state
// machine.
func InferIec61851State(cpVoltage float64) model.Iec61851State {
	switch {
	case cpVoltage > 10.0:
		return model.Iec61851StateA
	case cpVoltage > 7.5:
		return model.Iec61851StateB
	case cpVoltage > 4.5:
		return model.Iec61851StateC
	case cpVoltage > 1.5:
		return model.Iec61851StateD
	case cpVoltage > -1.0:
		return model.Iec61851StateE
	default:
		return model.Iec61851StateF
	}
}

// MeteringEvent is a meter reading applied to the metering state.
type MeteringEvent interface {
	applyTo(s *meteringState)
}

// InstantaneousPower replaces the instantaneous electrical snapshot. Nil
// fields clear the previous value.
type InstantaneousPower struct {
	Voltage            *float64
	CurrentPerPhase    []float64
	ActivePowerImportW *float64
	ActivePowerExportW *float64
}

func (e InstantaneousPower) applyTo(s *meteringState) {
	s.voltage = e.Voltage
	s.currentPerPhase = append([]float64(nil), e.CurrentPerPhase...)
	s.activePowerImportW = e.ActivePowerImportW
	s.activePowerExportW = e.ActivePowerExportW
}

// MeterUpdate sets the cumulative energy registers in kWh. Nil fields keep
// the previous value.
type MeterUpdate struct {
	EnergyImportKWh *float64
	EnergyExportKWh *float64
}

func (e MeterUpdate) applyTo(s *meteringState) {
	if e.EnergyImportKWh != nil {
		s.energyImportKWh = e.EnergyImportKWh
	}
	if e.EnergyExportKWh != nil {
		s.energyExportKWh = e.EnergyExportKWh
	}
}

// EvInfoEvent updates the connected vehicle's reported battery state.
type EvInfoEvent interface {
	applyTo(info *model.EvInfo)
}

// SocUpdate sets the vehicle state of charge in percent.
type SocUpdate struct {
	Soc float64
}

func (e SocUpdate) applyTo(info *model.EvInfo) {
	if info == nil || info.Energy == nil {
		return
	}
	soc := int(e.Soc)
	info.Energy.Soc = &soc
}

// EnergyUpdate sets the energy stored in the vehicle battery in Wh.
type EnergyUpdate struct {
	EnergyWh float64
}

func (e EnergyUpdate) applyTo(info *model.EvInfo) {
	if info == nil || info.Energy == nil {
		return
	}
	wh := e.EnergyWh
	info.Energy.EnergyWh = &wh
}

// sessionEvent drives the session state machine.
type sessionEvent interface {
	at() time.Time
}

type vehiclePlugged struct{ When time.Time }

func (e vehiclePlugged) at() time.Time { return e.When }

type vehicleUnplugged struct{ When time.Time }

func (e vehicleUnplugged) at() time.Time { return e.When }

// powerSample is emitted by the metering feeder whenever power and both
// meters are known.
type powerSample struct {
	When           time.Time
	ImportW        float64
	ExportW        float64
	MeterImportKWh float64
	MeterExportKWh float64
}

func (e powerSample) at() time.Time { return e.When }
