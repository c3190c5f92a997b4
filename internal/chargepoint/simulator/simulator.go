// Package simulator drives a charge port with simulated hardware: a vehicle
// that can be plugged in, a control pilot, relay, cable lock and a battery
// that charges according to the offered current.
package simulator

import (
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/w3cp/w3cp/internal/chargepoint/chargeport"
	"github.com/w3cp/w3cp/model"
)

const (
	lineVoltage     = 230.0
	minChargeAmps   = 6.0
	taperStartSoc   = 80.0
	taperFloor      = 0.3
	smoothingAlpha  = 0.3
	noiseAmplitude  = 0.05
	maxEvCurrentA   = 80.0
	cpVoltageLimitV = 15.0
)

// Nominal control pilot voltages.
const (
	cpIdle     = 12.0
	cpDetected = 9.0
	cpReady    = 6.0
	cpFault    = -12.0
)

// ErrAlreadyCharging is returned when charging is started twice.
var ErrAlreadyCharging = errors.New("already charging")

// State is a snapshot of the simulated hardware and vehicle.
type State struct {
	ChargePortID       int     `json:"chargePortId"`
	Plugged            bool    `json:"plugged"`
	Charging           bool    `json:"charging"`
	Faulted            bool    `json:"faulted"`
	RelayState         bool    `json:"relayState"`
	LockState          bool    `json:"lockState"`
	CPVoltage          float64 `json:"cpVoltage"`
	PwmDutyCycle       float64 `json:"pwmDutyCycle"`
	TotalEnergyWh      float64 `json:"totalEnergyWh"`
	EvMaxCurrentA      float64 `json:"evMaxCurrentA"`
	EvSocPercent       float64 `json:"evSocPercent"`
	EvTargetSocPercent float64 `json:"evTargetSocPercent"`
	EvPhases           int     `json:"evPhases"`
	EvEnergyWh         float64 `json:"evEnergyWh"`
	EvCapacityWh       float64 `json:"evCapacityWh"`
	PowerW             float64 `json:"powerW"`
}

// EVConfig changes vehicle parameters. Nil fields are left alone.
type EVConfig struct {
	MaxCurrentA *float64
	SocPercent  *float64
	Phases      *int
}

// Simulator owns the simulated hardware of one port and reports every
// change to the port's feeders.
type Simulator struct {
	port   *chargeport.Port
	logger *zerolog.Logger
	random func() float64

	mu    sync.Mutex
	state State
}

// New attaches a simulator to port and publishes its idle state.
func New(port *chargeport.Port, logger *zerolog.Logger) *Simulator {
	s := &Simulator{
		port:   port,
		logger: logger,
		random: rand.Float64,
		state: State{
			ChargePortID:       port.ID,
			CPVoltage:          cpIdle,
			EvMaxCurrentA:      32,
			EvSocPercent:       50,
			EvTargetSocPercent: 100,
			EvPhases:           1,
			EvEnergyWh:         25000,
			EvCapacityWh:       50000,
		},
	}
	s.emitState()
	return s
}

// State returns a copy of the current simulated state.
func (s *Simulator) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Plug connects a vehicle. The control pilot drops to state B.
func (s *Simulator) Plug() {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &s.state
	st.Plugged = true
	st.Faulted = false
	st.LockState = false
	st.CPVoltage = cpDetected
	st.PwmDutyCycle = 0
	s.emitState()
}

// Unplug disconnects the vehicle and forgets what it reported.
func (s *Simulator) Unplug() {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &s.state
	st.Plugged = false
	st.Charging = false
	st.Faulted = false
	st.RelayState = false
	st.LockState = false
	st.CPVoltage = cpIdle
	st.PwmDutyCycle = 0
	s.emitState()
	s.port.EvInfo.Reset()
}

// StartCharging plugs the vehicle in if needed and starts charging at full
// PWM. When ev is given its battery capacity, energy and target SoC seed
// the simulated battery.
func (s *Simulator) StartCharging(ev *model.EvInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &s.state
	if st.Charging {
		s.logger.Warn().Int("charge_port_id", st.ChargePortID).Msg("start charging rejected: already charging")
		return ErrAlreadyCharging
	}

	if ev != nil {
		s.port.EvInfo.Set(ev)
		if e := ev.Energy; e != nil {
			if e.CapacityWh != nil {
				s.setCapacity(*e.CapacityWh)
			}
			if e.EnergyWh != nil {
				s.setEnergy(*e.EnergyWh)
			}
			if e.SocTarget != nil {
				st.EvTargetSocPercent = clamp(float64(*e.SocTarget), 0, 100)
			}
		}
	}

	s.logger.Info().Int("charge_port_id", st.ChargePortID).Msg("start charging")
	st.Plugged = true
	st.Charging = true
	st.Faulted = false
	st.RelayState = true
	st.LockState = true
	st.CPVoltage = cpReady
	st.PwmDutyCycle = 100
	s.emitState()
	return nil
}

// StopCharging ends charging and opens the relay. The vehicle stays plugged.
func (s *Simulator) StopCharging() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopCharging()
}

func (s *Simulator) stopCharging() {
	st := &s.state
	st.Charging = false
	st.RelayState = false
	st.LockState = false
	st.CPVoltage = s.restingVoltage()
	st.PwmDutyCycle = 0
	s.emitState()
}

// Fault puts the port into state F and stops charging.
func (s *Simulator) Fault() {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &s.state
	st.Faulted = true
	st.Charging = false
	st.RelayState = false
	st.CPVoltage = cpFault
	st.PwmDutyCycle = 0
	s.emitState()
}

// ClearFault leaves the fault state without resuming charging.
func (s *Simulator) ClearFault() {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &s.state
	st.Faulted = false
	st.Charging = false
	st.CPVoltage = s.restingVoltage()
	st.PwmDutyCycle = 0
	s.emitState()
}

// SetControlPilot forces a control pilot voltage (clamped to ±15 V) and
// duty cycle (0..100 %) and updates the vehicle state it implies.
func (s *Simulator) SetControlPilot(voltage, pwm float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &s.state
	st.CPVoltage = clamp(voltage, -cpVoltageLimitV, cpVoltageLimitV)
	st.PwmDutyCycle = clamp(pwm, 0, 100)

	switch {
	case st.CPVoltage > 10:
		st.Plugged = false
		st.Charging = false
		st.LockState = false
	case st.CPVoltage > 7.5:
		st.Plugged = true
		st.Charging = false
		st.LockState = false
	case st.CPVoltage > 4.5:
		if st.PwmDutyCycle < 10 {
			st.Charging = false
			st.LockState = false
		} else {
			st.Plugged = true
			st.Charging = true
		}
	}
	s.emitState()
}

// Lock engages the cable lock. It has no effect without a vehicle.
func (s *Simulator) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Plugged {
		return
	}
	s.state.LockState = true
	s.emitState()
}

// Unlock releases the cable lock.
func (s *Simulator) Unlock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.LockState = false
	s.emitState()
}

// CloseRelay closes the contactor. It only does so while a healthy vehicle
// is charging.
func (s *Simulator) CloseRelay() {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &s.state
	if !st.Plugged || st.Faulted || !st.Charging {
		return
	}
	st.RelayState = true
	s.emitState()
}

// OpenRelay opens the contactor.
func (s *Simulator) OpenRelay() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.RelayState = false
	s.emitState()
}

// SetPwmDutyCycle sets the offered current as a duty cycle, clamped to
// 0..100 %.
func (s *Simulator) SetPwmDutyCycle(percent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.PwmDutyCycle = clamp(percent, 0, 100)
	s.emitState()
}

// ConfigureEV updates the vehicle. A new SoC also rewrites the battery
// energy from the capacity.
func (s *Simulator) ConfigureEV(cfg EVConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &s.state
	if cfg.MaxCurrentA != nil {
		st.EvMaxCurrentA = clamp(*cfg.MaxCurrentA, 0, maxEvCurrentA)
	}
	if cfg.SocPercent != nil {
		st.EvSocPercent = clamp(*cfg.SocPercent, 0, 100)
		st.EvEnergyWh = st.EvSocPercent / 100 * st.EvCapacityWh
		s.reportBattery()
	}
	if cfg.Phases != nil {
		st.EvPhases = min(max(*cfg.Phases, 1), 3)
	}
}

// ResetEnergy zeroes the cumulative meter.
func (s *Simulator) ResetEnergy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.TotalEnergyWh = 0
	zero := 0.0
	s.port.Metering.Apply(chargeport.MeterUpdate{EnergyImportKWh: &zero, EnergyExportKWh: &zero})
}

// Tick advances the simulation by one second.
func (s *Simulator) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &s.state
	target := s.chargingPower()
	power := st.PowerW + smoothingAlpha*(target-st.PowerW)
	st.PowerW = power

	if power > 0 {
		st.TotalEnergyWh += power / 3600
		st.EvEnergyWh += power / 3600
		if st.EvCapacityWh > 0 {
			soc := st.EvEnergyWh / st.EvCapacityWh * 100
			st.EvSocPercent = math.Min(math.Min(100, st.EvTargetSocPercent), soc)
		}
		s.reportBattery()

		if st.Charging && s.targetReached() {
			s.logger.Info().
				Int("charge_port_id", st.ChargePortID).
				Float64("soc", st.EvSocPercent).
				Float64("target_soc", st.EvTargetSocPercent).
				Msg("charging complete")
			s.stopCharging()
		}
	}

	var perPhase float64
	if power > 0 {
		perPhase = power / (lineVoltage * float64(st.EvPhases))
	}
	voltage := 0.0
	if st.RelayState {
		voltage = lineVoltage
	}
	exportW := 0.0
	s.port.Metering.Apply(chargeport.InstantaneousPower{
		Voltage:            &voltage,
		CurrentPerPhase:    slices.Repeat([]float64{perPhase}, st.EvPhases),
		ActivePowerImportW: &power,
		ActivePowerExportW: &exportW,
	})

	importKWh := st.TotalEnergyWh / 1000
	exportKWh := 0.0
	s.port.Metering.Apply(chargeport.MeterUpdate{EnergyImportKWh: &importKWh, EnergyExportKWh: &exportKWh})
}

// chargingPower is the power the vehicle would draw right now: limited by
// the PWM offer and the vehicle, tapered above 80 % SoC, with a little
// noise.
func (s *Simulator) chargingPower() float64 {
	st := &s.state
	if !st.RelayState || !st.Charging || s.targetReached() {
		return 0
	}

	current := math.Min(pwmToCurrent(st.PwmDutyCycle), st.EvMaxCurrentA)
	if current < minChargeAmps {
		return 0
	}
	maxPower := lineVoltage * current * float64(st.EvPhases)

	socFactor := 1.0
	if st.EvSocPercent >= taperStartSoc {
		progress := (st.EvSocPercent - taperStartSoc) / (100 - taperStartSoc)
		socFactor = 1 - (1-taperFloor)*progress
	}

	noise := 1 + (s.random()*2*noiseAmplitude - noiseAmplitude)
	return clamp(maxPower*socFactor*noise, 0, maxPower)
}

func (s *Simulator) targetReached() bool {
	return s.state.EvSocPercent >= s.state.EvTargetSocPercent || s.state.EvSocPercent >= 100
}

// pwmToCurrent follows IEC 61851-1 for duty cycles between 10 and 85 %.
func pwmToCurrent(pwm float64) float64 {
	if pwm < 10 {
		return 0
	}
	return (pwm - 10) * 0.6
}

func (s *Simulator) restingVoltage() float64 {
	if s.state.Plugged {
		return cpDetected
	}
	return cpIdle
}

func (s *Simulator) setCapacity(wh float64) {
	st := &s.state
	st.EvCapacityWh = math.Max(1, wh)
	st.EvSocPercent = math.Min(100, st.EvEnergyWh/st.EvCapacityWh*100)
}

func (s *Simulator) setEnergy(wh float64) {
	st := &s.state
	st.EvEnergyWh = math.Max(0, wh)
	st.EvSocPercent = math.Min(100, st.EvEnergyWh/st.EvCapacityWh*100)
	s.reportBattery()
}

func (s *Simulator) reportBattery() {
	s.port.EvInfo.Apply(chargeport.SocUpdate{Soc: s.state.EvSocPercent})
	s.port.EvInfo.Apply(chargeport.EnergyUpdate{EnergyWh: s.state.EvEnergyWh})
}

// emitState enforces the hardware interlocks and reports relay, lock and
// control pilot to the connector feeder.
func (s *Simulator) emitState() {
	st := &s.state
	if st.Faulted {
		st.RelayState = false
	}
	if !st.Plugged || st.Faulted || !st.Charging {
		st.LockState = false
	}
	if !st.RelayState && st.CPVoltage < 7.5 && st.CPVoltage > 4.5 {
		st.CPVoltage = s.restingVoltage()
	}

	s.port.Connector.Apply(chargeport.RelayChanged{Closed: st.RelayState})
	s.port.Connector.Apply(chargeport.LockChanged{Locked: st.LockState})
	s.port.Connector.Apply(chargeport.ControlPilotSample{CPVoltage: st.CPVoltage, PwmDutyCycle: st.PwmDutyCycle})
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
