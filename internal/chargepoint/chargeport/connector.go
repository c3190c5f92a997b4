package chargeport

import (
	"context"
	"sync"
	"time"

	"github.com/w3cp/w3cp/model"
)

type connectorState struct {
	status            *model.ConnectorStatus
	locked            *bool
	iec61851State     *model.Iec61851State
	pwmDutyCycle      *float64
	relayClosed       *bool
	iec61851Edition   *model.Iec61851Edition
	chargingMode      *model.Iec61851ChargingMode
	energyDirection   *model.EnergyDirection
	interfaceType     *model.InterfaceType
	currentType       *model.CurrentType
	connectorStandard *string

	lastRawCPVoltage *float64
}

// newConnectorState is an idle Mode 3 AC Type 2 socket.
func newConnectorState() connectorState {
	return connectorState{
		status:            ptr(model.ConnectorAvailable),
		locked:            ptr(false),
		iec61851State:     ptr(model.Iec61851StateA),
		pwmDutyCycle:      ptr(0.0),
		relayClosed:       ptr(false),
		chargingMode:      ptr(model.ChargingMode3),
		interfaceType:     ptr(model.InterfacePlug),
		currentType:       ptr(model.CurrentAC),
		connectorStandard: ptr("type2"),
	}
}

func (s *connectorState) snapshot() model.Connector {
	return model.Connector{
		Status:            clone(s.status),
		Locked:            clone(s.locked),
		Iec61851State:     clone(s.iec61851State),
		PwmDutyCycle:      clone(s.pwmDutyCycle),
		RelayClosed:       clone(s.relayClosed),
		Iec61851Edition:   clone(s.iec61851Edition),
		ChargingMode:      clone(s.chargingMode),
		EnergyDirection:   clone(s.energyDirection),
		InterfaceType:     clone(s.interfaceType),
		CurrentType:       clone(s.currentType),
		ConnectorStandard: clone(s.connectorStandard),
	}
}

// ConnectorFeeder keeps the connector runtime state. It derives the
// high-level status from the IEC 61851 state and the relay, and reports
// plug and unplug transitions to the session feeder.
type ConnectorFeeder struct {
	mu      sync.Mutex
	state   connectorState
	session *SessionFeeder
	now     func() time.Time
}

// NewConnectorFeeder starts idle and reports plug transitions to session.
func NewConnectorFeeder(session *SessionFeeder) *ConnectorFeeder {
	return &ConnectorFeeder{
		state:   newConnectorState(),
		session: session,
		now:     time.Now,
	}
}

// Fetch returns a snapshot of the connector with the derived status.
func (f *ConnectorFeeder) Fetch(context.Context) (*model.Connector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := f.state.snapshot()
	return &snap, nil
}

// Apply applies ev and re-derives the connector status.
func (f *ConnectorFeeder) Apply(ev ConnectorEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	oldStatus := f.state.status
	ev.applyTo(&f.state)
	f.inferStatus()
	f.detectSessionTransition(oldStatus, f.state.status)
}

func (f *ConnectorFeeder) inferStatus() {
	if f.state.iec61851State == nil {
		if f.state.status == nil {
			f.state.status = ptr(model.ConnectorUnknown)
		}
		return
	}

	var status model.ConnectorStatus
	switch *f.state.iec61851State {
	case model.Iec61851StateA:
		status = model.ConnectorAvailable
	case model.Iec61851StateB:
		status = model.ConnectorPlugged
	case model.Iec61851StateC, model.Iec61851StateD:
		status = model.ConnectorPlugged
		if f.state.relayClosed != nil && *f.state.relayClosed {
			status = model.ConnectorCharging
		}
	case model.Iec61851StateE, model.Iec61851StateF:
		status = model.ConnectorFaulted
	default:
		return
	}
	f.state.status = &status
}

// A vehicle counts as plugged whenever the status is known and not
// available.
func (f *ConnectorFeeder) detectSessionTransition(oldStatus, newStatus *model.ConnectorStatus) {
	if f.session == nil {
		return
	}

	wasPlugged := oldStatus != nil && *oldStatus != model.ConnectorAvailable
	isPlugged := newStatus != nil && *newStatus != model.ConnectorAvailable

	switch {
	case !wasPlugged && isPlugged:
		f.session.apply(vehiclePlugged{When: f.now()})
	case wasPlugged && !isPlugged:
		f.session.apply(vehicleUnplugged{When: f.now()})
	}
}

func ptr[T any](v T) *T { return &v }

func clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
