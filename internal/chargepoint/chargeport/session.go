package chargeport

import (
	"context"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/w3cp/w3cp/model"
)

// ChargingThresholdW is the power above which energy counts as flowing.
const ChargingThresholdW = 50.0

type sessionState struct {
	sessionID           *uuid.UUID
	createdAt           time.Time
	energyFlowStartedAt *time.Time
	lastUpdateAt        *time.Time
	endedAt             *time.Time
	state               model.SessionState
	endReason           *model.EndReason

	startImportKWh   *float64
	startExportKWh   *float64
	currentImportKWh *float64
	currentExportKWh *float64
}

func (s *sessionState) active() bool {
	return s.sessionID != nil && s.endedAt == nil
}

func (s *sessionState) snapshot() *model.ChargeSession {
	if s.sessionID == nil {
		return nil
	}
	return &model.ChargeSession{
		SessionID:            *s.sessionID,
		CreatedAt:            s.createdAt,
		EnergyFlowStartedAt:  clone(s.energyFlowStartedAt),
		LastUpdateAt:         clone(s.lastUpdateAt),
		EndedAt:              clone(s.endedAt),
		SessionState:         s.state,
		EndReason:            clone(s.endReason),
		EnergyToVehicleKWh:   delta(s.currentImportKWh, s.startImportKWh),
		EnergyFromVehicleKWh: delta(s.currentExportKWh, s.startExportKWh),
	}
}

func delta(current, start *float64) *float64 {
	if current == nil || start == nil {
		return nil
	}
	return ptr(math.Max(0, *current-*start))
}

// SessionFeeder tracks the physical charging session of a port. A session
// starts on plug-in, becomes active once power flows and completes on
// unplug.
type SessionFeeder struct {
	mu      sync.Mutex
	state   sessionState
	onEnded []func(model.ChargeSession)
	newID   func() uuid.UUID
}

// NewSessionFeeder has no session until the first plug-in.
func NewSessionFeeder() *SessionFeeder {
	return &SessionFeeder{newID: uuid.New}
}

// Fetch returns nil until the first plug-in.
func (f *SessionFeeder) Fetch(context.Context) (*model.ChargeSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.state.snapshot(), nil
}

// OnEnded registers fn to receive every completed session.
func (f *SessionFeeder) OnEnded(fn func(model.ChargeSession)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.onEnded = append(f.onEnded, fn)
}

func (f *SessionFeeder) apply(ev sessionEvent) {
	f.mu.Lock()

	var ended *model.ChargeSession
	switch e := ev.(type) {
	case vehiclePlugged:
		f.plugged(e.When)
	case vehicleUnplugged:
		if f.state.active() {
			f.unplugged(e.When)
			ended = f.state.snapshot()
		}
	case powerSample:
		if f.state.active() {
			f.sample(e)
		}
	}

	listeners := slices.Clone(f.onEnded)
	f.mu.Unlock()

	if ended == nil {
		return
	}
	for _, fn := range listeners {
		fn(*ended)
	}
}

func (f *SessionFeeder) plugged(at time.Time) {
	id := f.newID()
	f.state = sessionState{
		sessionID:    &id,
		createdAt:    at,
		lastUpdateAt: &at,
		state:        model.SessionPending,
	}
}

func (f *SessionFeeder) unplugged(at time.Time) {
	f.state.endedAt = &at
	f.state.lastUpdateAt = &at
	f.state.state = model.SessionCompleted
	f.state.endReason = ptr(model.EndReasonVehicleUnplugged)
}

func (f *SessionFeeder) sample(e powerSample) {
	s := &f.state
	s.lastUpdateAt = &e.When
	s.currentImportKWh = &e.MeterImportKWh
	s.currentExportKWh = &e.MeterExportKWh

	if math.Abs(e.ImportW) > ChargingThresholdW || math.Abs(e.ExportW) > ChargingThresholdW {
		if s.energyFlowStartedAt == nil {
			s.energyFlowStartedAt = &e.When
			s.startImportKWh = ptr(e.MeterImportKWh)
			s.startExportKWh = ptr(e.MeterExportKWh)
		}
		s.state = model.SessionActive
		return
	}
	if s.state == model.SessionActive {
		s.state = model.SessionPaused
	}
}
