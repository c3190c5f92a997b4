package chargeport

import (
	"context"
	"sync"
	"time"

	"github.com/w3cp/w3cp/model"
)

type meteringState struct {
	energyImportKWh           *float64
	energyExportKWh           *float64
	reactiveEnergyImportKvarh *float64
	reactiveEnergyExportKvarh *float64
	voltage                   *float64
	currentPerPhase           []float64
	activePowerImportW        *float64
	activePowerExportW        *float64
}

func (s *meteringState) snapshot() model.EnergyStatus {
	return model.EnergyStatus{
		EnergyImportKWh:           clone(s.energyImportKWh),
		EnergyExportKWh:           clone(s.energyExportKWh),
		ReactiveEnergyImportKvarh: clone(s.reactiveEnergyImportKvarh),
		ReactiveEnergyExportKvarh: clone(s.reactiveEnergyExportKvarh),
		Voltage:                   clone(s.voltage),
		CurrentPerPhase:           append([]float64(nil), s.currentPerPhase...),
		ActivePowerImportW:        clone(s.activePowerImportW),
		ActivePowerExportW:        clone(s.activePowerExportW),
	}
}

// MeteringFeeder keeps the latest meter readings of a port and feeds power
// samples to the session feeder.
type MeteringFeeder struct {
	mu      sync.Mutex
	state   meteringState
	session *SessionFeeder
	now     func() time.Time
}

// NewMeteringFeeder forwards power samples to session.
func NewMeteringFeeder(session *SessionFeeder) *MeteringFeeder {
	return &MeteringFeeder{session: session, now: time.Now}
}

// Fetch returns the latest readings. Unknown values stay nil.
func (f *MeteringFeeder) Fetch(context.Context) (*model.EnergyStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := f.state.snapshot()
	return &snap, nil
}

// Apply applies ev and, once both power values and both meters are known,
// emits a power sample.
func (f *MeteringFeeder) Apply(ev MeteringEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ev.applyTo(&f.state)

	s := f.state
	if f.session == nil || s.activePowerImportW == nil || s.activePowerExportW == nil ||
		s.energyImportKWh == nil || s.energyExportKWh == nil {
		return
	}

	f.session.apply(powerSample{
		When:           f.now(),
		ImportW:        *s.activePowerImportW,
		ExportW:        *s.activePowerExportW,
		MeterImportKWh: *s.energyImportKWh,
		MeterExportKWh: *s.energyExportKWh,
	})
}
