package simulator

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/w3cp/w3cp/internal/chargepoint/chargeport"
	"github.com/w3cp/w3cp/model"
)

func newTestSimulator(t *testing.T) (*Simulator, *chargeport.Port) {
	t.Helper()
	port := chargeport.NewPort(1)
	log := zerolog.Nop()
	sim := New(port, &log)
	// Zero noise: random() == 0.5 maps to a factor of exactly 1.
	sim.random = func() float64 { return 0.5 }
	return sim, port
}

func connector(t *testing.T, port *chargeport.Port) *model.Connector {
	t.Helper()
	c, err := port.Connector.Fetch(context.Background())
	require.NoError(t, err)
	return c
}

func metering(t *testing.T, port *chargeport.Port) *model.EnergyStatus {
	t.Helper()
	m, err := port.Metering.Fetch(context.Background())
	require.NoError(t, err)
	return m
}

func TestInitialState(t *testing.T) {
	sim, port := newTestSimulator(t)

	st := sim.State()
	assert.Equal(t, 1, st.ChargePortID)
	assert.False(t, st.Plugged)
	assert.Equal(t, cpIdle, st.CPVoltage)
	assert.Equal(t, 32.0, st.EvMaxCurrentA)
	assert.Equal(t, 50.0, st.EvSocPercent)
	assert.Equal(t, 1, st.EvPhases)

	c := connector(t, port)
	assert.Equal(t, model.ConnectorAvailable, c.EffectiveStatus())
	assert.False(t, *c.RelayClosed)
}

func TestPlugAndUnplug(t *testing.T) {
	sim, port := newTestSimulator(t)

	sim.Plug()
	assert.Equal(t, model.ConnectorPlugged, connector(t, port).EffectiveStatus())
	assert.Equal(t, cpDetected, sim.State().CPVoltage)

	capacity := 40000.0
	port.EvInfo.Set(&model.EvInfo{Energy: &model.EvEnergy{CapacityWh: &capacity}})

	sim.Unplug()
	assert.Equal(t, model.ConnectorAvailable, connector(t, port).EffectiveStatus())
	info, err := port.EvInfo.Fetch(context.Background())
	require.NoError(t, err)
	assert.Nil(t, info, "unplug forgets the vehicle")
}

func TestStartCharging(t *testing.T) {
	sim, port := newTestSimulator(t)

	require.NoError(t, sim.StartCharging(nil))
	st := sim.State()
	assert.True(t, st.Plugged)
	assert.True(t, st.Charging)
	assert.True(t, st.RelayState)
	assert.True(t, st.LockState)
	assert.Equal(t, cpReady, st.CPVoltage)
	assert.Equal(t, 100.0, st.PwmDutyCycle)

	c := connector(t, port)
	assert.Equal(t, model.ConnectorCharging, c.EffectiveStatus())
	assert.True(t, *c.Locked)

	assert.ErrorIs(t, sim.StartCharging(nil), ErrAlreadyCharging)
}

func TestStartChargingSeedsBattery(t *testing.T) {
	sim, port := newTestSimulator(t)

	capacity, energy, target := 80000.0, 20000.0, 90
	ev := &model.EvInfo{Energy: &model.EvEnergy{CapacityWh: &capacity, EnergyWh: &energy, SocTarget: &target}}
	require.NoError(t, sim.StartCharging(ev))

	st := sim.State()
	assert.Equal(t, 80000.0, st.EvCapacityWh)
	assert.Equal(t, 20000.0, st.EvEnergyWh)
	assert.Equal(t, 25.0, st.EvSocPercent)
	assert.Equal(t, 90.0, st.EvTargetSocPercent)

	info, err := port.EvInfo.Fetch(context.Background())
	require.NoError(t, err)
	require.NotNil(t, info.Energy.Soc)
	assert.Equal(t, 25, *info.Energy.Soc)
}

func TestStopChargingKeepsVehiclePlugged(t *testing.T) {
	sim, port := newTestSimulator(t)
	require.NoError(t, sim.StartCharging(nil))

	sim.StopCharging()
	st := sim.State()
	assert.False(t, st.Charging)
	assert.False(t, st.RelayState)
	assert.False(t, st.LockState)
	assert.Equal(t, cpDetected, st.CPVoltage)
	assert.Equal(t, model.ConnectorPlugged, connector(t, port).EffectiveStatus())
}

func TestFaultAndClear(t *testing.T) {
	sim, port := newTestSimulator(t)
	require.NoError(t, sim.StartCharging(nil))

	sim.Fault()
	st := sim.State()
	assert.True(t, st.Faulted)
	assert.False(t, st.RelayState)
	assert.False(t, st.LockState)
	assert.Equal(t, model.ConnectorFaulted, connector(t, port).EffectiveStatus())

	// The relay cannot close while faulted.
	sim.CloseRelay()
	assert.False(t, sim.State().RelayState)

	sim.ClearFault()
	st = sim.State()
	assert.False(t, st.Faulted)
	assert.Equal(t, cpDetected, st.CPVoltage)
	assert.Equal(t, model.ConnectorPlugged, connector(t, port).EffectiveStatus())
}

func TestSetControlPilot(t *testing.T) {
	tests := []struct {
		name         string
		voltage, pwm float64
		wantVoltage  float64
		wantPwm      float64
		wantPlugged  bool
		wantCharging bool
	}{
		{"idle", 12, 0, 12, 0, false, false},
		{"clamped high", 40, 150, 15, 100, false, false},
		{"vehicle detected", 9, 0, 9, 0, true, false},
		{"ready without pwm", 6, 5, 12, 5, false, false},
		{"ready with pwm falls back without relay", 6, 50, 9, 50, true, true},
		{"clamped low", -40, -5, -15, 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, _ := newTestSimulator(t)
			sim.SetControlPilot(tt.voltage, tt.pwm)

			st := sim.State()
			assert.Equal(t, tt.wantVoltage, st.CPVoltage)
			assert.Equal(t, tt.wantPwm, st.PwmDutyCycle)
			assert.Equal(t, tt.wantPlugged, st.Plugged)
			assert.Equal(t, tt.wantCharging, st.Charging)
		})
	}
}

func TestLockRequiresChargingVehicle(t *testing.T) {
	sim, _ := newTestSimulator(t)

	sim.Lock()
	assert.False(t, sim.State().LockState)

	require.NoError(t, sim.StartCharging(nil))
	sim.Unlock()
	assert.False(t, sim.State().LockState)
	sim.Lock()
	assert.True(t, sim.State().LockState)
}

func TestRelayControl(t *testing.T) {
	sim, port := newTestSimulator(t)
	require.NoError(t, sim.StartCharging(nil))

	sim.OpenRelay()
	assert.False(t, sim.State().RelayState)
	assert.False(t, *connector(t, port).RelayClosed)

	sim.CloseRelay()
	assert.True(t, sim.State().RelayState)
}

func TestConfigureEV(t *testing.T) {
	sim, port := newTestSimulator(t)
	capacity := 50000.0
	port.EvInfo.Set(&model.EvInfo{Energy: &model.EvEnergy{CapacityWh: &capacity}})

	amps, soc, phases := 120.0, 70.0, 5
	sim.ConfigureEV(EVConfig{MaxCurrentA: &amps, SocPercent: &soc, Phases: &phases})

	st := sim.State()
	assert.Equal(t, maxEvCurrentA, st.EvMaxCurrentA)
	assert.Equal(t, 70.0, st.EvSocPercent)
	assert.Equal(t, 35000.0, st.EvEnergyWh)
	assert.Equal(t, 3, st.EvPhases)

	info, _ := port.EvInfo.Fetch(context.Background())
	assert.Equal(t, 70, *info.Energy.Soc)
}

func TestTickIdle(t *testing.T) {
	sim, port := newTestSimulator(t)
	sim.Tick()

	m := metering(t, port)
	assert.Equal(t, 0.0, *m.ActivePowerImportW)
	assert.Equal(t, 0.0, *m.Voltage)
	assert.Equal(t, 0.0, *m.EnergyImportKWh)
	assert.Equal(t, []float64{0}, m.CurrentPerPhase)
}

func TestTickCharging(t *testing.T) {
	sim, port := newTestSimulator(t)
	phases := 3
	sim.ConfigureEV(EVConfig{Phases: &phases})
	require.NoError(t, sim.StartCharging(nil))

	// 100 % PWM offers 54 A, the vehicle takes 32 A on three phases.
	maxPower := lineVoltage * 32 * 3

	sim.Tick()
	m := metering(t, port)
	assert.InDelta(t, maxPower*smoothingAlpha, *m.ActivePowerImportW, 1e-6)
	assert.Equal(t, lineVoltage, *m.Voltage)
	require.Len(t, m.CurrentPerPhase, 3)
	assert.InDelta(t, 32*smoothingAlpha, m.CurrentPerPhase[0], 1e-6)

	for range 50 {
		sim.Tick()
	}
	m = metering(t, port)
	assert.InDelta(t, maxPower, *m.ActivePowerImportW, 1.0, "low-pass filter converges")
	assert.Greater(t, *m.EnergyImportKWh, 0.0)

	st := sim.State()
	assert.InDelta(t, st.TotalEnergyWh/1000, *m.EnergyImportKWh, 1e-9)
	assert.Greater(t, st.EvSocPercent, 50.0)

	session, err := port.Session.Fetch(context.Background())
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, model.SessionActive, session.SessionState)
	assert.Greater(t, *session.EnergyToVehicleKWh, 0.0)
}

func TestTickLowCurrentDoesNotCharge(t *testing.T) {
	sim, port := newTestSimulator(t)
	require.NoError(t, sim.StartCharging(nil))
	sim.SetPwmDutyCycle(15) // 3 A offered

	sim.Tick()
	assert.Equal(t, 0.0, *metering(t, port).ActivePowerImportW)
}

func TestTickStopsAtTargetSoc(t *testing.T) {
	sim, _ := newTestSimulator(t)
	capacity, energy, target := 1000.0, 790.0, 80
	ev := &model.EvInfo{Energy: &model.EvEnergy{CapacityWh: &capacity, EnergyWh: &energy, SocTarget: &target}}
	require.NoError(t, sim.StartCharging(ev))

	for range 20 {
		sim.Tick()
	}

	st := sim.State()
	assert.False(t, st.Charging)
	assert.False(t, st.RelayState)
	assert.Equal(t, 80.0, st.EvSocPercent)
	assert.True(t, st.Plugged)
}

func TestChargingPowerTapers(t *testing.T) {
	sim, _ := newTestSimulator(t)
	require.NoError(t, sim.StartCharging(nil))
	full := lineVoltage * 32

	sim.mu.Lock()
	sim.state.EvSocPercent = 90
	tapered := sim.chargingPower()
	sim.state.EvSocPercent = 79
	untapered := sim.chargingPower()
	sim.mu.Unlock()

	assert.InDelta(t, full*0.65, tapered, 1e-6)
	assert.InDelta(t, full, untapered, 1e-6)
}

func TestResetEnergy(t *testing.T) {
	sim, port := newTestSimulator(t)
	require.NoError(t, sim.StartCharging(nil))
	for range 5 {
		sim.Tick()
	}
	require.Greater(t, *metering(t, port).EnergyImportKWh, 0.0)

	sim.ResetEnergy()
	assert.Equal(t, 0.0, sim.State().TotalEnergyWh)
	assert.Equal(t, 0.0, *metering(t, port).EnergyImportKWh)
}

func TestPwmToCurrent(t *testing.T) {
	assert.Equal(t, 0.0, pwmToCurrent(9.9))
	assert.InDelta(t, 6.0, pwmToCurrent(20), 1e-9)
	assert.InDelta(t, 54.0, pwmToCurrent(100), 1e-9)
}
