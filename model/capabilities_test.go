package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalTimeJSON(t *testing.T) {
	var lt LocalTime
	require.NoError(t, json.Unmarshal([]byte(`"17:30:05"`), &lt))
	assert.Equal(t, NewLocalTime(17, 30, 5), lt)

	out, err := json.Marshal(NewLocalTime(7, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, `"07:00:00"`, string(out))

	require.Error(t, json.Unmarshal([]byte(`"25:00:00"`), &lt))
	require.Error(t, json.Unmarshal([]byte(`1700`), &lt))
}

func TestDayOfWeek(t *testing.T) {
	assert.Equal(t, Monday, DayOf(time.Monday))
	assert.True(t, Sunday.Matches(time.Sunday))
	assert.False(t, Sunday.Matches(time.Saturday))
}

func TestSmartChargingActiveWindow(t *testing.T) {
	raw := `{
		"supported": true,
		"windows": [
			{"day": "FRIDAY", "start": "17:00:00", "end": "20:00:00", "energyInput": "matchSolarOutput"},
			{"start": "06:00:00", "end": "22:00:00", "randomizedDelaySeconds": 600},
			{}
		]
	}`
	var sc SmartCharging
	require.NoError(t, json.Unmarshal([]byte(raw), &sc))
	require.Len(t, sc.Windows, 3)

	// 2025-01-31 is a Friday.
	friday := func(h, m int) time.Time { return time.Date(2025, 1, 31, h, m, 0, 0, time.UTC) }

	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{"first window start inclusive", friday(17, 0), 0},
		{"first window end exclusive", friday(20, 0), 1},
		{"other day falls through", friday(18, 0).AddDate(0, 0, 1), 1},
		{"whole day catch-all", friday(23, 0), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := sc.ActiveWindow(tt.at)
			require.NotNil(t, w)
			assert.Same(t, &sc.Windows[tt.want], w)
		})
	}

	assert.Equal(t, EnergyMatchSolarOutput, sc.Windows[0].EffectiveEnergyInput())
	assert.Equal(t, EnergySolarAndGrid, sc.Windows[1].EffectiveEnergyInput())
}

func TestSmartChargingNoMatch(t *testing.T) {
	sc := &SmartCharging{Windows: []SmartChargingWindow{
		{Start: ptr(NewLocalTime(8, 0, 0)), End: ptr(NewLocalTime(9, 0, 0))},
	}}
	assert.Nil(t, sc.ActiveWindow(time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC)))

	var none *SmartCharging
	assert.Nil(t, none.ActiveWindow(time.Now()))
}

func TestSmartChargingWindowWrapsMidnight(t *testing.T) {
	w := SmartChargingWindow{Start: ptr(NewLocalTime(22, 0, 0)), End: ptr(NewLocalTime(6, 0, 0))}
	assert.True(t, w.Contains(time.Date(2025, 1, 31, 23, 0, 0, 0, time.UTC)))
	assert.True(t, w.Contains(time.Date(2025, 1, 31, 5, 59, 59, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)))
}

func TestSmartCapabilitiesValidate(t *testing.T) {
	c := SmartCapabilities{
		PowerLimiting: &PowerLimiting{Supported: true, PhasesAvailable: 3},
		SmartCharging: &SmartCharging{Windows: []SmartChargingWindow{{MaxSolarUsagePercent: ptr(50)}}},
	}
	require.NoError(t, c.Validate())

	c.PowerLimiting.PhasesAvailable = 4
	require.Error(t, c.Validate())

	c.PowerLimiting.PhasesAvailable = 1
	c.SmartCharging.Windows[0].MaxSolarUsagePercent = ptr(120)
	require.Error(t, c.Validate())

	c.SmartCharging.Windows[0].MaxSolarUsagePercent = nil
	mode := EmaidMode("acceptAll")
	c.OfflineTransactions = &OfflineTransactions{EmaidMode: &mode}
	require.Error(t, c.Validate())
}

func TestDiagnosticSessionClampExpiry(t *testing.T) {
	start := time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)
	d := DiagnosticSession{
		DiagnosticID: "diag-1",
		StartedAt:    start,
		ExpiresAt:    start.Add(3 * time.Hour),
		StartedBy:    StartedByBackend,
	}
	got := d.ClampExpiry(DefaultDiagnosticTTL)
	assert.Equal(t, start.Add(time.Hour), got)
	assert.Equal(t, start.Add(time.Hour), d.ExpiresAt)

	d.ExpiresAt = start.Add(10 * time.Minute)
	assert.Equal(t, start.Add(10*time.Minute), d.ClampExpiry(DefaultDiagnosticTTL))
	require.NoError(t, d.Validate())

	assert.False(t, d.Expired(start.Add(5*time.Minute)))
	assert.True(t, d.Expired(start.Add(10*time.Minute)))
}

func TestDiagnosticSessionAppliesTo(t *testing.T) {
	d := DiagnosticSession{}
	assert.True(t, d.AppliesTo(3))
	d.ChargePortIDs = []int{1, 2}
	assert.True(t, d.AppliesTo(2))
	assert.False(t, d.AppliesTo(3))
}

func TestDiagnosticFeederModes(t *testing.T) {
	start := time.Now()
	d := DiagnosticSession{
		DiagnosticID: "diag-1",
		StartedAt:    start,
		ExpiresAt:    start.Add(time.Minute),
		StartedBy:    StartedByBackend,
		Feeders:      &DiagnosticFeeders{Meter: &MeterFeeder{Mode: "FAKE"}},
	}
	require.Error(t, d.Validate())
	d.Feeders.Meter.Mode = FeederSimulated
	require.NoError(t, d.Validate())
}

func TestIso15118Trigger(t *testing.T) {
	require.Error(t, Iso15118Trigger{Timestamp: time.Now()}.Validate())
	require.NoError(t, Iso15118Trigger{Timestamp: time.Now(), CsrTemplatePem: "-----BEGIN"}.Validate())
}
