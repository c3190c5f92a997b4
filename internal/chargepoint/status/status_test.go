package status

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/w3cp/w3cp/internal/chargepoint/chargeport"
	"github.com/w3cp/w3cp/internal/chargepoint/feeder"
	"github.com/w3cp/w3cp/internal/config"
	"github.com/w3cp/w3cp/model"
)

var defaultThresholds = Thresholds{EnergyDeltaKWh: 0.1, PowerThresholdW: 50}

func f64(v float64) *float64 { return &v }

func boolPtr(v bool) *bool { return &v }

func connStatus(s model.ConnectorStatus) *model.ConnectorStatus { return &s }

func snapshot(ports ...model.ChargePort) *model.ChargePointStatus {
	online := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return &model.ChargePointStatus{
		Timestamp:      time.Now(),
		OnlineSince:    &online,
		ConnectionType: model.ConnectionTypeEthernet,
		ChargePorts:    ports,
		SystemInfo:     &model.SystemInfo{},
	}
}

func port(id int, energyKWh, powerW float64) model.ChargePort {
	return model.ChargePort{
		ChargePortID: id,
		Connector: &model.Connector{
			Status:      connStatus(model.ConnectorCharging),
			RelayClosed: boolPtr(true),
			Locked:      boolPtr(true),
		},
		Metering: &model.EnergyStatus{
			EnergyImportKWh:    f64(energyKWh),
			ActivePowerImportW: f64(powerW),
		},
	}
}

func TestSignificantChange(t *testing.T) {
	base := snapshot(port(1, 10, 7000), port(2, 3, 0))

	tests := []struct {
		name   string
		mutate func(s *model.ChargePointStatus)
		want   bool
	}{
		{"identical", func(*model.ChargePointStatus) {}, false},
		{"timestamp only", func(s *model.ChargePointStatus) { s.Timestamp = s.Timestamp.Add(time.Hour) }, false},
		{"connection type", func(s *model.ChargePointStatus) { s.ConnectionType = model.ConnectionTypeLTE }, true},
		{"online since", func(s *model.ChargePointStatus) {
			later := s.OnlineSince.Add(time.Second)
			s.OnlineSince = &later
		}, true},
		{"port removed", func(s *model.ChargePointStatus) { s.ChargePorts = s.ChargePorts[:1] }, true},
		{"ports reordered", func(s *model.ChargePointStatus) {
			s.ChargePorts[0], s.ChargePorts[1] = s.ChargePorts[1], s.ChargePorts[0]
		}, false},
		{"port id changed", func(s *model.ChargePointStatus) { s.ChargePorts[1].ChargePortID = 3 }, true},
		{"connector status", func(s *model.ChargePointStatus) {
			s.ChargePorts[0].Connector.Status = connStatus(model.ConnectorPlugged)
		}, true},
		{"relay", func(s *model.ChargePointStatus) { s.ChargePorts[0].Connector.RelayClosed = boolPtr(false) }, true},
		{"lock cleared", func(s *model.ChargePointStatus) { s.ChargePorts[0].Connector.Locked = nil }, true},
		{"iec state", func(s *model.ChargePointStatus) {
			state := model.Iec61851StateC
			s.ChargePorts[0].Connector.Iec61851State = &state
		}, true},
		{"connector removed", func(s *model.ChargePointStatus) { s.ChargePorts[0].Connector = nil }, true},
		{"small energy delta", func(s *model.ChargePointStatus) { s.ChargePorts[0].Metering.EnergyImportKWh = f64(10.09) }, false},
		{"energy delta", func(s *model.ChargePointStatus) { s.ChargePorts[0].Metering.EnergyImportKWh = f64(10.25) }, true},
		{"power within charging", func(s *model.ChargePointStatus) { s.ChargePorts[0].Metering.ActivePowerImportW = f64(3000) }, false},
		{"power crosses threshold", func(s *model.ChargePointStatus) { s.ChargePorts[0].Metering.ActivePowerImportW = f64(50) }, true},
		{"power appears", func(s *model.ChargePointStatus) { s.ChargePorts[1].Metering.ActivePowerImportW = f64(51) }, true},
		{"metering removed", func(s *model.ChargePointStatus) { s.ChargePorts[1].Metering = nil }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := snapshot(port(1, 10, 7000), port(2, 3, 0))
			tt.mutate(current)
			assert.Equal(t, tt.want, SignificantChange(base, current, defaultThresholds))
		})
	}

	assert.True(t, SignificantChange(nil, base, defaultThresholds))
}

type fakeSender struct {
	mu       sync.Mutex
	verified bool
	err      error
	sent     []model.Message[model.ChargePointStatus]
}

func (s *fakeSender) Verified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verified
}

func (s *fakeSender) Send(_ context.Context, msg any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg.(model.Message[model.ChargePointStatus]))
	return nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type scriptedAssembler struct {
	status *model.ChargePointStatus
	err    error
}

func (a *scriptedAssembler) Assemble(context.Context) (model.ChargePointStatus, error) {
	if a.err != nil {
		return model.ChargePointStatus{}, a.err
	}
	return *a.status, nil
}

func newTestReporter(t *testing.T, sender Sender, assembler Assembler, signer *model.Signer) (*Reporter, *time.Time) {
	t.Helper()
	cfg := config.StatusConfig{
		EvaluationInterval: time.Second,
		MaxInterval:        300 * time.Second,
		EnergyDeltaKWh:     0.1,
		PowerThresholdW:    50,
	}
	log := zerolog.Nop()
	r := NewReporter(cfg, assembler, sender, signer, &log)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	return r, &now
}

func TestReporterSkipsUntilVerified(t *testing.T) {
	sender := &fakeSender{}
	assembler := &scriptedAssembler{err: errors.New("must not be called")}
	r, _ := newTestReporter(t, sender, assembler, nil)

	require.NoError(t, r.Evaluate(context.Background()))
	assert.Zero(t, sender.count())
}

func TestReporterSendsOnChangeAndTimeout(t *testing.T) {
	sender := &fakeSender{verified: true}
	assembler := &scriptedAssembler{status: snapshot(port(1, 10, 0))}
	r, now := newTestReporter(t, sender, assembler, nil)
	ctx := context.Background()

	require.NoError(t, r.Evaluate(ctx))
	assert.Equal(t, 1, sender.count(), "first snapshot is always sent")

	*now = now.Add(time.Second)
	require.NoError(t, r.Evaluate(ctx))
	assert.Equal(t, 1, sender.count(), "unchanged snapshot is suppressed")

	assembler.status = snapshot(port(1, 10, 7000))
	*now = now.Add(time.Second)
	require.NoError(t, r.Evaluate(ctx))
	assert.Equal(t, 2, sender.count(), "charging started")

	*now = now.Add(300 * time.Second)
	require.NoError(t, r.Evaluate(ctx))
	assert.Equal(t, 2, sender.count(), "exactly the max interval is not yet a timeout")

	*now = now.Add(time.Second)
	require.NoError(t, r.Evaluate(ctx))
	assert.Equal(t, 3, sender.count(), "max interval exceeded")

	msg := sender.sent[2]
	assert.Equal(t, model.MessageTypeChargePointStatus, msg.Type)
	assert.Nil(t, msg.PayloadSignature)
}

func TestReporterRetriesAfterSendFailure(t *testing.T) {
	sender := &fakeSender{verified: true, err: errors.New("broken pipe")}
	assembler := &scriptedAssembler{status: snapshot(port(1, 10, 0))}
	r, now := newTestReporter(t, sender, assembler, nil)

	err := r.Evaluate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")

	sender.err = nil
	*now = now.Add(time.Second)
	require.NoError(t, r.Evaluate(context.Background()))
	assert.Equal(t, 1, sender.count(), "nothing was ever sent so the timeout still applies")
}

func TestReporterSignsStatus(t *testing.T) {
	key, err := model.GenerateKey(model.KeyTypeEd25519)
	require.NoError(t, err)
	signer, err := model.NewSigner(key)
	require.NoError(t, err)

	sender := &fakeSender{verified: true}
	assembler := &scriptedAssembler{status: snapshot(port(1, 10, 0))}
	r, _ := newTestReporter(t, sender, assembler, signer)

	require.NoError(t, r.Evaluate(context.Background()))
	require.Equal(t, 1, sender.count())

	msg := sender.sent[0]
	require.NotNil(t, msg.PayloadSignature)
	require.NotNil(t, msg.PayloadSha256Hash)
	assert.NoError(t, model.VerifyMessage(msg, signer.Verifier()))
}

func TestOrchestratorAssemble(t *testing.T) {
	p1, p2 := chargeport.NewPort(1), chargeport.NewPort(2)
	p2.Connector.Apply(chargeport.ControlPilotSample{CPVoltage: 9})
	online := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	o := NewOrchestrator(
		feeder.Static(&model.SystemInfo{}),
		feeder.Static(model.ConnectionTypeWiFi),
		feeder.Static(&online),
		[]feeder.Feeder[model.ChargePort]{p1, p2},
	)

	status, err := o.Assemble(context.Background())
	require.NoError(t, err)
	require.Len(t, status.ChargePorts, 2)
	assert.Equal(t, 1, status.ChargePorts[0].ChargePortID)
	assert.Equal(t, model.ConnectorPlugged, status.ChargePort(2).Connector.EffectiveStatus())
	assert.Equal(t, model.ConnectionTypeWiFi, status.ConnectionType)
	assert.Equal(t, online, *status.OnlineSince)
	assert.False(t, status.Timestamp.IsZero())
	assert.NoError(t, status.Validate())
}

func TestOrchestratorAssembleError(t *testing.T) {
	o := NewOrchestrator(
		feeder.Func[*model.SystemInfo](func(context.Context) (*model.SystemInfo, error) {
			return nil, errors.New("procfs unavailable")
		}),
		feeder.Static(model.ConnectionTypeUnknown),
		feeder.Static[*time.Time](nil),
		nil,
	)

	_, err := o.Assemble(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "system info")
}
