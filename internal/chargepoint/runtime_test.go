package chargepoint

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/w3cp/w3cp/internal/chargepoint/chargeport"
	"github.com/w3cp/w3cp/internal/config"
	"github.com/w3cp/w3cp/model"
)

func testConfig() *config.Config {
	return &config.Config{
		ChargePoint: config.ChargePointConfig{
			CPID:            "CP-RT-1",
			IdentityType:    "publicKey",
			ChargePortIDs:   []int{3, 4},
			KeyType:         "ed25519",
			FirmwareVersion: "0.1",
		},
		Backend: config.BackendConfig{
			HandshakeTimeout: time.Second,
			WriteTimeout:     time.Second,
			ReconnectInitial: 10 * time.Millisecond,
			ReconnectMax:     50 * time.Millisecond,
		},
		Status: config.StatusConfig{
			EvaluationInterval: time.Second,
			MaxInterval:        300 * time.Second,
			EnergyDeltaKWh:     0.1,
			PowerThresholdW:    50,
		},
		Simulator: config.SimulatorConfig{Enabled: true, TickInterval: time.Second},
	}
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestRuntimeOffline(t *testing.T) {
	ctx := context.Background()
	rt, err := NewRuntime(ctx, testConfig(), nopLogger())
	require.NoError(t, err)

	assert.Nil(t, rt.Connection())
	assert.Equal(t, 3, rt.DefaultPortID())
	require.Len(t, rt.Ports(), 2)

	port, err := rt.Port(4)
	require.NoError(t, err)
	assert.Equal(t, 4, port.ID)

	_, err = rt.Port(9)
	assert.ErrorIs(t, err, ErrUnknownPort)

	sim, err := rt.Simulator(4)
	require.NoError(t, err)
	sim.Plug()

	st, err := rt.Status(ctx)
	require.NoError(t, err)
	require.Len(t, st.ChargePorts, 2)
	assert.Equal(t, 3, st.ChargePorts[0].ChargePortID)
	assert.Equal(t, model.ConnectorAvailable, st.ChargePort(3).Connector.EffectiveStatus())
	assert.Equal(t, model.ConnectorPlugged, st.ChargePort(4).Connector.EffectiveStatus())
	assert.Equal(t, "0.1", *st.SystemInfo.FirmwareVersion)

	require.NoError(t, rt.Start(ctx))
	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, rt.Stop(stopCtx))
}

func TestRuntimeSimulatorDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Simulator.Enabled = false

	rt, err := NewRuntime(context.Background(), cfg, nopLogger())
	require.NoError(t, err)

	_, err = rt.Simulator(3)
	assert.ErrorIs(t, err, ErrSimulatorDisabled)
}

func TestRuntimeStopWaitsForSessionListeners(t *testing.T) {
	rt, err := NewRuntime(context.Background(), testConfig(), nopLogger())
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	rt.OnSessionEnded(func(portID int, s model.ChargeSession) {
		assert.Equal(t, 3, portID)
		close(started)
		<-release
		finished.Store(true)
	})

	port, err := rt.Port(3)
	require.NoError(t, err)
	port.Connector.Apply(chargeport.ControlPilotSample{CPVoltage: 9})
	port.Connector.Apply(chargeport.ControlPilotSample{CPVoltage: 12})

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("session listener not invoked")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, rt.Stop(ctx), context.DeadlineExceeded)
	assert.False(t, finished.Load())

	close(release)
	require.NoError(t, rt.Stop(context.Background()))
	assert.True(t, finished.Load())
}

func TestLoadSignerFromConfig(t *testing.T) {
	key, err := model.GenerateKey(model.KeyTypeEcP256)
	require.NoError(t, err)
	encoded, err := model.EncodePrivateKey(key)
	require.NoError(t, err)

	cfg := testConfig().ChargePoint
	cfg.KeyType = "ecP256"
	cfg.PrivateKey = encoded.Value

	signer, err := LoadSigner(cfg, nopLogger())
	require.NoError(t, err)
	assert.Equal(t, model.KeyTypeEcP256, signer.KeyType())

	want, err := model.EncodePublicKey(key.Public())
	require.NoError(t, err)
	got, err := signer.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	cfg.PrivateKey = "not-a-key"
	_, err = LoadSigner(cfg, nopLogger())
	assert.Error(t, err)
}

func TestRuntimeReportsStatusAfterVerification(t *testing.T) {
	statuses := make(chan model.Message[model.ChargePointStatus], 4)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.WriteJSON(model.NewMessage(model.MessageTypeConnectionStatus,
			model.ConnectionStatus{Status: model.ConnectionVerified}))

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			env, err := model.ParseEnvelope(data)
			if err != nil || env.Type != model.MessageTypeChargePointStatus {
				continue
			}
			msg, err := model.DecodeMessage[model.ChargePointStatus](env)
			if err == nil {
				statuses <- msg
			}
		}
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Backend.URL = "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx := context.Background()
	rt, err := NewRuntime(ctx, cfg, nopLogger())
	require.NoError(t, err)
	require.NoError(t, rt.Start(ctx))
	defer func() {
		stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		assert.NoError(t, rt.Stop(stopCtx))
	}()

	select {
	case msg := <-statuses:
		assert.Equal(t, model.MessageTypeChargePointStatus, msg.Type)
		require.Len(t, msg.Payload.ChargePorts, 2)
		require.NotNil(t, msg.PayloadSignature)

		pub, err := rt.PublicKey()
		require.NoError(t, err)
		verifier, err := model.NewVerifier(pub)
		require.NoError(t, err)
		assert.NoError(t, model.VerifyMessage(msg, verifier))
	case <-time.After(5 * time.Second):
		t.Fatal("no status report received")
	}
}
