package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func sampleStatus() ChargePointStatus {
	status := ConnectorCharging
	state := Iec61851StateC
	return ChargePointStatus{
		Timestamp:      time.Date(2025, 1, 31, 17, 0, 0, 0, time.UTC),
		ConnectionType: ConnectionTypeEthernet,
		ChargePorts: []ChargePort{
			{
				ChargePortID: 1,
				Connector: &Connector{
					Status:        &status,
					Iec61851State: &state,
					RelayClosed:   ptr(true),
				},
				Metering: &EnergyStatus{
					EnergyImportKWh:    ptr(12.5),
					ActivePowerImportW: ptr(7200.0),
				},
			},
		},
		SystemInfo: &SystemInfo{FirmwareVersion: ptr("1.0.0")},
	}
}

func TestMessageTypesKnown(t *testing.T) {
	types := MessageTypes()
	require.Len(t, types, 11)
	for _, mt := range types {
		assert.True(t, mt.Known(), mt)
	}
	assert.False(t, MessageType("bogus").Known())
}

func TestMessageValidate(t *testing.T) {
	t.Run("valid status message", func(t *testing.T) {
		msg := NewMessage(MessageTypeChargePointStatus, sampleStatus())
		require.NoError(t, msg.Validate())
	})

	t.Run("unknown type", func(t *testing.T) {
		msg := NewMessage(MessageType("bogus"), sampleStatus())
		require.ErrorIs(t, msg.Validate(), ErrUnknownMessageType)
	})

	t.Run("payload validation is applied", func(t *testing.T) {
		st := sampleStatus()
		st.ChargePorts[0].ChargePortID = 0
		msg := NewMessage(MessageTypeChargePointStatus, st)
		require.Error(t, msg.Validate())
	})
}

func TestEnvelopeRoundTrip(t *testing.T) {
	challenge := IdentityChallenge{
		Nonce:      "abc",
		Timestamp:  time.Date(2025, 1, 31, 17, 0, 0, 0, time.UTC),
		Difficulty: 4,
	}
	data, err := json.Marshal(NewMessage(MessageTypeIdentityChallenge, challenge))
	require.NoError(t, err)

	env, err := ParseEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, MessageTypeIdentityChallenge, env.Type)

	decoded, err := DecodePayload[IdentityChallenge](env)
	require.NoError(t, err)
	assert.Equal(t, challenge, decoded)
}

func TestParseEnvelopeRejectsIncomplete(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"missing type", `{"payload":{}}`},
		{"missing payload", `{"type":"identityChallenge"}`},
		{"null payload", `{"type":"identityChallenge","payload":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEnvelope([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestNullableFieldsOmitted(t *testing.T) {
	data, err := json.Marshal(ChargePort{ChargePortID: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"chargePortId":2}`, string(data))
}

func TestIdentityProofValidate(t *testing.T) {
	base := IdentityProof{
		CPID:         "cp-1",
		Timestamp:    time.Now(),
		Nonce:        "n",
		IdentityType: IdentityPublicKey,
	}
	require.NoError(t, base.Validate())

	web3 := base
	web3.IdentityType = IdentityWeb3
	require.Error(t, web3.Validate(), "web3 proof without identity")

	web3.Web3Identity = &Web3Identity{Method: Web3MethodKILT, DID: "did:kilt:4abc"}
	require.NoError(t, web3.Validate())

	bad := base
	bad.IdentityType = "password"
	require.Error(t, bad.Validate())
}

func TestIdentityChallengeDifficultyRange(t *testing.T) {
	c := IdentityChallenge{Nonce: "n", Timestamp: time.Now(), Difficulty: -1}
	require.Error(t, c.Validate())
	c.Difficulty = 0
	require.NoError(t, c.Validate())
	c.Difficulty = 257
	require.Error(t, c.Validate())
}

func TestIdentityReportValidate(t *testing.T) {
	r := IdentityReport{
		CorrelationID: uuid.New(),
		Timestamp:     time.Now(),
		PublicKeys:    []PublicKey{{Type: KeyTypeEd25519, Encoding: KeyEncodingBase64URL, Value: "AAEC"}},
	}
	require.NoError(t, r.Validate())

	r.PublicKeys[0].Type = "rsa"
	require.Error(t, r.Validate())

	r.PublicKeys[0].Type = KeyTypeEd25519
	r.CorrelationID = uuid.Nil
	require.Error(t, r.Validate())
}

func TestConnectionStatus(t *testing.T) {
	assert.True(t, ConnectionStatus{Status: ConnectionVerified}.Verified())
	assert.False(t, ConnectionStatus{Status: ConnectionError}.Verified())
	require.Error(t, ConnectionStatus{Status: "maybe"}.Validate())
}

func TestEvEnergySocRange(t *testing.T) {
	info := EvInfo{Energy: &EvEnergy{Soc: ptr(101)}}
	require.Error(t, info.Validate())
	info.Energy.Soc = ptr(80)
	info.Energy.SocTarget = ptr(100)
	require.NoError(t, info.Validate())
}

func TestIec61851StateNominalVoltage(t *testing.T) {
	min, max := Iec61851StateB.NominalCPVoltage()
	require.NotNil(t, min)
	require.NotNil(t, max)
	assert.Equal(t, 9.0, *min)
	assert.Equal(t, 9.0, *max)

	min, max = Iec61851StateUnknown.NominalCPVoltage()
	assert.Nil(t, min)
	assert.Nil(t, max)
	assert.Equal(t, "cp fault / wiring error", Iec61851StateF.Description())
}

func TestConnectorNilIsUnknown(t *testing.T) {
	var c *Connector
	assert.Equal(t, ConnectorUnknown, c.EffectiveStatus())
	assert.Equal(t, Iec61851StateUnknown, (&Connector{}).EffectiveIec61851State())
}

func TestChargePointStatusPortLookup(t *testing.T) {
	st := sampleStatus()
	require.NotNil(t, st.ChargePort(1))
	assert.Nil(t, st.ChargePort(2))
}
