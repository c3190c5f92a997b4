package model

import "time"

// DefaultDiagnosticTTL is the longest diagnostic window a CP accepts unless
// configured otherwise.
const DefaultDiagnosticTTL = time.Hour

// DiagnosticSession is a backend-initiated window in which the CP may
// override selected feeders. A present feeder override replaces that feeder
// for the session; a nil one keeps the real feeder. Status messages stay
// truthful, only feeder inputs change.
type DiagnosticSession struct {
	DiagnosticID string    `json:"diagnosticId" validate:"required"`
	StartedAt    time.Time `json:"startedAt" validate:"required"`
	ExpiresAt    time.Time `json:"expiresAt" validate:"required,gtfield=StartedAt"`
	StartedBy    StartedBy `json:"startedBy" validate:"required,oneof=BACKEND"`
	// StartedByRef is an optional request, operator or ticket id.
	StartedByRef *string `json:"startedByRef,omitempty"`
	// ChargePortIDs limits the session to some ports. Empty means the whole CP.
	ChargePortIDs []int              `json:"chargePortIds,omitempty" validate:"dive,gt=0"`
	Feeders       *DiagnosticFeeders `json:"feeders,omitempty"`
	Reason        *string            `json:"reason,omitempty"`
}

// Validate checks the session and its feeder overrides.
func (d DiagnosticSession) Validate() error {
	return validateStruct(d)
}

// ClampExpiry caps ExpiresAt to StartedAt+max and returns the effective
// expiry.
func (d *DiagnosticSession) ClampExpiry(max time.Duration) time.Time {
	limit := d.StartedAt.Add(max)
	if d.ExpiresAt.IsZero() || d.ExpiresAt.After(limit) {
		d.ExpiresAt = limit
	}
	return d.ExpiresAt
}

// AppliesTo reports whether the session covers the given port.
func (d DiagnosticSession) AppliesTo(chargePortID int) bool {
	if len(d.ChargePortIDs) == 0 {
		return true
	}
	for _, id := range d.ChargePortIDs {
		if id == chargePortID {
			return true
		}
	}
	return false
}

// Expired reports whether the session is over at now.
func (d DiagnosticSession) Expired(now time.Time) bool {
	return !now.Before(d.ExpiresAt)
}

// StartedBy names who opened a diagnostic session.
type StartedBy string

const StartedByBackend StartedBy = "BACKEND"

// FeederMode selects the source of a feeder's data.
type FeederMode string

const (
	FeederReal      FeederMode = "REAL"
	FeederSimulated FeederMode = "SIMULATED"
	FeederReplay    FeederMode = "REPLAY"
)

// DiagnosticFeeders overrides the data sources during a diagnostic session.
type DiagnosticFeeders struct {
	Car      *CarFeeder      `json:"car,omitempty"`
	Iec61851 *Iec61851Feeder `json:"iec61851,omitempty"`
	Meter    *MeterFeeder    `json:"meter,omitempty"`
	Rfid     *RfidFeeder     `json:"rfid,omitempty"`
}

// CarAuthMethod is how a simulated vehicle authorizes.
type CarAuthMethod string

const (
	CarAuthNone        CarAuthMethod = "NONE"
	CarAuthPncContract CarAuthMethod = "PNC_CONTRACT"
	CarAuthEIM         CarAuthMethod = "EIM"
)

// CarFeeder overrides vehicle behaviour.
type CarFeeder struct {
	Mode              FeederMode     `json:"mode" validate:"required,oneof=REAL SIMULATED REPLAY"`
	ScenarioID        *string        `json:"scenarioId,omitempty"`
	InitialSocPercent *int           `json:"initialSocPercent,omitempty" validate:"omitempty,gte=0,lte=100"`
	TargetSocPercent  *int           `json:"targetSocPercent,omitempty" validate:"omitempty,gte=0,lte=100"`
	RequestedEnergyWh *int           `json:"requestedEnergyWh,omitempty" validate:"omitempty,gte=0"`
	AuthMethod        *CarAuthMethod `json:"authMethod,omitempty" validate:"omitempty,oneof=NONE PNC_CONTRACT EIM"`
}

// Iec61851Feeder overrides the control pilot state machine.
type Iec61851Feeder struct {
	Mode       FeederMode `json:"mode" validate:"required,oneof=REAL SIMULATED REPLAY"`
	ScenarioID *string    `json:"scenarioId,omitempty"`
	// InitialState is one of "A", "B", "C" or "D".
	InitialState *string `json:"initialState,omitempty" validate:"omitempty,oneof=A B C D"`
}

// MeterFeeder overrides meter and thermal readings. When both bounds of a
// range are set the CP picks a random value in [min, max].
type MeterFeeder struct {
	Mode              FeederMode `json:"mode" validate:"required,oneof=REAL SIMULATED REPLAY"`
	InitialEnergyWh   *int64     `json:"initialEnergyWh,omitempty" validate:"omitempty,gte=0"`
	ScenarioID        *string    `json:"scenarioId,omitempty"`
	MinPowerW         *int       `json:"minPowerW,omitempty"`
	MaxPowerW         *int       `json:"maxPowerW,omitempty"`
	MinConnectorTempC *int       `json:"minConnectorTempC,omitempty"`
	MaxConnectorTempC *int       `json:"maxConnectorTempC,omitempty"`
	MinPcbTempC       *int       `json:"minPcbTempC,omitempty"`
	MaxPcbTempC       *int       `json:"maxPcbTempC,omitempty"`
}

// RfidFeeder overrides card reads.
type RfidFeeder struct {
	Mode       FeederMode `json:"mode" validate:"required,oneof=REAL SIMULATED REPLAY"`
	ScenarioID *string    `json:"scenarioId,omitempty"`
	TagID      *string    `json:"tagId,omitempty"`
}
