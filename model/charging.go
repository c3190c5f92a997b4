package model

import (
	"time"

	"github.com/google/uuid"
)

// ChargePort is one charging point of a Charge Point, identified by a
// stable positive index (1, 2, 3, ...).
type ChargePort struct {
	ChargePortID int              `json:"chargePortId" validate:"gt=0"`
	Connector    *Connector       `json:"connector,omitempty"`
	Metering     *EnergyStatus    `json:"metering,omitempty"`
	Session      *ChargeSession   `json:"session,omitempty"`
	ThermalInfo  *PortThermalInfo `json:"thermalInfo,omitempty"`
	EvInfo       *EvInfo          `json:"evInfo,omitempty"`
}

// Validate checks the port and its nested status.
func (p ChargePort) Validate() error {
	return validateStruct(p)
}

// ConnectorStatus is the high-level connector status from the W3CP view.
type ConnectorStatus string

const (
	ConnectorAvailable   ConnectorStatus = "available"
	ConnectorPlugged     ConnectorStatus = "plugged"
	ConnectorCharging    ConnectorStatus = "charging"
	ConnectorFaulted     ConnectorStatus = "faulted"
	ConnectorUnavailable ConnectorStatus = "unavailable"
	ConnectorUnknown     ConnectorStatus = "unknown"
)

// Iec61851State is the IEC 61851 control pilot state (Mode 3).
type Iec61851State string

const (
	Iec61851StateA       Iec61851State = "a"
	Iec61851StateB       Iec61851State = "b"
	Iec61851StateC       Iec61851State = "c"
	Iec61851StateD       Iec61851State = "d"
	Iec61851StateE       Iec61851State = "e"
	Iec61851StateF       Iec61851State = "f"
	Iec61851StateUnknown Iec61851State = "unknown"
)

type iecStateInfo struct {
	min, max    *float64
	description string
}

func volts(v float64) *float64 { return &v }

var iecStates = map[Iec61851State]iecStateInfo{
	Iec61851StateA:       {volts(12), volts(12), "no vehicle connected"},
	Iec61851StateB:       {volts(9), volts(9), "vehicle detected, not ready"},
	Iec61851StateC:       {volts(6), volts(6), "ready/charging, no ventilation required"},
	Iec61851StateD:       {volts(3), volts(3), "ready/charging, ventilation required"},
	Iec61851StateE:       {volts(0), volts(0), "cp error / supply off"},
	Iec61851StateF:       {volts(-12), volts(-12), "cp fault / wiring error"},
	Iec61851StateUnknown: {nil, nil, "unknown / not reported"},
}

// NominalCPVoltage returns the nominal control pilot voltage range of the
// state. Both are nil for unknown states.
func (s Iec61851State) NominalCPVoltage() (min, max *float64) {
	info, ok := iecStates[s]
	if !ok {
		return nil, nil
	}
	return info.min, info.max
}

// Description returns a short human readable description of the state.
func (s Iec61851State) Description() string {
	if info, ok := iecStates[s]; ok {
		return info.description
	}
	return iecStates[Iec61851StateUnknown].description
}

// Iec61851Edition is the edition of IEC 61851-1 implemented by the firmware.
type Iec61851Edition string

const (
	Iec61851Edition2017      Iec61851Edition = "iec618511_2017"
	Iec61851Edition2025Draft Iec61851Edition = "iec618511_2025Draft"
	Iec61851EditionUnknown   Iec61851Edition = "unknown"
)

// Iec61851ChargingMode is the IEC 61851-1 charging mode of a connector.
//
//   - mode1: AC from a standard socket-outlet, no control pilot.
//   - mode2: AC from a socket-outlet with an in-cable control and protection device.
//   - mode3: AC from a dedicated EVSE with control pilot (wallbox, public AC).
//   - mode4: DC from a dedicated EVSE with control pilot (fast charging).
type Iec61851ChargingMode string

const (
	ChargingMode1       Iec61851ChargingMode = "mode1"
	ChargingMode2       Iec61851ChargingMode = "mode2"
	ChargingMode3       Iec61851ChargingMode = "mode3"
	ChargingMode4       Iec61851ChargingMode = "mode4"
	ChargingModeUnknown Iec61851ChargingMode = "unknown"
)

// EnergyDirection is how the Charge Point is configured to move energy. It
// is not a live power reading.
type EnergyDirection string

const (
	EnergyCPToVehicleOnly  EnergyDirection = "cpToVehicleOnly"
	EnergyVehicleToCPOnly  EnergyDirection = "vehicleToCpOnly"
	EnergyBidirectional    EnergyDirection = "bidirectional"
	EnergyDirectionUnknown EnergyDirection = "unknown"
)

// InterfaceType is how the vehicle connects physically.
type InterfaceType string

const (
	InterfacePlug             InterfaceType = "plug"
	InterfaceWireless         InterfaceType = "wireless"
	InterfacePantographTop    InterfaceType = "pantographTop"
	InterfacePantographBottom InterfaceType = "pantographBottom"
	InterfaceRail             InterfaceType = "rail"
	InterfaceUnknown          InterfaceType = "unknown"
)

// CurrentType is the AC or DC energy path.
type CurrentType string

const (
	CurrentAC      CurrentType = "ac"
	CurrentDC      CurrentType = "dc"
	CurrentUnknown CurrentType = "unknown"
)

// Connector describes the logical and physical state of a port's connector.
type Connector struct {
	Status *ConnectorStatus `json:"status,omitempty" validate:"omitempty,oneof=available plugged charging faulted unavailable unknown"`
	// Locked is the physical cable lock state, if the hardware has a lock.
	Locked *bool `json:"locked,omitempty"`

	Iec61851State *Iec61851State `json:"iec61851State,omitempty" validate:"omitempty,oneof=a b c d e f unknown"`
	// PwmDutyCycle is the control pilot duty cycle in percent.
	PwmDutyCycle *float64 `json:"pwmDutyCycle,omitempty" validate:"omitempty,gte=0,lte=100"`
	// RelayClosed is true when the main contactor is closed (power path enabled).
	RelayClosed     *bool                 `json:"relayClosed,omitempty"`
	Iec61851Edition *Iec61851Edition      `json:"iec61851Edition,omitempty" validate:"omitempty,oneof=iec618511_2017 iec618511_2025Draft unknown"`
	ChargingMode    *Iec61851ChargingMode `json:"chargingMode,omitempty" validate:"omitempty,oneof=mode1 mode2 mode3 mode4 unknown"`
	EnergyDirection *EnergyDirection      `json:"energyDirection,omitempty" validate:"omitempty,oneof=cpToVehicleOnly vehicleToCpOnly bidirectional unknown"`

	InterfaceType *InterfaceType `json:"interfaceType,omitempty" validate:"omitempty,oneof=plug wireless pantographTop pantographBottom rail unknown"`
	CurrentType   *CurrentType   `json:"currentType,omitempty" validate:"omitempty,oneof=ac dc unknown"`
	// ConnectorStandard is open-ended. Recommended values are "type2",
	// "ccs2", "ccs1", "nacs", "chademo", "schuko", "gbtAc", "gbtDc", "mcs"
	// and "unknown". Nil reads as "unknown".
	ConnectorStandard *string `json:"connectorStandard,omitempty"`
}

// EffectiveStatus folds nil into ConnectorUnknown.
func (c *Connector) EffectiveStatus() ConnectorStatus {
	if c == nil || c.Status == nil {
		return ConnectorUnknown
	}
	return *c.Status
}

// EffectiveIec61851State folds nil into Iec61851StateUnknown.
func (c *Connector) EffectiveIec61851State() Iec61851State {
	if c == nil || c.Iec61851State == nil {
		return Iec61851StateUnknown
	}
	return *c.Iec61851State
}

// EnergyStatus holds the port's cumulative meters and an instantaneous
// electrical snapshot taken at ChargePointStatus.Timestamp.
type EnergyStatus struct {
	// EnergyImportKWh is the total energy delivered to vehicles over the
	// device lifetime. It only grows unless reset by maintenance.
	EnergyImportKWh *float64 `json:"energyImportKWh,omitempty" validate:"omitempty,gte=0"`
	// EnergyExportKWh is the total energy received from vehicles.
	EnergyExportKWh *float64 `json:"energyExportKWh,omitempty" validate:"omitempty,gte=0"`
	// Reactive energy registers in kvarh, if the meter has them.
	ReactiveEnergyImportKvarh *float64 `json:"reactiveEnergyImportKvarh,omitempty"`
	ReactiveEnergyExportKvarh *float64 `json:"reactiveEnergyExportKvarh,omitempty"`

	// Voltage is the line voltage in V.
	Voltage *float64 `json:"voltage,omitempty"`
	// CurrentPerPhase is in A, e.g. [L1, L2, L3].
	CurrentPerPhase []float64 `json:"currentPerPhase,omitempty"`
	// ActivePowerImportW is the charging power in W (>= 0).
	ActivePowerImportW *float64 `json:"activePowerImportW,omitempty" validate:"omitempty,gte=0"`
	// ActivePowerExportW is the discharging (V2G) power in W (>= 0).
	ActivePowerExportW *float64 `json:"activePowerExportW,omitempty" validate:"omitempty,gte=0"`
}

// SessionState is the lifecycle state of a physical charging session.
type SessionState string

const (
	SessionPending   SessionState = "pending"
	SessionActive    SessionState = "active"
	SessionPaused    SessionState = "paused"
	SessionCompleted SessionState = "completed"
)

// EndReason explains why a session ended.
type EndReason string

const (
	EndReasonVehicleUnplugged EndReason = "vehicleUnplugged"
	EndReasonStoppedByUser    EndReason = "stoppedByUser"
	EndReasonFault            EndReason = "fault"
	EndReasonOther            EndReason = "other"
)

// ChargeSession is the current or last physical charging session of a port.
// A session starts when a vehicle is plugged in and ends when it is unplugged.
type ChargeSession struct {
	SessionID           uuid.UUID    `json:"sessionId" validate:"required"`
	CreatedAt           time.Time    `json:"createdAt" validate:"required"`
	EnergyFlowStartedAt *time.Time   `json:"energyFlowStartedAt,omitempty"`
	LastUpdateAt        *time.Time   `json:"lastUpdateAt,omitempty"`
	EndedAt             *time.Time   `json:"endedAt,omitempty"`
	SessionState        SessionState `json:"sessionState" validate:"required,oneof=pending active paused completed"`
	EndReason           *EndReason   `json:"endReason,omitempty" validate:"omitempty,oneof=vehicleUnplugged stoppedByUser fault other"`
	// Energy moved since energy flow started, in kWh.
	EnergyToVehicleKWh   *float64 `json:"energyToVehicleKWh,omitempty"`
	EnergyFromVehicleKWh *float64 `json:"energyFromVehicleKWh,omitempty"`
}

// Validate checks the session fields.
func (s ChargeSession) Validate() error {
	return validateStruct(s)
}

// PortThermalInfo is the port-specific thermal telemetry.
type PortThermalInfo struct {
	Connector *TemperatureValue `json:"connector,omitempty"`
	Cable     *TemperatureValue `json:"cable,omitempty"`
	Inlet     *TemperatureValue `json:"inlet,omitempty"`
	Socket    *TemperatureValue `json:"socket,omitempty"`
}

// EvKind is the kind of vehicle being charged.
type EvKind string

const (
	EvKindCar        EvKind = "car"
	EvKindMotorcycle EvKind = "motorcycle"
	EvKindScooter    EvKind = "scooter"
	EvKindBus        EvKind = "bus"
	EvKindTruck      EvKind = "truck"
	EvKindBoat       EvKind = "boat"
	EvKindShip       EvKind = "ship"
	EvKindOther      EvKind = "other"
)

// IdType is the scheme of EvIdentity.ID.
type IdType string

const (
	IdTypeVIN          IdType = "vin"
	IdTypeFleetID      IdType = "fleetId"
	IdTypeSerialNumber IdType = "serialNumber"
	IdTypeIMONumber    IdType = "imoNumber"
	IdTypeOther        IdType = "other"
)

// EvProtocol is how the vehicle talks to the Charge Point.
type EvProtocol string

const (
	EvProtocolISO15118 EvProtocol = "iso15118"
	EvProtocolDIN70121 EvProtocol = "din70121"
	EvProtocolIEC61851 EvProtocol = "iec61851"
	EvProtocolUnknown  EvProtocol = "unknown"
)

// EvInfo describes what is connected to a port.
type EvInfo struct {
	Identity     *EvIdentity     `json:"identity,omitempty"`
	Energy       *EvEnergy       `json:"energy,omitempty"`
	Protocol     *EvProtocol     `json:"protocol,omitempty" validate:"omitempty,oneof=iso15118 din70121 iec61851 unknown"`
	Capabilities *EvCapabilities `json:"capabilities,omitempty"`
}

// Validate checks the vehicle information.
func (e EvInfo) Validate() error {
	return validateStruct(e)
}

// EvIdentity identifies a vehicle for UI and lookups.
type EvIdentity struct {
	Kind   *EvKind `json:"kind,omitempty" validate:"omitempty,oneof=car motorcycle scooter bus truck boat ship other"`
	IdType *IdType `json:"idType,omitempty" validate:"omitempty,oneof=vin fleetId serialNumber imoNumber other"`
	// ID is the raw identifier or "scheme:value".
	ID    *string `json:"id,omitempty"`
	Brand *string `json:"brand,omitempty"`
	Model *string `json:"model,omitempty"`
	Label *string `json:"label,omitempty"` // e.g. "Ferry #3"
}

// EvEnergy is the battery state of a vehicle.
type EvEnergy struct {
	Soc        *int     `json:"soc,omitempty" validate:"omitempty,gte=0,lte=100"`
	SocTarget  *int     `json:"socTarget,omitempty" validate:"omitempty,gte=0,lte=100"`
	EnergyWh   *float64 `json:"energyWh,omitempty" validate:"omitempty,gte=0"`
	CapacityWh *float64 `json:"capacityWh,omitempty" validate:"omitempty,gt=0"`
}

// EvCapabilities are simple high-level vehicle flags.
type EvCapabilities struct {
	CanDischarge     *bool `json:"canDischarge,omitempty"` // V2G / V2H capable
	HasMultiplePacks *bool `json:"hasMultiplePacks,omitempty"`
	IsFleetAsset     *bool `json:"isFleetAsset,omitempty"`
}
