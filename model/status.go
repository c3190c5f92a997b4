package model

import "time"

// ConnectionType is the network link a Charge Point uses.
type ConnectionType string

const (
	ConnectionTypeEthernet ConnectionType = "ethernet"
	ConnectionTypeWiFi     ConnectionType = "wifi"
	ConnectionTypeLTE      ConnectionType = "lte"
	ConnectionTypeUnknown  ConnectionType = "unknown"
)

// ChargePointStatus is the full status report of a Charge Point. It is sent
// after identity verification and periodically during operation.
type ChargePointStatus struct {
	Timestamp      time.Time      `json:"timestamp" validate:"required"`
	OnlineSince    *time.Time     `json:"onlineSince,omitempty"`
	ConnectionType ConnectionType `json:"connectionType" validate:"required,oneof=ethernet wifi lte unknown"`
	ChargePorts    []ChargePort   `json:"chargePorts" validate:"required,dive"`
	SystemInfo     *SystemInfo    `json:"systemInfo" validate:"required"`
}

// Validate checks the status and every port in it.
func (s ChargePointStatus) Validate() error {
	return validateStruct(s)
}

// ChargePort returns the port with the given id, or nil.
func (s *ChargePointStatus) ChargePort(id int) *ChargePort {
	for i := range s.ChargePorts {
		if s.ChargePorts[i].ChargePortID == id {
			return &s.ChargePorts[i]
		}
	}
	return nil
}

// SystemInfo carries system and firmware information of a Charge Point.
type SystemInfo struct {
	FirmwareVersion     *string    `json:"firmwareVersion,omitempty"`
	FirmwareInstalledOn *time.Time `json:"firmwareInstalledOn,omitempty"`

	BootTime         *time.Time `json:"bootTime,omitempty"`
	CPULoad          *float64   `json:"cpuLoad,omitempty" validate:"omitempty,gte=0,lte=1"`
	MemoryFreeBytes  *int64     `json:"memoryFreeBytes,omitempty" validate:"omitempty,gte=0"`
	MemoryTotalBytes *int64     `json:"memoryTotalBytes,omitempty" validate:"omitempty,gte=0"`
	DiskUsagePercent *float64   `json:"diskUsagePercent,omitempty" validate:"omitempty,gte=0,lte=100"`
	OSVersion        *string    `json:"osVersion,omitempty"`    // e.g. "Linux 6.1.52", "baremetal"
	Architecture     *string    `json:"architecture,omitempty"` // e.g. "armv8", "x86_64"

	EthernetReady *bool `json:"ethernetReady,omitempty"` // interface physically up and usable
	WiFiReady     *bool `json:"wifiReady,omitempty"`     // associated with an access point
	LTEReady      *bool `json:"lteReady,omitempty"`      // modem registered with a data connection

	ThermalInfo *SystemThermalInfo `json:"thermalInfo,omitempty"`
}

// TemperatureUnit is the unit of a TemperatureValue.
type TemperatureUnit string

const (
	Celsius            TemperatureUnit = "celsius"
	Fahrenheit         TemperatureUnit = "fahrenheit"
	TemperatureUnknown TemperatureUnit = "unknown"
)

// TemperatureValue is a single temperature reading. A nil Value means the
// sensor is not present or failed.
type TemperatureValue struct {
	Value *float64         `json:"value,omitempty"`
	Unit  *TemperatureUnit `json:"unit,omitempty" validate:"omitempty,oneof=celsius fahrenheit unknown"`
}

// CelsiusValue returns a reading in degrees Celsius.
func CelsiusValue(v float64) *TemperatureValue {
	unit := Celsius
	return &TemperatureValue{Value: &v, Unit: &unit}
}

// SystemThermalInfo is the system-wide thermal telemetry.
type SystemThermalInfo struct {
	Ambient       *TemperatureValue `json:"ambient,omitempty"`
	PCB           *TemperatureValue `json:"pcb,omitempty"`
	MCU           *TemperatureValue `json:"mcu,omitempty"`
	Transformer   *TemperatureValue `json:"transformer,omitempty"`
	Relay         *TemperatureValue `json:"relay,omitempty"`
	CoolingSystem *TemperatureValue `json:"coolingSystem,omitempty"`
	Internal      *TemperatureValue `json:"internal,omitempty"`
}

// ConnectorInfo is the connector summary used before Connector existed.
//
// Deprecated: use Connector.
type ConnectorInfo struct {
	Status           *ConnectorStatus `json:"status,omitempty" validate:"omitempty,oneof=available plugged charging faulted unavailable unknown"`
	PluggedIn        bool             `json:"pluggedIn"`
	PluggedConnector *string          `json:"pluggedConnector,omitempty"`
	Locked           bool             `json:"locked"`
	Connectors       []string         `json:"connectors,omitempty"`
}
