package system

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/w3cp/w3cp/internal/chargepoint/feeder"
	"github.com/w3cp/w3cp/model"
)

// InfoFeeder assembles SystemInfo from the host probe, the firmware build
// and the thermal feeder.
type InfoFeeder struct {
	firmwareVersion string
	installedOn     time.Time
	probe           Probe
	thermal         feeder.Feeder[*model.SystemThermalInfo]
	logger          *zerolog.Logger
}

// NewInfoFeeder reports firmware, host stats and controller temperatures.
func NewInfoFeeder(
	firmwareVersion string,
	probe Probe,
	thermal feeder.Feeder[*model.SystemThermalInfo],
	logger *zerolog.Logger,
) *InfoFeeder {
	return &InfoFeeder{
		firmwareVersion: firmwareVersion,
		installedOn:     firmwareInstalledOn(),
		probe:           probe,
		thermal:         thermal,
		logger:          logger,
	}
}

// Fetch samples the host. Metrics the probe cannot read stay nil.
func (f *InfoFeeder) Fetch(ctx context.Context) (*model.SystemInfo, error) {
	stats := f.probe.Host(ctx)

	version := f.firmwareVersion
	installedOn := f.installedOn
	info := &model.SystemInfo{
		FirmwareVersion:     &version,
		FirmwareInstalledOn: &installedOn,
		BootTime:            stats.BootTime,
		CPULoad:             stats.CPULoad,
		MemoryFreeBytes:     stats.MemoryFreeBytes,
		MemoryTotalBytes:    stats.MemoryTotalBytes,
		DiskUsagePercent:    stats.DiskUsagePercent,
		OSVersion:           stats.OSVersion,
		Architecture:        stats.Architecture,
	}

	if ifaces, err := f.probe.Interfaces(ctx); err != nil {
		f.logger.Warn().Err(err).Msg("failed to read network readiness")
	} else {
		ready := links(ifaces)
		ethernet := ready[model.ConnectionTypeEthernet]
		wifi := ready[model.ConnectionTypeWiFi]
		lte := ready[model.ConnectionTypeLTE]
		info.EthernetReady = &ethernet
		info.WiFiReady = &wifi
		info.LTEReady = &lte
	}

	thermal, err := f.thermal.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	info.ThermalInfo = thermal

	return info, nil
}

var processStart = time.Now().UTC()

// firmwareInstalledOn is the modification time of the running binary,
// falling back to the process start.
func firmwareInstalledOn() time.Time {
	exe, err := os.Executable()
	if err != nil {
		return processStart
	}
	st, err := os.Stat(exe)
	if err != nil {
		return processStart
	}
	return st.ModTime().UTC()
}
