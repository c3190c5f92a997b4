// Package system reports host level information of the charge point
// controller: firmware, load, memory, disk, network links and temperatures.
package system

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	psnet "github.com/shirou/gopsutil/v4/net"
)

// HostStats is one sample of host metrics. A nil field means the metric
// could not be read.
type HostStats struct {
	BootTime         *time.Time
	CPULoad          *float64 // 0..1
	MemoryFreeBytes  *int64
	MemoryTotalBytes *int64
	DiskUsagePercent *float64
	OSVersion        *string
	Architecture     *string
}

// NetInterface is a network interface as seen by the kernel.
type NetInterface struct {
	Name     string
	Up       bool
	Loopback bool
	HasAddr  bool
}

// Probe reads host metrics.
type Probe interface {
	Host(ctx context.Context) HostStats
	Interfaces(ctx context.Context) ([]NetInterface, error)
}

// HostProbe reads metrics from the running host through gopsutil. Metrics
// that fail are logged and left nil.
type HostProbe struct {
	logger   *zerolog.Logger
	diskPath string
}

// NewHostProbe reads host metrics with gopsutil.
func NewHostProbe(logger *zerolog.Logger) *HostProbe {
	return &HostProbe{logger: logger, diskPath: "/"}
}

// Host samples CPU, memory, disk and uptime. Failed readings are logged
// and left nil.
func (p *HostProbe) Host(ctx context.Context) HostStats {
	var stats HostStats

	if boot, err := host.BootTimeWithContext(ctx); err != nil {
		p.warn(err, "boot time")
	} else {
		t := time.Unix(int64(boot), 0).UTC()
		stats.BootTime = &t
	}

	// Interval 0 compares against the previous call.
	if load, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		p.warn(err, "cpu load")
	} else if len(load) > 0 {
		v := load[0] / 100
		stats.CPULoad = &v
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		p.warn(err, "memory")
	} else {
		free, total := int64(vm.Available), int64(vm.Total)
		stats.MemoryFreeBytes = &free
		stats.MemoryTotalBytes = &total
	}

	if usage, err := disk.UsageWithContext(ctx, p.diskPath); err != nil {
		p.warn(err, "disk usage")
	} else {
		v := usage.UsedPercent
		stats.DiskUsagePercent = &v
	}

	if info, err := host.InfoWithContext(ctx); err != nil {
		p.warn(err, "host info")
	} else {
		osVersion := fmt.Sprintf("%s %s", info.OS, info.KernelVersion)
		arch := info.KernelArch
		stats.OSVersion = &osVersion
		stats.Architecture = &arch
	}

	return stats
}

// Interfaces lists the network interfaces of the host.
func (p *HostProbe) Interfaces(ctx context.Context) ([]NetInterface, error) {
	list, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list network interfaces: %w", err)
	}

	out := make([]NetInterface, 0, len(list))
	for _, iface := range list {
		ni := NetInterface{Name: iface.Name, HasAddr: len(iface.Addrs) > 0}
		for _, flag := range iface.Flags {
			switch flag {
			case "up":
				ni.Up = true
			case "loopback":
				ni.Loopback = true
			}
		}
		out = append(out, ni)
	}
	return out, nil
}

func (p *HostProbe) warn(err error, what string) {
	p.logger.Warn().Err(err).Str("metric", what).Msg("failed to read host metric")
}
