package system

import (
	"context"
	"io/fs"
	"math"
	"math/rand/v2"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/w3cp/w3cp/model"
)

const (
	simulatedMinC = 35.0
	simulatedMaxC = 65.0
)

// ThermalFeeder reads Linux thermal zones (temp in milli-degrees Celsius)
// and maps them onto the system thermal slots by zone type. Without any
// readable zone it simulates a slowly drifting controller temperature.
type ThermalFeeder struct {
	zones fs.FS

	mu            sync.Mutex
	simulatedBase float64
	jitter        func() float64
}

// NewThermalFeeder reads zones from /sys/class/thermal.
func NewThermalFeeder() *ThermalFeeder {
	return NewThermalFeederFS(os.DirFS("/sys/class/thermal"))
}

// NewThermalFeederFS reads thermal zones from zones, laid out like
// /sys/class/thermal.
func NewThermalFeederFS(zones fs.FS) *ThermalFeeder {
	return &ThermalFeeder{
		zones:         zones,
		simulatedBase: 42,
		jitter:        func() float64 { return rand.Float64() - 0.5 },
	}
}

// Fetch maps the readable zones onto the thermal slots.
func (f *ThermalFeeder) Fetch(context.Context) (*model.SystemThermalInfo, error) {
	sensors := f.readZones()
	if len(sensors) == 0 {
		sensors = f.simulate()
	}

	info := &model.SystemThermalInfo{}
	mapSensors(sensors, info)
	return info, nil
}

// readZones returns the hottest positive reading per zone type.
func (f *ThermalFeeder) readZones() map[string]float64 {
	entries, err := fs.ReadDir(f.zones, ".")
	if err != nil {
		return nil
	}

	sensors := make(map[string]float64)
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "thermal_zone") {
			continue
		}

		temp, ok := readZoneTemp(f.zones, entry.Name())
		if !ok || temp <= 0 {
			continue
		}

		name := readZoneType(f.zones, entry.Name())
		if prev, seen := sensors[name]; !seen || temp > prev {
			sensors[name] = temp
		}
	}
	return sensors
}

func readZoneType(zones fs.FS, zone string) string {
	raw, err := fs.ReadFile(zones, path.Join(zone, "type"))
	if err != nil {
		return zone
	}
	if name := strings.TrimSpace(string(raw)); name != "" {
		return name
	}
	return zone
}

func readZoneTemp(zones fs.FS, zone string) (float64, bool) {
	raw, err := fs.ReadFile(zones, path.Join(zone, "temp"))
	if err != nil {
		return 0, false
	}
	milli, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, false
	}
	return float64(milli) / 1000, true
}

func (f *ThermalFeeder) simulate() map[string]float64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.simulatedBase = math.Max(simulatedMinC, math.Min(simulatedMaxC, f.simulatedBase+f.jitter()))

	return map[string]float64{
		"controller_sim": f.simulatedBase,
		"board_sim":      f.simulatedBase - 3,
		"ambient_sim":    f.simulatedBase - 10,
	}
}

// mapSensors assigns readings to slots. Zones are visited in name order so
// the result is stable; unrecognised zones fill Internal if it is still
// empty.
func mapSensors(sensors map[string]float64, info *model.SystemThermalInfo) {
	names := make([]string, 0, len(sensors))
	for name := range sensors {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, raw := range names {
		temp := model.CelsiusValue(sensors[raw])
		name := strings.ToLower(raw)

		switch {
		case strings.Contains(name, "ambient"):
			info.Ambient = temp
		case containsAny(name, "mcu", "cpu", "pkg", "soc", "controller"):
			info.MCU = temp
		case containsAny(name, "pcb", "board"):
			info.PCB = temp
		case strings.Contains(name, "relay"):
			info.Relay = temp
		case strings.Contains(name, "transformer"):
			info.Transformer = temp
		case containsAny(name, "cooling", "fan"):
			info.CoolingSystem = temp
		case strings.Contains(name, "internal"):
			info.Internal = temp
		case info.Internal == nil:
			info.Internal = temp
		}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
