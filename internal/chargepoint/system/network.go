package system

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/w3cp/w3cp/model"
)

var linkPrefixes = []struct {
	kind     model.ConnectionType
	prefixes []string
}{
	{model.ConnectionTypeEthernet, []string{"eth", "en"}},
	{model.ConnectionTypeWiFi, []string{"wlan", "wl"}},
	{model.ConnectionTypeLTE, []string{"wwan", "ww", "ppp", "usb", "rmnet"}},
}

// ClassifyInterface guesses the link type from a Linux interface name.
func ClassifyInterface(name string) model.ConnectionType {
	name = strings.ToLower(name)
	for _, lp := range linkPrefixes {
		for _, prefix := range lp.prefixes {
			if strings.HasPrefix(name, prefix) {
				return lp.kind
			}
		}
	}
	return model.ConnectionTypeUnknown
}

// links reports which link types have at least one usable interface.
func links(ifaces []NetInterface) map[model.ConnectionType]bool {
	ready := make(map[model.ConnectionType]bool, 3)
	for _, iface := range ifaces {
		if !iface.Up || iface.Loopback || !iface.HasAddr {
			continue
		}
		if kind := ClassifyInterface(iface.Name); kind != model.ConnectionTypeUnknown {
			ready[kind] = true
		}
	}
	return ready
}

// DetectConnectionType picks the preferred usable link: ethernet, then
// wifi, then lte.
func DetectConnectionType(ifaces []NetInterface) model.ConnectionType {
	ready := links(ifaces)
	for _, lp := range linkPrefixes {
		if ready[lp.kind] {
			return lp.kind
		}
	}
	return model.ConnectionTypeUnknown
}

// ConnectionTypeFeeder caches the detected uplink type. It is refreshed
// whenever the backend connection opens.
type ConnectionTypeFeeder struct {
	probe  Probe
	logger *zerolog.Logger

	mu   sync.RWMutex
	kind model.ConnectionType
}

// NewConnectionTypeFeeder detects the link type right away. Refresh
// detects it again.
func NewConnectionTypeFeeder(ctx context.Context, probe Probe, logger *zerolog.Logger) *ConnectionTypeFeeder {
	f := &ConnectionTypeFeeder{probe: probe, logger: logger, kind: model.ConnectionTypeUnknown}
	f.Refresh(ctx, "initialization")
	return f
}

// Refresh re-detects the connection type. On failure the previous value is
// kept.
func (f *ConnectionTypeFeeder) Refresh(ctx context.Context, reason string) {
	ifaces, err := f.probe.Interfaces(ctx)
	if err != nil {
		f.logger.Warn().Err(err).Str("reason", reason).Msg("failed to detect connection type")
		return
	}

	kind := DetectConnectionType(ifaces)

	f.mu.Lock()
	f.kind = kind
	f.mu.Unlock()

	f.logger.Info().Str("reason", reason).Str("connection_type", string(kind)).Msg("connection type detected")
}

func (f *ConnectionTypeFeeder) Fetch(context.Context) (model.ConnectionType, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.kind, nil
}

// OnlineSinceFeeder reports when the current backend connection opened.
type OnlineSinceFeeder struct {
	mu    sync.RWMutex
	since time.Time
	now   func() time.Time
}

// NewOnlineSinceFeeder counts from its creation until the first Reset.
func NewOnlineSinceFeeder() *OnlineSinceFeeder {
	return &OnlineSinceFeeder{since: time.Now().UTC(), now: time.Now}
}

// Reset marks the charge point online from now on.
func (f *OnlineSinceFeeder) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.since = f.now().UTC()
}

func (f *OnlineSinceFeeder) Fetch(context.Context) (*time.Time, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	since := f.since
	return &since, nil
}
