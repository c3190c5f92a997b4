package chargeport

import (
	"context"
	"sync"

	"github.com/w3cp/w3cp/model"
)

// EvInfoFeeder holds what the connected vehicle reported about itself.
type EvInfoFeeder struct {
	mu   sync.Mutex
	info *model.EvInfo
}

// NewEvInfoFeeder starts without vehicle information.
func NewEvInfoFeeder() *EvInfoFeeder {
	return &EvInfoFeeder{}
}

// Fetch returns a deep copy, or nil when no vehicle information is known.
func (f *EvInfoFeeder) Fetch(context.Context) (*model.EvInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return copyEvInfo(f.info), nil
}

// Set replaces the known vehicle information.
func (f *EvInfoFeeder) Set(info *model.EvInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.info = copyEvInfo(info)
}

// Reset forgets the vehicle, typically on unplug.
func (f *EvInfoFeeder) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.info = nil
}

// Apply updates the vehicle battery state. Events are ignored while no
// energy information is known.
func (f *EvInfoFeeder) Apply(ev EvInfoEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ev.applyTo(f.info)
}

func copyEvInfo(in *model.EvInfo) *model.EvInfo {
	if in == nil {
		return nil
	}
	out := &model.EvInfo{Protocol: clone(in.Protocol)}
	if in.Identity != nil {
		id := *in.Identity
		out.Identity = &model.EvIdentity{
			Kind:   clone(id.Kind),
			IdType: clone(id.IdType),
			ID:     clone(id.ID),
			Brand:  clone(id.Brand),
			Model:  clone(id.Model),
			Label:  clone(id.Label),
		}
	}
	if in.Energy != nil {
		e := *in.Energy
		out.Energy = &model.EvEnergy{
			Soc:        clone(e.Soc),
			SocTarget:  clone(e.SocTarget),
			EnergyWh:   clone(e.EnergyWh),
			CapacityWh: clone(e.CapacityWh),
		}
	}
	if in.Capabilities != nil {
		c := *in.Capabilities
		out.Capabilities = &model.EvCapabilities{
			CanDischarge:     clone(c.CanDischarge),
			HasMultiplePacks: clone(c.HasMultiplePacks),
			IsFleetAsset:     clone(c.IsFleetAsset),
		}
	}
	return out
}
