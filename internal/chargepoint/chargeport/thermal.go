package chargeport

import (
	"context"

	"github.com/w3cp/w3cp/model"
)

// ThermalFeeder reports port temperatures. The simulated hardware has no
// port sensors, so every reading is absent.
type ThermalFeeder struct{}

func (ThermalFeeder) Fetch(context.Context) (*model.PortThermalInfo, error) {
	return &model.PortThermalInfo{}, nil
}
