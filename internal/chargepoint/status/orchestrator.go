// Package status assembles the charge point status report and decides when
// it is worth sending to the backend.
package status

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/w3cp/w3cp/internal/chargepoint/feeder"
	"github.com/w3cp/w3cp/model"
)

// Assembler produces a complete status snapshot.
type Assembler interface {
	Assemble(ctx context.Context) (model.ChargePointStatus, error)
}

// Orchestrator combines the top level feeders and every configured charge
// port into one ChargePointStatus.
type Orchestrator struct {
	systemInfo     feeder.Feeder[*model.SystemInfo]
	connectionType feeder.Feeder[model.ConnectionType]
	onlineSince    feeder.Feeder[*time.Time]
	ports          []feeder.Feeder[model.ChargePort]
	now            func() time.Time
}

// NewOrchestrator assembles status from the given feeders. Ports are
// reported in the order given.
func NewOrchestrator(
	systemInfo feeder.Feeder[*model.SystemInfo],
	connectionType feeder.Feeder[model.ConnectionType],
	onlineSince feeder.Feeder[*time.Time],
	ports []feeder.Feeder[model.ChargePort],
) *Orchestrator {
	return &Orchestrator{
		systemInfo:     systemInfo,
		connectionType: connectionType,
		onlineSince:    onlineSince,
		ports:          ports,
		now:            time.Now,
	}
}

// Assemble fetches all feeders concurrently. Ports keep their configured
// order.
func (o *Orchestrator) Assemble(ctx context.Context) (model.ChargePointStatus, error) {
	status := model.ChargePointStatus{
		ChargePorts: make([]model.ChargePort, len(o.ports)),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		status.SystemInfo, err = o.systemInfo.Fetch(ctx)
		if err != nil {
			return fmt.Errorf("system info: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		status.ConnectionType, err = o.connectionType.Fetch(ctx)
		if err != nil {
			return fmt.Errorf("connection type: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		status.OnlineSince, err = o.onlineSince.Fetch(ctx)
		if err != nil {
			return fmt.Errorf("online since: %w", err)
		}
		return nil
	})
	for i, port := range o.ports {
		g.Go(func() (err error) {
			status.ChargePorts[i], err = port.Fetch(ctx)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return model.ChargePointStatus{}, fmt.Errorf("assemble status: %w", err)
	}

	status.Timestamp = o.now().UTC()
	return status, nil
}
