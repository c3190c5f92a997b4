// Package chargeport holds the runtime state of a single charge port. Each
// aspect of the port (connector, metering, session, vehicle, thermal) is
// kept by its own feeder and the Port combines them into a model.ChargePort.
package chargeport

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/w3cp/w3cp/internal/chargepoint/feeder"
	"github.com/w3cp/w3cp/model"
)

// Port wires the feeders of one charge port together.
type Port struct {
	ID        int
	Connector *ConnectorFeeder
	Metering  *MeteringFeeder
	Session   *SessionFeeder
	EvInfo    *EvInfoFeeder
	Thermal   feeder.Feeder[*model.PortThermalInfo]

	listeners sync.WaitGroup
}

// NewPort builds an idle port with the given id.
func NewPort(id int) *Port {
	session := NewSessionFeeder()
	return &Port{
		ID:        id,
		Connector: NewConnectorFeeder(session),
		Metering:  NewMeteringFeeder(session),
		Session:   session,
		EvInfo:    NewEvInfoFeeder(),
		Thermal:   ThermalFeeder{},
	}
}

// Fetch reads all sub-feeders concurrently. The first failing feeder fails
// the whole port.
func (p *Port) Fetch(ctx context.Context) (model.ChargePort, error) {
	port := model.ChargePort{ChargePortID: p.ID}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		port.Connector, err = p.Connector.Fetch(ctx)
		return wrap(err, "connector")
	})
	g.Go(func() (err error) {
		port.Metering, err = p.Metering.Fetch(ctx)
		return wrap(err, "metering")
	})
	g.Go(func() (err error) {
		port.Session, err = p.Session.Fetch(ctx)
		return wrap(err, "session")
	})
	g.Go(func() (err error) {
		port.EvInfo, err = p.EvInfo.Fetch(ctx)
		return wrap(err, "ev info")
	})
	g.Go(func() (err error) {
		port.ThermalInfo, err = p.Thermal.Fetch(ctx)
		return wrap(err, "thermal")
	})

	if err := g.Wait(); err != nil {
		return model.ChargePort{}, fmt.Errorf("charge port %d: %w", p.ID, err)
	}
	return port, nil
}

// OnSessionEnded registers fn for completed sessions of this port. fn runs
// on its own goroutine so it may block; WaitSessionListeners waits for it.
func (p *Port) OnSessionEnded(fn func(portID int, session model.ChargeSession)) {
	p.Session.OnEnded(func(s model.ChargeSession) {
		p.listeners.Go(func() { fn(p.ID, s) })
	})
}

// WaitSessionListeners blocks until every running session listener returned.
func (p *Port) WaitSessionListeners() {
	p.listeners.Wait()
}

func wrap(err error, what string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("fetch %s: %w", what, err)
}
