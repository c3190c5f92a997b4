// Package chargepoint assembles the charge point firmware: charge ports,
// their simulators, the system feeders, the status reporter and the backend
// connection.
package chargepoint

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/w3cp/w3cp/internal/chargepoint/chargeport"
	"github.com/w3cp/w3cp/internal/chargepoint/connection"
	"github.com/w3cp/w3cp/internal/chargepoint/feeder"
	"github.com/w3cp/w3cp/internal/chargepoint/simulator"
	"github.com/w3cp/w3cp/internal/chargepoint/status"
	"github.com/w3cp/w3cp/internal/chargepoint/system"
	"github.com/w3cp/w3cp/internal/config"
	"github.com/w3cp/w3cp/model"
)

var (
	ErrUnknownPort       = errors.New("unknown charge port")
	ErrSimulatorDisabled = errors.New("simulator disabled")
)

// Runtime owns every long running part of the charge point.
type Runtime struct {
	cfg    *config.Config
	logger *zerolog.Logger
	signer *model.Signer

	ports      []*chargeport.Port
	simulators map[int]*simulator.Simulator

	connectionType *system.ConnectionTypeFeeder
	onlineSince    *system.OnlineSinceFeeder
	orchestrator   *status.Orchestrator
	reporter       *status.Reporter
	client         *connection.Client

	scheduler *cron.Cron
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewRuntime loads the signing key and builds every part of the charge
// point from cfg. Nothing runs until Start.
func NewRuntime(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*Runtime, error) {
	signer, err := LoadSigner(cfg.ChargePoint, logger)
	if err != nil {
		return nil, err
	}

	r := &Runtime{
		cfg:        cfg,
		logger:     logger,
		signer:     signer,
		simulators: make(map[int]*simulator.Simulator),
		scheduler: cron.New(cron.WithChain(
			cron.Recover(cron.PrintfLogger(logger)),
			cron.SkipIfStillRunning(cron.PrintfLogger(logger)),
		)),
	}

	portFeeders := make([]feeder.Feeder[model.ChargePort], 0, len(cfg.ChargePoint.ChargePortIDs))
	for _, id := range cfg.ChargePoint.ChargePortIDs {
		port := chargeport.NewPort(id)
		r.ports = append(r.ports, port)
		portFeeders = append(portFeeders, port)

		if cfg.Simulator.Enabled {
			r.simulators[id] = simulator.New(port, logger)
		}
	}

	probe := system.NewHostProbe(logger)
	r.connectionType = system.NewConnectionTypeFeeder(ctx, probe, logger)
	r.onlineSince = system.NewOnlineSinceFeeder()
	r.orchestrator = status.NewOrchestrator(
		system.NewInfoFeeder(cfg.ChargePoint.FirmwareVersion, probe, system.NewThermalFeeder(), logger),
		r.connectionType,
		r.onlineSince,
		portFeeders,
	)

	if cfg.Backend.Enabled() {
		r.client = connection.NewClient(cfg.Backend, identity(cfg.ChargePoint, signer), logger)
		r.reporter = status.NewReporter(cfg.Status, r.orchestrator, r.client, signer, logger)

		r.client.OnOpened(func(ctx context.Context) {
			r.connectionType.Refresh(ctx, "connection opened")
			r.onlineSince.Reset()
		})
		r.client.OnVerified(func(ctx context.Context) {
			r.evaluateStatus(ctx)
		})
	}

	return r, nil
}

func identity(cfg config.ChargePointConfig, signer *model.Signer) connection.Identity {
	id := connection.Identity{
		CPID:   cfg.CPID,
		Type:   model.IdentityType(cfg.IdentityType),
		Signer: signer,
	}
	if cfg.Web3DID != "" {
		id.Web3 = &model.Web3Identity{Method: model.Web3IdentityMethod(cfg.Web3Method), DID: cfg.Web3DID}
	}
	if cfg.X509CertificatePEM != "" {
		id.X509 = &model.X509Identity{CertificatePEM: cfg.X509CertificatePEM}
	}
	return id
}

// LoadSigner decodes the configured private key, or generates an ephemeral
// one when none is configured.
func LoadSigner(cfg config.ChargePointConfig, logger *zerolog.Logger) (*model.Signer, error) {
	keyType := model.KeyType(cfg.KeyType)

	if cfg.PrivateKey == "" {
		key, err := model.GenerateKey(keyType)
		if err != nil {
			return nil, fmt.Errorf("generate %s key: %w", keyType, err)
		}
		logger.Warn().Str("key_type", string(keyType)).Msg("no private key configured, using an ephemeral key")
		return model.NewSigner(key)
	}

	key, err := model.PrivateKey{
		Type:     keyType,
		Encoding: model.KeyEncodingBase64URL,
		Value:    cfg.PrivateKey,
	}.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	return model.NewSigner(key)
}

// Start schedules the simulator ticks and status evaluation and starts the
// backend connection. Intervals below one second run every second.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)

	for _, sim := range r.simulators {
		r.scheduler.Schedule(cron.Every(r.cfg.Simulator.TickInterval), cron.FuncJob(sim.Tick))
	}

	if r.client != nil {
		r.scheduler.Schedule(cron.Every(r.cfg.Status.EvaluationInterval), cron.FuncJob(func() {
			r.evaluateStatus(ctx)
		}))

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.client.Run(ctx); err != nil {
				r.logger.Error().Err(err).Msg("backend connection stopped")
			}
		}()
	} else {
		r.logger.Info().Msg("no backend configured, status reporting disabled")
	}

	r.scheduler.Start()
	r.logger.Info().
		Str("cp_id", r.cfg.ChargePoint.CPID).
		Ints("charge_port_ids", r.cfg.ChargePoint.ChargePortIDs).
		Bool("simulator", r.cfg.Simulator.Enabled).
		Msg("charge point runtime started")
	return nil
}

// Stop cancels the connection and waits for running jobs and session
// listeners, bounded by ctx.
func (r *Runtime) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}
	cronDone := r.scheduler.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		r.wg.Wait()
		for _, p := range r.ports {
			p.WaitSessionListeners()
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop charge point runtime: %w", ctx.Err())
	}
}

func (r *Runtime) evaluateStatus(ctx context.Context) {
	if err := r.reporter.Evaluate(ctx); err != nil && ctx.Err() == nil {
		r.logger.Error().Err(err).Msg("status evaluation failed")
	}
}

// Status assembles the current status without sending it.
func (r *Runtime) Status(ctx context.Context) (model.ChargePointStatus, error) {
	return r.orchestrator.Assemble(ctx)
}

// Ports returns the ports in configuration order.
func (r *Runtime) Ports() []*chargeport.Port {
	return r.ports
}

// DefaultPortID is the first configured port.
func (r *Runtime) DefaultPortID() int {
	return r.ports[0].ID
}

// Port returns the port with the given id, or ErrUnknownPort.
func (r *Runtime) Port(id int) (*chargeport.Port, error) {
	for _, p := range r.ports {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownPort, id)
}

// Simulator returns the simulator of a port. It fails with
// ErrSimulatorDisabled when the simulator is switched off.
func (r *Runtime) Simulator(id int) (*simulator.Simulator, error) {
	if !r.cfg.Simulator.Enabled {
		return nil, ErrSimulatorDisabled
	}
	sim, ok := r.simulators[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPort, id)
	}
	return sim, nil
}

// Connection is nil when no backend is configured.
func (r *Runtime) Connection() *connection.Client {
	return r.client
}

// PublicKey is the key the charge point signs with.
func (r *Runtime) PublicKey() (model.PublicKey, error) {
	return r.signer.PublicKey()
}

// OnSessionEnded registers fn for completed sessions on every port.
func (r *Runtime) OnSessionEnded(fn func(portID int, session model.ChargeSession)) {
	for _, p := range r.ports {
		p.OnSessionEnded(fn)
	}
}
