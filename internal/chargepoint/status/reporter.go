package status

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/w3cp/w3cp/internal/config"
	"github.com/w3cp/w3cp/model"
)

// Sender delivers messages to the backend.
type Sender interface {
	// Verified reports whether the backend accepted the charge point identity.
	Verified() bool
	Send(ctx context.Context, msg any) error
}

// Thresholds decide which changes between two snapshots are significant.
type Thresholds struct {
	EnergyDeltaKWh  float64
	PowerThresholdW float64
}

// Reporter sends the status to the backend when it changed significantly or
// when the maximum interval since the last transmission elapsed.
type Reporter struct {
	assembler   Assembler
	sender      Sender
	signer      *model.Signer
	thresholds  Thresholds
	maxInterval time.Duration
	logger      *zerolog.Logger
	now         func() time.Time

	mu           sync.Mutex
	lastObserved *model.ChargePointStatus
	lastSent     time.Time
}

// NewReporter sends status assembled by assembler through sender,
// signed with signer.
func NewReporter(
	cfg config.StatusConfig,
	assembler Assembler,
	sender Sender,
	signer *model.Signer,
	logger *zerolog.Logger,
) *Reporter {
	return &Reporter{
		assembler: assembler,
		sender:    sender,
		signer:    signer,
		thresholds: Thresholds{
			EnergyDeltaKWh:  cfg.EnergyDeltaKWh,
			PowerThresholdW: cfg.PowerThresholdW,
		},
		maxInterval: cfg.MaxInterval,
		logger:      logger,
		now:         time.Now,
	}
}

// Evaluate assembles a fresh snapshot and sends it if needed. It is a no-op
// until the connection is verified. Evaluations are serialized.
func (r *Reporter) Evaluate(ctx context.Context) error {
	if !r.sender.Verified() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.assembler.Assemble(ctx)
	if err != nil {
		return err
	}

	previous := r.lastObserved
	r.lastObserved = &current

	now := r.now()
	timeoutExceeded := r.lastSent.IsZero() || now.Sub(r.lastSent) > r.maxInterval
	significant := SignificantChange(previous, &current, r.thresholds)
	if !significant && !timeoutExceeded {
		return nil
	}

	msg := model.NewMessage(model.MessageTypeChargePointStatus, current)
	if r.signer != nil {
		if err := model.SignMessage(&msg, r.signer); err != nil {
			return fmt.Errorf("sign status: %w", err)
		}
	}

	if err := r.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send status: %w", err)
	}
	r.lastSent = now

	r.logger.Debug().
		Bool("significant_change", significant).
		Bool("timeout_exceeded", timeoutExceeded).
		Msg("status sent")

	return nil
}

// SignificantChange reports whether current differs from prev enough to be
// reported. A nil prev is always significant. Ports are matched by id.
func SignificantChange(prev, current *model.ChargePointStatus, th Thresholds) bool {
	if prev == nil {
		return true
	}
	if prev.ConnectionType != current.ConnectionType {
		return true
	}
	if !equalTime(prev.OnlineSince, current.OnlineSince) {
		return true
	}
	if len(prev.ChargePorts) != len(current.ChargePorts) {
		return true
	}

	for i := range current.ChargePorts {
		curr := &current.ChargePorts[i]
		old := prev.ChargePort(curr.ChargePortID)
		if old == nil || portChanged(old, curr, th) {
			return true
		}
	}
	return false
}

func portChanged(prev, curr *model.ChargePort, th Thresholds) bool {
	if connectorChanged(prev.Connector, curr.Connector) {
		return true
	}

	pm, cm := prev.Metering, curr.Metering
	if pm == nil || cm == nil {
		return (pm == nil) != (cm == nil)
	}

	if pm.EnergyImportKWh != nil && cm.EnergyImportKWh != nil &&
		math.Abs(*cm.EnergyImportKWh-*pm.EnergyImportKWh) >= th.EnergyDeltaKWh {
		return true
	}

	return charging(pm, th) != charging(cm, th)
}

func connectorChanged(prev, curr *model.Connector) bool {
	if prev == nil || curr == nil {
		return (prev == nil) != (curr == nil)
	}
	return !equalPtr(prev.Status, curr.Status) ||
		!equalPtr(prev.Iec61851State, curr.Iec61851State) ||
		!equalPtr(prev.RelayClosed, curr.RelayClosed) ||
		!equalPtr(prev.Locked, curr.Locked)
}

func charging(m *model.EnergyStatus, th Thresholds) bool {
	return m.ActivePowerImportW != nil && *m.ActivePowerImportW > th.PowerThresholdW
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
