// Package connection keeps the charge point connected to its W3CP backend
// over a WebSocket and answers the identity handshake.
package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/w3cp/w3cp/internal/config"
	"github.com/w3cp/w3cp/model"
)

var (
	// ErrNotConnected is returned by Send while no connection is open.
	ErrNotConnected = errors.New("not connected to backend")
	// ErrClosedByBackend ends a session the backend rejected or terminated.
	ErrClosedByBackend = errors.New("connection closed by backend")
)

// Identity is what the charge point proves and reports about itself.
type Identity struct {
	CPID   string
	Type   model.IdentityType
	Web3   *model.Web3Identity
	X509   *model.X509Identity
	Signer *model.Signer
}

// Client maintains the backend connection. Run dials, answers challenges
// and reconnects with exponential backoff; Send may be called from any
// goroutine.
type Client struct {
	cfg      config.BackendConfig
	identity Identity
	logger   *zerolog.Logger
	dialer   *websocket.Dialer
	now      func() time.Time

	writeMu sync.Mutex
	connMu  sync.RWMutex
	conn    *websocket.Conn

	verified atomic.Bool

	listenerMu sync.Mutex
	onOpened   []func(context.Context)
	onVerified []func(context.Context)
}

// NewClient returns a client that connects once Run is called.
func NewClient(cfg config.BackendConfig, identity Identity, logger *zerolog.Logger) *Client {
	return &Client{
		cfg:      cfg,
		identity: identity,
		logger:   logger,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
			Proxy:            websocket.DefaultDialer.Proxy,
		},
		now: time.Now,
	}
}

// OnOpened registers fn to run after every successful dial.
func (c *Client) OnOpened(fn func(context.Context)) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()

	c.onOpened = append(c.onOpened, fn)
}

// OnVerified registers fn to run whenever the backend accepts the identity.
func (c *Client) OnVerified(fn func(context.Context)) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()

	c.onVerified = append(c.onVerified, fn)
}

// Verified reports whether the current connection passed the handshake.
func (c *Client) Verified() bool {
	return c.verified.Load()
}

// Connected reports whether a connection is open.
func (c *Client) Connected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()

	return c.conn != nil
}

// Send writes msg as a JSON text frame. Writes are serialized.
func (c *Client) Send(ctx context.Context, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := c.writeDeadline()
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

func (c *Client) writeDeadline() time.Time {
	if c.cfg.WriteTimeout <= 0 {
		return time.Time{}
	}
	return c.now().Add(c.cfg.WriteTimeout)
}

// Run keeps the connection up until ctx is cancelled. The backoff restarts
// after every session that got verified.
func (c *Client) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.ReconnectInitial
	b.MaxInterval = c.cfg.ReconnectMax
	b.Reset()

	for {
		verified, err := c.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if verified {
			b.Reset()
		}

		wait := b.NextBackOff()
		c.logger.Warn().Err(err).Dur("retry_in", wait).Str("url", c.cfg.URL).Msg("backend connection lost")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// session runs one connection until it fails or ctx ends. It reports
// whether the connection got verified.
func (c *Client) session(ctx context.Context) (bool, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return false, fmt.Errorf("dial backend: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	c.verified.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		c.verified.Store(false)
		c.connMu.Lock()
		c.conn = nil
		c.connMu.Unlock()
		conn.Close()
		wg.Wait()
	}()

	// Unblocks ReadMessage on shutdown.
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		conn.Close()
	}()

	if c.cfg.PingInterval > 0 {
		c.keepAlive(ctx, conn, &wg)
	}

	c.logger.Info().Str("url", c.cfg.URL).Msg("connected to backend")
	for _, fn := range c.listeners(&c.onOpened) {
		fn(ctx)
	}

	var wasVerified bool
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return wasVerified, fmt.Errorf("read message: %w", err)
		}
		c.extendReadDeadline(conn)

		if err := c.handle(ctx, data); err != nil {
			return wasVerified || c.Verified(), err
		}
		wasVerified = wasVerified || c.Verified()
	}
}

func (c *Client) keepAlive(ctx context.Context, conn *websocket.Conn, wg *sync.WaitGroup) {
	c.extendReadDeadline(conn)
	conn.SetPongHandler(func(string) error {
		c.extendReadDeadline(conn)
		return nil
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(c.cfg.PingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.writeMu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, c.now().Add(c.cfg.PingInterval))
				c.writeMu.Unlock()
				if err != nil {
					c.logger.Debug().Err(err).Msg("ping failed")
					return
				}
			}
		}
	}()
}

func (c *Client) extendReadDeadline(conn *websocket.Conn) {
	if c.cfg.PingInterval <= 0 {
		return
	}
	_ = conn.SetReadDeadline(c.now().Add(2 * c.cfg.PingInterval))
}

func (c *Client) listeners(list *[]func(context.Context)) []func(context.Context) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()

	return slices.Clone(*list)
}
