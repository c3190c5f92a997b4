package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ChargePointConfig identifies this charge point towards the backend and
// lists the charge ports it drives.
type ChargePointConfig struct {
	CPID         string `koanf:"cp_id" validate:"required"`
	IdentityType string `koanf:"identity_type" validate:"required,oneof=publicKey x509Certificate web3"`
	// ChargePortIDs are the ids of the physical ports, in reporting order.
	ChargePortIDs []int `koanf:"charge_port_ids" validate:"required,min=1,dive,gt=0"`

	// PrivateKey is a base64url PKCS#8 key. When empty an ephemeral key of
	// KeyType is generated at startup.
	PrivateKey string `koanf:"private_key"`
	KeyType    string `koanf:"key_type" validate:"required,oneof=ed25519 ecP256"`

	FirmwareVersion string `koanf:"firmware_version" validate:"required"`

	// Web3Method and Web3DID are required when IdentityType is web3.
	Web3Method string `koanf:"web3_method" validate:"omitempty,oneof=ewc kilt polkadot"`
	Web3DID    string `koanf:"web3_did"`

	// X509CertificatePEM is reported in identity discovery when set.
	X509CertificatePEM string `koanf:"x509_certificate_pem"`
}

// Validate checks the rules the struct tags cannot express.
func (c *ChargePointConfig) Validate() error {
	seen := make(map[int]bool, len(c.ChargePortIDs))
	for _, id := range c.ChargePortIDs {
		if seen[id] {
			return fmt.Errorf("duplicate charge port id %d", id)
		}
		seen[id] = true
	}

	if c.IdentityType == "web3" && (c.Web3Method == "" || c.Web3DID == "") {
		return errors.New("web3_method and web3_did are required for web3 identities")
	}

	return nil
}

// BackendConfig points the charge point at its W3CP backend. An empty URL
// runs the charge point offline: feeders and the simulator work but no
// status is reported.
type BackendConfig struct {
	URL string `koanf:"url" validate:"omitempty,url"`

	HandshakeTimeout time.Duration `koanf:"handshake_timeout" validate:"gte=0"`
	WriteTimeout     time.Duration `koanf:"write_timeout" validate:"gte=0"`
	PingInterval     time.Duration `koanf:"ping_interval" validate:"gte=0"`

	// ReconnectInitial and ReconnectMax bound the exponential backoff
	// between connection attempts.
	ReconnectInitial time.Duration `koanf:"reconnect_initial" validate:"gte=0"`
	ReconnectMax     time.Duration `koanf:"reconnect_max" validate:"gte=0"`
}

// Enabled reports whether a backend is configured.
func (c *BackendConfig) Enabled() bool {
	return c.URL != ""
}

// Validate checks the backend URL scheme and the reconnect bounds. An
// empty URL is valid and disables the backend.
func (c *BackendConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}

	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("url scheme must be ws or wss, got %q", u.Scheme)
	}

	if c.ReconnectMax < c.ReconnectInitial {
		return errors.New("reconnect_max must not be smaller than reconnect_initial")
	}

	return nil
}

// StatusConfig tunes when status reports are sent.
type StatusConfig struct {
	EvaluationInterval time.Duration `koanf:"evaluation_interval" validate:"gt=0"`
	MaxInterval        time.Duration `koanf:"max_interval" validate:"gt=0"`
	EnergyDeltaKWh     float64       `koanf:"energy_delta_kwh" validate:"gt=0"`
	PowerThresholdW    float64       `koanf:"power_threshold_w" validate:"gte=0"`
}

// Validate requires MaxInterval to be at least EvaluationInterval.
func (c *StatusConfig) Validate() error {
	if c.MaxInterval < c.EvaluationInterval {
		return errors.New("max_interval must not be smaller than evaluation_interval")
	}
	return nil
}

// SimulatorConfig controls the built-in hardware simulator.
type SimulatorConfig struct {
	Enabled      bool          `koanf:"enabled"`
	TickInterval time.Duration `koanf:"tick_interval" validate:"gt=0"`
}

// defaults is the base layer every environment variable overrides.
func defaults() map[string]any {
	obs := DefaultObservabilityConfig()

	return map[string]any{
		"primary.env": "development",

		"server.port":          "8080",
		"server.read_timeout":  30,
		"server.write_timeout": 30,
		"server.idle_timeout":  60,
		"server.rate_limit":    0.0,

		"charge_point.identity_type":    "publicKey",
		"charge_point.charge_port_ids":  []int{1},
		"charge_point.key_type":         "ed25519",
		"charge_point.firmware_version": "0.1",

		"backend.handshake_timeout": 10 * time.Second,
		"backend.write_timeout":     10 * time.Second,
		"backend.ping_interval":     30 * time.Second,
		"backend.reconnect_initial": time.Second,
		"backend.reconnect_max":     time.Minute,

		"status.evaluation_interval": time.Second,
		"status.max_interval":        300 * time.Second,
		"status.energy_delta_kwh":    0.1,
		"status.power_threshold_w":   50.0,

		"simulator.enabled":       true,
		"simulator.tick_interval": time.Second,

		"observability.logging.level":                         obs.Logging.Level,
		"observability.logging.format":                        obs.Logging.Format,
		"observability.logging.slow_query_threshold":          obs.Logging.SlowQueryThreshold,
		"observability.new_relic.app_log_forwarding_enabled":  obs.NewRelic.AppLogForwardingEnabled,
		"observability.new_relic.distributed_tracing_enabled": obs.NewRelic.DistributedTracingEnabled,
		"observability.health_checks.enabled":                 obs.HealthChecks.Enabled,
		"observability.health_checks.timeout":                 obs.HealthChecks.Timeout,
		"observability.health_checks.checks":                  obs.HealthChecks.Checks,
	}
}
