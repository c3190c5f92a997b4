// Package config manages environment variables.
//
// It reads variables from the process environment (and a `.env` file when
// present), layers them over built-in defaults, loads them into structured
// Go types and validates them so the charge point fails fast on bad or
// missing configuration.
//
// Responsibilities:
//   - Load defaults, then environment variables prefixed with W3CP_.
//   - Map env vars into a structured Go config.
//   - Validate required values and cross-field rules.
//   - Leave optional infrastructure (database, redis, auth) nil when absent.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	// Side-effect import: loads a `.env` file into the process environment
	// before any variable is read.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

/*
	Env vars are read using the prefix W3CP_. The prefix is removed, the
	rest is lowercased and a double underscore marks nesting:

	  W3CP_SERVER__PORT             -> server.port
	  W3CP_CHARGE_POINT__CP_ID      -> charge_point.cp_id
	  W3CP_OBSERVABILITY__LOGGING__LEVEL -> observability.logging.level

	A single underscore stays part of the key name. List values such as
	W3CP_CHARGE_POINT__CHARGE_PORT_IDS=1,2 are split on commas and spaces.
*/

// EnvPrefix is the prefix every configuration variable carries.
const EnvPrefix = "W3CP_"

// ServiceName tags logs and APM data.
const ServiceName = "w3cp-cp"

// Config is the root configuration object for the charge point.
//
// Database, Redis and Auth are pointers because they are optional: the
// runtime works without persistence, without a job queue and without API
// authentication.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	ChargePoint   ChargePointConfig    `koanf:"charge_point" validate:"required"`
	Backend       BackendConfig        `koanf:"backend"`
	Status        StatusConfig         `koanf:"status"`
	Simulator     SimulatorConfig      `koanf:"simulator"`
	Database      *DatabaseConfig      `koanf:"database"`
	Redis         *RedisConfig         `koanf:"redis"`
	Auth          *AuthConfig          `koanf:"auth"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime. Timeouts are
// whole seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required,gt=0"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required,gt=0"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required,gt=0"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
	// RateLimit is the sustained requests per second allowed per client IP.
	// Zero disables rate limiting.
	RateLimit float64 `koanf:"rate_limit" validate:"gte=0"`
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
type DatabaseConfig struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time"`
}

// DSN builds the postgres connection URL.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		d.User,
		url.QueryEscape(d.Password),
		net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		d.Name,
		d.SSLMode,
	)
}

// RedisConfig contains Redis connection details. Address is "host:port".
type RedisConfig struct {
	Address  string `koanf:"address" validate:"required"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db" validate:"gte=0"`
}

// AuthConfig protects the simulator API with a static token. Clients send
// it as "Authorization: Bearer <token>".
type AuthConfig struct {
	APIToken string `koanf:"api_token" validate:"required,min=16"`
}

// LoadConfig loads defaults and environment variables, unmarshals them into
// Config, validates the result and fills in observability defaults.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("could not load config defaults: %w", err)
	}

	err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	mainConfig := &Config{}
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	if err := mainConfig.Validate(); err != nil {
		return nil, err
	}

	return mainConfig, nil
}

// Validate fills in observability defaults, runs tag validation over the
// whole tree and then the custom rules of each block.
func (c *Config) Validate() error {
	if c.Observability == nil {
		c.Observability = DefaultObservabilityConfig()
	}
	c.Observability.ServiceName = ServiceName
	c.Observability.Environment = c.Primary.Env

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if err := c.ChargePoint.Validate(); err != nil {
		return fmt.Errorf("invalid charge_point config: %w", err)
	}
	if err := c.Backend.Validate(); err != nil {
		return fmt.Errorf("invalid backend config: %w", err)
	}
	if err := c.Status.Validate(); err != nil {
		return fmt.Errorf("invalid status config: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}

	return nil
}

// IsLocal reports whether the charge point runs on a developer machine.
func (c *Config) IsLocal() bool {
	return c.Primary.Env == "local"
}

// listKeys are read from the environment as comma or space separated lists.
var listKeys = map[string]bool{
	"charge_point.charge_port_ids":       true,
	"server.cors_allowed_origins":        true,
	"observability.health_checks.checks": true,
}

func envValue(s, v string) (string, any) {
	key := envKey(s)
	if listKeys[key] {
		return key, splitList(v)
	}
	return key, v
}

func splitList(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}
