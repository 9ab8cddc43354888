// Package config provides unified configuration for the stockroom server.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (STOCKROOM_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import (
	"strconv"
	"time"
)

// Config holds all configuration for the stockroom server.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	Inventory InventoryConfig `yaml:"inventory"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port              int           `yaml:"port"`                // default: 8080
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"` // default: 10s
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`    // default: 30s
	MaxBodySize       int64         `yaml:"max_body_size"`       // default: 1 MB
}

// StorageConfig selects and configures the item store.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "memory", "postgres", or "redis", default: "memory"
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Breaker  BreakerConfig  `yaml:"breaker"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MinConns       int32  `yaml:"min_conns"`        // default: 2
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: true
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr         string `yaml:"addr"` // default: "localhost:6379"
	Password     string `yaml:"password"`
	PasswordFile string `yaml:"password_file"` // _file variant for password
	DB           int    `yaml:"db"`
	KeyPrefix    string `yaml:"key_prefix"`
	PoolSize     int    `yaml:"pool_size"` // default: 10
}

// BreakerConfig controls the circuit breaker placed in front of the store.
type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`           // default: true, ignored for memory
	FailureThreshold uint32        `yaml:"failure_threshold"` // default: 5
	OpenTimeout      time.Duration `yaml:"open_timeout"`      // default: 30s
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type    string         `yaml:"type"`     // "none", "apikey", or "jwt", default: "jwt"
	APIKeys []APIKeyConfig `yaml:"api_keys"` // API key entries for type=apikey
	JWT     JWTConfig      `yaml:"jwt"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key     string `yaml:"key" json:"key"`
	KeyFile string `yaml:"key_file" json:"key_file"` // _file variant for key
	Subject string `yaml:"subject" json:"subject"`
}

// JWTConfig holds bearer token verification settings.
type JWTConfig struct {
	Secret      string        `yaml:"secret"`
	SecretFile  string        `yaml:"secret_file"` // _file variant for secret
	JWKSURL     string        `yaml:"jwks_url"`
	Issuer      string        `yaml:"issuer"`
	Audience    string        `yaml:"audience"`
	UserClaim   string        `yaml:"user_claim"`   // default: "sub"
	ScopesClaim string        `yaml:"scopes_claim"` // default: "scope"
	CacheTTL    time.Duration `yaml:"cache_ttl"`    // default: 1h
}

// InventoryConfig holds settings for the inventory operations.
type InventoryConfig struct {
	OperationTimeout  time.Duration `yaml:"operation_timeout"`   // default: 5s
	LowStockThreshold int           `yaml:"low_stock_threshold"` // default: 10
}

// LoggingConfig holds log output settings. STOCKROOM_DEBUG,
// STOCKROOM_LOG_LEVEL, and STOCKROOM_LOG_FORMAT take precedence.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // default: "INFO"
	Format string `yaml:"format"` // "text" or "json", default: "text"
	Debug  string `yaml:"debug"`  // comma-separated debug categories
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`  // default: "stockroom"
	OTLPEndpoint string  `yaml:"otlp_endpoint"` // host:port, spans are not exported when empty
	SamplingRate float64 `yaml:"sampling_rate"` // default: 1.0
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:              8080,
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   30 * time.Second,
			MaxBodySize:       1 << 20,
		},
		Storage: StorageConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				MaxConns:       25,
				MinConns:       2,
				MigrateOnStart: true,
			},
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 10,
			},
			Breaker: BreakerConfig{
				Enabled:          true,
				FailureThreshold: 5,
				OpenTimeout:      30 * time.Second,
			},
		},
		Auth: AuthConfig{
			Type: "jwt",
			JWT: JWTConfig{
				UserClaim:   "sub",
				ScopesClaim: "scope",
				CacheTTL:    time.Hour,
			},
		},
		Inventory: InventoryConfig{
			OperationTimeout:  5 * time.Second,
			LowStockThreshold: 10,
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
		Tracing: TracingConfig{
			ServiceName:  "stockroom",
			SamplingRate: 1.0,
		},
	}
}

// Addr returns the listen address for the configured port.
func (s ServerConfig) Addr() string {
	return ":" + strconv.Itoa(s.Port)
}
