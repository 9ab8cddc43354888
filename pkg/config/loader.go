package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rhuss/stockroom/pkg/debug"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, STOCKROOM_CONFIG env, ./config.yaml, /etc/stockroom/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
		debug.Log("config", "loaded config file", "path", filePath)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. STOCKROOM_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/stockroom/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("STOCKROOM_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/stockroom/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
// Unknown keys are rejected so typos surface at startup.
func loadYAMLFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnvOverrides maps STOCKROOM_* environment variables to config
// fields. Malformed numeric or duration values are reported rather than
// silently ignored.
func applyEnvOverrides(cfg *Config) error {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	str("STOCKROOM_STORAGE", &cfg.Storage.Type)
	str("STOCKROOM_POSTGRES_DSN", &cfg.Storage.Postgres.DSN)
	str("STOCKROOM_REDIS_ADDR", &cfg.Storage.Redis.Addr)
	str("STOCKROOM_REDIS_PASSWORD", &cfg.Storage.Redis.Password)
	str("STOCKROOM_AUTH_TYPE", &cfg.Auth.Type)
	str("STOCKROOM_JWT_SECRET", &cfg.Auth.JWT.Secret)
	str("STOCKROOM_JWT_JWKS_URL", &cfg.Auth.JWT.JWKSURL)
	str("STOCKROOM_JWT_ISSUER", &cfg.Auth.JWT.Issuer)
	str("STOCKROOM_JWT_AUDIENCE", &cfg.Auth.JWT.Audience)
	str("STOCKROOM_JWT_USER_CLAIM", &cfg.Auth.JWT.UserClaim)
	str("STOCKROOM_OTLP_ENDPOINT", &cfg.Tracing.OTLPEndpoint)

	if v := os.Getenv("STOCKROOM_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STOCKROOM_PORT: %w", err)
		}
		cfg.Server.Port = port
	}

	if v := os.Getenv("STOCKROOM_OPERATION_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("STOCKROOM_OPERATION_TIMEOUT: %w", err)
		}
		cfg.Inventory.OperationTimeout = d
	}

	if v := os.Getenv("STOCKROOM_BREAKER_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STOCKROOM_BREAKER_ENABLED: %w", err)
		}
		cfg.Storage.Breaker.Enabled = enabled
	}

	if v := os.Getenv("STOCKROOM_TRACING_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STOCKROOM_TRACING_ENABLED: %w", err)
		}
		cfg.Tracing.Enabled = enabled
	}

	// STOCKROOM_API_KEYS: JSON array of API key configs.
	if v := os.Getenv("STOCKROOM_API_KEYS"); v != "" {
		keys, err := parseAPIKeysJSON(v)
		if err != nil {
			return fmt.Errorf("STOCKROOM_API_KEYS: %w", err)
		}
		if len(keys) > 0 {
			cfg.Auth.APIKeys = keys
		}
	}

	return nil
}

// parseAPIKeysJSON parses a JSON array of API key configurations.
func parseAPIKeysJSON(jsonStr string) ([]APIKeyConfig, error) {
	var keys []APIKeyConfig
	if err := json.Unmarshal([]byte(jsonStr), &keys); err != nil {
		return nil, fmt.Errorf("parsing API keys JSON: %w", err)
	}
	return keys, nil
}

// secretRef pairs a _file field with the value field it fills.
type secretRef struct {
	name  string
	file  string
	value *string
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	refs := []secretRef{
		{"storage.postgres.dsn_file", cfg.Storage.Postgres.DSNFile, &cfg.Storage.Postgres.DSN},
		{"storage.redis.password_file", cfg.Storage.Redis.PasswordFile, &cfg.Storage.Redis.Password},
		{"auth.jwt.secret_file", cfg.Auth.JWT.SecretFile, &cfg.Auth.JWT.Secret},
	}
	for i := range cfg.Auth.APIKeys {
		refs = append(refs, secretRef{fmt.Sprintf("auth.api_keys[%d].key_file", i), cfg.Auth.APIKeys[i].KeyFile, &cfg.Auth.APIKeys[i].Key})
	}

	for _, ref := range refs {
		if ref.file == "" || *ref.value != "" {
			continue
		}
		val, err := readSecretFile(ref.file)
		if err != nil {
			return fmt.Errorf("%s: %w", ref.name, err)
		}
		*ref.value = val
		slog.Debug("resolved secret file", "field", ref.name)
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
