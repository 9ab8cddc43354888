// Command server runs the stockroom inventory API.
//
// Configuration is read from a YAML file and STOCKROOM_* environment
// variables; see pkg/config. Common overrides:
//
//	STOCKROOM_PORT         - Listen port (default: 8080)
//	STOCKROOM_STORAGE      - Storage type: "memory", "postgres", or "redis" (default: "memory")
//	STOCKROOM_AUTH_TYPE    - Auth type: "none", "apikey", or "jwt" (default: "jwt")
//	STOCKROOM_JWT_SECRET   - Shared HMAC secret for bearer tokens
//	STOCKROOM_POSTGRES_DSN - PostgreSQL connection string
//	STOCKROOM_REDIS_ADDR   - Redis address
//	STOCKROOM_OTLP_ENDPOINT - OTLP/gRPC collector for trace export
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/rhuss/stockroom/pkg/auth"
	"github.com/rhuss/stockroom/pkg/auth/apikey"
	"github.com/rhuss/stockroom/pkg/auth/jwt"
	"github.com/rhuss/stockroom/pkg/auth/noop"
	"github.com/rhuss/stockroom/pkg/config"
	"github.com/rhuss/stockroom/pkg/debug"
	"github.com/rhuss/stockroom/pkg/inventory"
	"github.com/rhuss/stockroom/pkg/observability"
	"github.com/rhuss/stockroom/pkg/storage"
	"github.com/rhuss/stockroom/pkg/storage/breaker"
	"github.com/rhuss/stockroom/pkg/storage/memory"
	"github.com/rhuss/stockroom/pkg/storage/postgres"
	"github.com/rhuss/stockroom/pkg/storage/redis"
	transporthttp "github.com/rhuss/stockroom/pkg/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	debug.Init(debug.Options{
		Categories: cfg.Logging.Debug,
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
	})

	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SamplingRate: cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("trace flush failed", "error", err)
		}
	}()

	store, err := newStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	defer store.Close()

	svc, err := inventory.New(store, inventory.Config{
		OperationTimeout:  cfg.Inventory.OperationTimeout,
		LowStockThreshold: cfg.Inventory.LowStockThreshold,
	})
	if err != nil {
		return fmt.Errorf("creating inventory service: %w", err)
	}

	chain, err := newAuthChain(cfg.Auth)
	if err != nil {
		return fmt.Errorf("creating auth chain: %w", err)
	}

	srv := transporthttp.NewServer(svc,
		transporthttp.WithAddr(cfg.Server.Addr()),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithReadHeaderTimeout(cfg.Server.ReadHeaderTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithAuth(auth.Middleware(chain, auth.DefaultBypassEndpoints)),
		transporthttp.WithHealthChecker(store),
		transporthttp.WithTracerProvider(otel.GetTracerProvider()),
		transporthttp.WithLogger(slog.Default()),
	)

	slog.Info("stockroom configured",
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Type,
		"auth", cfg.Auth.Type,
		"tracing", cfg.Tracing.Enabled,
	)

	return srv.ListenAndServe()
}

// newStore builds the configured backend, guards remote backends with a
// circuit breaker, and records metrics for every call.
func newStore(ctx context.Context, cfg config.StorageConfig) (storage.ItemStore, error) {
	var backend storage.ItemStore

	switch cfg.Type {
	case "memory":
		backend = memory.New()
	case "postgres":
		pg, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Postgres.DSN,
			MaxConns:       cfg.Postgres.MaxConns,
			MinConns:       cfg.Postgres.MinConns,
			MigrateOnStart: cfg.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, err
		}
		backend = pg
	case "redis":
		rs, err := redis.New(ctx, redis.Config{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			PoolSize:  cfg.Redis.PoolSize,
		})
		if err != nil {
			return nil, err
		}
		backend = rs
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}

	if cfg.Type != "memory" && cfg.Breaker.Enabled {
		backend = breaker.Wrap(backend, breaker.Config{
			Name:             cfg.Type,
			FailureThreshold: cfg.Breaker.FailureThreshold,
			OpenTimeout:      cfg.Breaker.OpenTimeout,
		})
	}

	slog.Info("storage enabled", "type", cfg.Type, "breaker", cfg.Type != "memory" && cfg.Breaker.Enabled)
	return storage.WithMetrics(cfg.Type, backend), nil
}

// newAuthChain builds the authenticator chain for the configured auth type.
// With "none" every request runs as the anonymous user.
func newAuthChain(cfg config.AuthConfig) (*auth.AuthChain, error) {
	switch cfg.Type {
	case "none":
		slog.Warn("authentication disabled, all requests share the anonymous inventory")
		return &auth.AuthChain{
			Authenticators:  []auth.Authenticator{&noop.Authenticator{}},
			DefaultDecision: auth.Yes,
		}, nil

	case "apikey":
		entries := make([]apikey.RawKeyEntry, 0, len(cfg.APIKeys))
		for _, k := range cfg.APIKeys {
			entries = append(entries, apikey.RawKeyEntry{
				Key:      k.Key,
				Identity: auth.Identity{Subject: k.Subject},
			})
		}
		return &auth.AuthChain{
			Authenticators:  []auth.Authenticator{apikey.New(entries)},
			DefaultDecision: auth.No,
		}, nil

	case "jwt":
		return &auth.AuthChain{
			Authenticators: []auth.Authenticator{jwt.New(jwt.Config{
				Issuer:      cfg.JWT.Issuer,
				Audience:    cfg.JWT.Audience,
				Secret:      cfg.JWT.Secret,
				JWKSURL:     cfg.JWT.JWKSURL,
				UserClaim:   cfg.JWT.UserClaim,
				ScopesClaim: cfg.JWT.ScopesClaim,
				CacheTTL:    cfg.JWT.CacheTTL,
			})},
			DefaultDecision: auth.No,
		}, nil
	}

	return nil, fmt.Errorf("unknown auth type %q", cfg.Type)
}
