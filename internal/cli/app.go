package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"

	"github.com/andywolf/prompttoproduct/internal/classify"
	"github.com/andywolf/prompttoproduct/internal/config"
	"github.com/andywolf/prompttoproduct/internal/logging"
	"github.com/andywolf/prompttoproduct/internal/memory"
	"github.com/andywolf/prompttoproduct/internal/metrics"
	"github.com/andywolf/prompttoproduct/internal/observability"
	"github.com/andywolf/prompttoproduct/internal/routing"
	"github.com/andywolf/prompttoproduct/internal/secrets"
	"github.com/andywolf/prompttoproduct/internal/stages"
	"github.com/andywolf/prompttoproduct/internal/version"
	"github.com/andywolf/prompttoproduct/internal/workflow"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg      *config.Config
	store    *memory.Store
	router   *routing.Router
	engine   *workflow.Engine
	logger   *log.Logger
	sink     logging.Logger
	tracer   observability.Tracer
	registry *prometheus.Registry
}

// loadConfig reads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newApp wires config into memory, router, classifier, executors and
// engine. Diagnostics go to stderr so stdout stays clean for results.
func newApp(ctx context.Context, cfg *config.Config, stderr io.Writer) (*app, error) {
	logOut := io.Discard
	if viper.GetBool("verbose") {
		logOut = stderr
	}
	logger := log.New(logOut, "[p2p] ", log.LstdFlags)

	if err := resolveRedisPassword(ctx, cfg); err != nil {
		return nil, err
	}

	store, err := memory.Open(ctx, cfg.Memory)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory: %w", err)
	}

	sink, err := logging.New(ctx, cfg.Logging, stderr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	tracer, err := observability.New(ctx, cfg.Telemetry, version.Short(), stderr)
	if err != nil {
		_ = sink.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)
	collector.SetMemorySize(store.Len())

	router := routing.NewRouter(&cfg.Routing)
	classifier := classify.New(store,
		classify.WithStageFunc(router.Entry),
		classify.WithLogger(logger),
	)

	engine, err := workflow.New(cfg.WorkflowConfig(), router, classifier, stages.Executors(cfg.Output),
		workflow.WithLogger(logger),
		workflow.WithCloudLogger(sink),
		workflow.WithTracer(tracer),
		workflow.WithMetrics(collector),
		workflow.WithMemory(store),
	)
	if err != nil {
		_ = tracer.Stop(ctx)
		_ = sink.Close()
		_ = store.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		store:    store,
		router:   router,
		engine:   engine,
		logger:   logger,
		sink:     sink,
		tracer:   tracer,
		registry: registry,
	}, nil
}

// resolveRedisPassword fills memory.redis.password from its secret
// reference. Secret Manager is only contacted for non-env references.
func resolveRedisPassword(ctx context.Context, cfg *config.Config) error {
	ref := cfg.Memory.Redis.PasswordSecret
	if cfg.Memory.Backend != memory.BackendRedis || ref == "" || cfg.Memory.Redis.Password != "" {
		return nil
	}

	var fetcher secrets.Fetcher
	if !secrets.IsEnvRef(ref) {
		sm, err := secrets.NewSecretManager(ctx, cfg.Logging.GCPProject)
		if err != nil {
			return err
		}
		defer func() { _ = sm.Close() }()
		fetcher = sm
	}

	password, err := secrets.Resolve(ctx, fetcher, ref)
	if err != nil {
		return fmt.Errorf("failed to resolve redis password: %w", err)
	}
	cfg.Memory.Redis.Password = password
	return nil
}

// Close flushes telemetry and releases the memory backend.
func (a *app) Close(ctx context.Context) {
	if err := a.tracer.Stop(ctx); err != nil {
		a.logger.Printf("Warning: failed to stop tracer: %v", err)
	}
	if err := a.sink.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to flush logs: %v\n", err)
	}
	_ = a.sink.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Printf("Warning: failed to close memory: %v", err)
	}
}
