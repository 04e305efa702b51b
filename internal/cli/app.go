package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xiaot623/gogo/memproxy/internal/adapter/llm"
	"github.com/xiaot623/gogo/memproxy/internal/config"
	"github.com/xiaot623/gogo/memproxy/internal/metrics"
	"github.com/xiaot623/gogo/memproxy/internal/repository"
	"github.com/xiaot623/gogo/memproxy/internal/service"
	"github.com/xiaot623/gogo/memproxy/policy"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error
	store    repository.Store
	metrics  *metrics.Metrics
	svc      *service.Service
	sweeper  *service.RetentionSweeper
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger, closeLog := config.SetupLogger(cfg.LogFile, config.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger)

	store, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("initialize store: %w", err)
	}

	policyEngine, err := policy.LoadPolicyFile(ctx, cfg.PolicyFile)
	if err != nil {
		_ = store.Close()
		_ = closeLog()
		return nil, fmt.Errorf("initialize policy engine: %w", err)
	}

	m := metrics.New()
	gateway := llm.NewGateway(cfg.InferenceMode, cfg.InferenceBaseURL, cfg.InferenceAPIKey, cfg.InferenceTimeout, logger)

	svc := service.New(store, gateway, cfg, policyEngine,
		service.WithMetrics(m),
		service.WithLogger(logger),
	)
	sweeper := service.NewRetentionSweeper(store, cfg.RetentionAge, cfg.SweepInterval, cfg.SweepTimeout, m, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		closeLog: closeLog,
		store:    store,
		metrics:  m,
		svc:      svc,
		sweeper:  sweeper,
	}, nil
}

func (a *app) close() error {
	return errors.Join(a.store.Close(), a.closeLog())
}
