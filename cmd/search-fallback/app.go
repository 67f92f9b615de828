package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/WessleyAI/schedule-fallback/engine/extract"
	"github.com/WessleyAI/schedule-fallback/engine/fallback"
	"github.com/WessleyAI/schedule-fallback/engine/render"
	"github.com/WessleyAI/schedule-fallback/engine/search"
	"github.com/WessleyAI/schedule-fallback/engine/staging"
	"github.com/WessleyAI/schedule-fallback/engine/trust"
	"github.com/WessleyAI/schedule-fallback/pkg/metrics"
	"github.com/WessleyAI/schedule-fallback/pkg/repo"
)

// runner is what the surfaces need from the engine.
type runner interface {
	Run(ctx context.Context, req fallback.Request) (*fallback.Output, error)
}

// stager persists finished outputs. Optional.
type stager interface {
	Stage(ctx context.Context, out *fallback.Output) error
	Events(ctx context.Context, seriesID string, season int) ([]staging.EventRecord, error)
}

// app owns the engine and everything that has to be closed with it.
type app struct {
	engine  runner
	stager  stager
	closers []func() error
	logger  *slog.Logger
}

// newApp wires search, rendering, extraction and the orchestrator from cfg.
// A disabled renderer is not an error here: every run then fails with a
// configuration error, which the surfaces report.
func newApp(ctx context.Context, cfg Config, met *metrics.Engine, logger *slog.Logger) (*app, error) {
	a := &app{logger: logger}

	trustFile, err := trust.LoadFile(cfg.TrustOverrides)
	if err != nil {
		return nil, err
	}
	hints := trustFile.Hints()

	provider, err := search.NewProvider(cfg.SearchProvider, cfg.SearchCredentials)
	if err != nil {
		return nil, err
	}
	client := search.NewClient(provider, cfg.SearchOptions, met, logger)

	var pool *render.Pool
	if cfg.Render.Enabled {
		launcher, err := render.NewChromeLauncher(cfg.Render, logger)
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		pool, err = render.NewPool(cfg.Render, launcher, met, logger)
		if err != nil {
			launcher.Close()
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
	} else {
		logger.Warn("rendering disabled, runs will fail with a configuration error")
	}

	cache, err := render.OpenPageCache(cfg.PageCache, cfg.PageCacheTTL, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if cache != nil {
		a.closers = append(a.closers, cache.Close)
	}

	fetcher := render.NewFetcher(pool,
		render.WithCache(cache),
		render.WithMetrics(met),
		render.WithLogger(logger),
	)
	x := extract.New(fetcher, hints, logger)

	a.engine = fallback.New(client, x,
		fallback.WithTrust(trustFile.ModelFor),
		fallback.WithHints(hints),
		fallback.WithWorkers(pool.Concurrency()),
		fallback.WithMetrics(met),
		fallback.WithLogger(logger),
		fallback.WithProgress(func(s fallback.State, detail string) {
			logger.Debug("progress", "state", s.String(), "detail", detail)
		}),
	)

	if cfg.Neo4jURL != "" {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("neo4j driver: %w", err)
		}
		if err := driver.VerifyConnectivity(ctx); err != nil {
			driver.Close(ctx)
			a.Close()
			return nil, fmt.Errorf("neo4j connect: %w", err)
		}
		a.closers = append(a.closers, func() error { return driver.Close(context.Background()) })
		a.stager = staging.New(repo.DriverSessions(driver), logger)
		logger.Info("staging enabled", "neo4j", cfg.Neo4jURL)
	}

	logger.Info("engine ready",
		"provider", provider.Name(),
		"render", cfg.Render.Enabled,
		"sessions", pool.Concurrency(),
		"page_cache", cfg.PageCache)
	return a, nil
}

// runAndStage runs req and stages a successful draft when staging is on.
// A staging failure is logged, not returned: the output is still valid.
func (a *app) runAndStage(ctx context.Context, req fallback.Request) (*fallback.Output, error) {
	out, err := a.engine.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	if a.stager != nil {
		if err := a.stager.Stage(ctx, out); err != nil {
			a.logger.Error("staging failed", "run_id", out.RunID, "err", err)
		}
	}
	return out, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
