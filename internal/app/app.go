// Package app provides the top-level application lifecycle for tradecore. It
// wires the decision core (dispatch, admission, expectancy, lifecycle) to the
// configured infrastructure (feed, stats store, bus, archive) and runs
// everything under one errgroup.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/tradecore/internal/config"
	"github.com/alanyoungcy/tradecore/internal/controller"
	"github.com/alanyoungcy/tradecore/internal/dispatch"
	"github.com/alanyoungcy/tradecore/internal/domain"
	"github.com/alanyoungcy/tradecore/internal/expectancy"
	"github.com/alanyoungcy/tradecore/internal/feed"
	"github.com/alanyoungcy/tradecore/internal/lifecycle"
	"github.com/alanyoungcy/tradecore/internal/ratelimit"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, assembles the
// decision core, starts the feed and controller goroutines, and blocks until
// the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	// Core assembly.
	registry := dispatch.NewRegistry(a.logger)
	estimator := expectancy.NewEstimator(deps.StatsReader, expectancy.Config{
		FeeSlippagePenalty: a.cfg.Expectancy.FeeSlippagePenalty,
		DecayHalfLifeDays:  a.cfg.Expectancy.DecayHalfLifeDays,
		ConfidenceLowNEff:  a.cfg.Expectancy.ConfidenceLowNEff,
		ConfidenceHighNEff: a.cfg.Expectancy.ConfidenceHighNEff,
		ShrinkageStrength:  a.cfg.Expectancy.ShrinkageStrength,
		DefaultStopLossPct: a.cfg.Expectancy.DefaultStopLossPct,
		DefaultTargetRR:    a.cfg.Expectancy.DefaultTargetRR,
	}, a.logger)
	limits := ratelimit.AdmissionConfig{
		GlobalPerMinute:     a.cfg.RateLimits.GlobalPerMinute,
		OrdersPerMinute:     a.cfg.RateLimits.OrdersPerMinute,
		AccountPerMinute:    a.cfg.RateLimits.AccountPerMinute,
		MarketDataPerMinute: a.cfg.RateLimits.MarketDataPerMinute,
	}
	var admission domain.AdmissionController = ratelimit.NewAdmission(limits, a.logger)
	if deps.SharedBudget != nil {
		admission = ratelimit.NewSharedAdmission(
			ratelimit.NewAdmission(limits, a.logger), deps.SharedBudget, limits, a.logger,
		)
	}
	positions := lifecycle.NewEngine(a.logger)
	exits := lifecycle.NewExitOrchestrator()

	// No venue adapter ships with this build, so live mode refuses to start
	// rather than silently papering.
	if strings.ToLower(a.cfg.Mode) == "live" {
		return fmt.Errorf("app: live mode requires a venue adapter, run paper mode")
	}
	placer := NewPaperPlacer()

	ctrl := controller.New(
		controller.Config{
			SourceTag:         a.cfg.Controller.SourceTag,
			MinExpectedReturn: a.cfg.Controller.MinExpectedReturn,
			StatsLookback:     a.cfg.Controller.StatsLookback,
			SignalBuffer:      a.cfg.Controller.SignalBuffer,
		},
		registry,
		estimator,
		admission,
		positions,
		exits,
		placer,
		deps.Recorder,
		deps.Archiver,
		deps.Bus,
		a.logger,
	)

	onTick := a.tickHandler(ctrl, placer, deps.Bus)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ctrl.Run(gctx)
	})

	switch strings.ToLower(a.cfg.Feed.Source) {
	case "bus":
		feeder := feed.NewBusFeeder(deps.Bus, onTick, a.logger)
		g.Go(func() error {
			return feeder.Run(gctx)
		})
	default:
		wsFeed := feed.NewWSFeed(a.cfg.Feed.WsURL, a.cfg.Feed.Symbols, onTick, a.logger)
		g.Go(func() error {
			return wsFeed.Run(gctx)
		})
	}

	err = g.Wait()
	if err != nil && err != context.Canceled {
		return fmt.Errorf("app: %w", err)
	}
	return nil
}

// tickHandler builds the per-tick fan-out: mark prices for the paper venue,
// the controller (dispatch + lifecycle), and optionally the Redis bus for
// downstream processes.
func (a *App) tickHandler(ctrl *controller.Controller, placer *PaperPlacer, bus domain.TickBus) feed.TickHandler {
	republish := a.cfg.Feed.RepublishTicks && bus != nil &&
		strings.ToLower(a.cfg.Feed.Source) != "bus"

	return func(ctx context.Context, tick domain.Tick) {
		placer.ObserveTick(tick)
		ctrl.HandleTick(ctx, tick)
		if republish {
			if err := bus.PublishTick(ctx, tick); err != nil {
				a.logger.Debug("tick republish failed", slog.String("symbol", tick.Symbol))
			}
		}
	}
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
