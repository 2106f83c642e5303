// Package controller wires the decision core together: ticks flow into the
// dispatch registry and lifecycle engine, worker signals are gated through
// expectancy and rate admission, and closed positions are recorded and
// archived.
package controller

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/alanyoungcy/tradecore/internal/dispatch"
	"github.com/alanyoungcy/tradecore/internal/domain"
	"github.com/alanyoungcy/tradecore/internal/expectancy"
	"github.com/alanyoungcy/tradecore/internal/lifecycle"
)

// OrderPlacer submits orders to the venue. The controller only needs entry
// and close; protective orders are the venue adapter's concern and are
// reported back via the returned ids.
type OrderPlacer interface {
	// PlaceEntry submits an entry order and returns the fill price and the
	// protective stop order id, if one was attached.
	PlaceEntry(ctx context.Context, signal domain.Signal) (fillPrice float64, stopOrderID string, err error)

	// ClosePosition flattens the instrument and returns the exit price.
	ClosePosition(ctx context.Context, instrument string, quantity float64) (exitPrice float64, err error)
}

// OutcomeRecorder persists closed-trade outcomes for the expectancy
// estimator's historical windows.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, snap domain.PositionLifecycleState, reason string, exitPrice float64, closedAt time.Time) error
}

// Config holds the controller's tunables.
type Config struct {
	// SourceTag labels this deployment's trades in the stats windows.
	SourceTag string

	// MinExpectedReturn is the entry gate: signals whose expectancy falls
	// below it are skipped.
	MinExpectedReturn float64

	// StatsLookback is the number of recent outcomes loaded per expectancy
	// evaluation.
	StatsLookback int

	// SignalBuffer is the capacity of the signal intake channel.
	SignalBuffer int
}

// Controller runs the decision loop. Ticks arrive via HandleTick (from any
// feed), signals via Signals(), and external exit demands via RaiseExit.
type Controller struct {
	cfg Config

	registry  *dispatch.Registry
	estimator *expectancy.Estimator
	admission domain.AdmissionController
	positions *lifecycle.Engine
	exits     *lifecycle.ExitOrchestrator

	orders   OrderPlacer
	recorder OutcomeRecorder
	archiver domain.PositionArchiver
	bus      domain.TickBus

	signals chan domain.Signal
	logger  *slog.Logger
}

// New creates a Controller. The recorder, archiver, and bus may be nil;
// missing sinks degrade to log-only behavior so paper sessions run without
// infrastructure.
func New(
	cfg Config,
	registry *dispatch.Registry,
	estimator *expectancy.Estimator,
	admission domain.AdmissionController,
	positions *lifecycle.Engine,
	exits *lifecycle.ExitOrchestrator,
	orders OrderPlacer,
	recorder OutcomeRecorder,
	archiver domain.PositionArchiver,
	bus domain.TickBus,
	logger *slog.Logger,
) *Controller {
	if cfg.StatsLookback < 1 {
		cfg.StatsLookback = 200
	}
	if cfg.SignalBuffer < 1 {
		cfg.SignalBuffer = 256
	}
	return &Controller{
		cfg:       cfg,
		registry:  registry,
		estimator: estimator,
		admission: admission,
		positions: positions,
		exits:     exits,
		orders:    orders,
		recorder:  recorder,
		archiver:  archiver,
		bus:       bus,
		signals:   make(chan domain.Signal, cfg.SignalBuffer),
		logger:    logger.With(slog.String("component", "controller")),
	}
}

// Signals returns the channel strategy workers emit signals on.
func (c *Controller) Signals() chan<- domain.Signal {
	return c.signals
}

// Run drains the signal channel until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("controller started",
		slog.String("source_tag", c.cfg.SourceTag),
		slog.Float64("min_expected_return", c.cfg.MinExpectedReturn),
	)
	defer c.logger.Info("controller stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case signal := <-c.signals:
			c.handleSignal(ctx, signal)
		}
	}
}

// HandleTick routes one tick: workers registered for the symbol receive it,
// and the open position on that instrument (if any) gets its excursion and
// holding-time checks.
func (c *Controller) HandleTick(ctx context.Context, tick domain.Tick) {
	c.registry.Dispatch(tick)

	trigger, due := c.positions.OnTick(tick.Symbol, tick.Price, tick.Timestamp)
	if due {
		c.closePosition(ctx, tick.Symbol, trigger)
	}
}

// RaiseExit closes the instrument's open position for an externally raised
// trigger (risk degrade, signal reversal, emergency close). It reports false
// when no position was open.
func (c *Controller) RaiseExit(ctx context.Context, instrument string, trigger domain.ExitTrigger) bool {
	_, ok := c.positions.Snapshot(instrument)
	if !ok {
		return false
	}
	c.closePosition(ctx, instrument, trigger)
	return true
}

// handleSignal gates one entry signal through expectancy and rate admission
// and, when everything passes, opens the position.
func (c *Controller) handleSignal(ctx context.Context, signal domain.Signal) {
	if signal.Side == domain.SignalHold || signal.Side == "" {
		return
	}

	if signal.Side == domain.SignalSell {
		// A sell against an open long is a reversal exit, not a new entry.
		if c.RaiseExit(ctx, signal.Symbol, domain.ExitSignalReversal) {
			return
		}
	}

	if _, open := c.positions.Snapshot(signal.Symbol); open {
		c.logger.Debug("signal skipped, position already open",
			slog.String("symbol", signal.Symbol),
			slog.String("worker_id", signal.WorkerID),
		)
		return
	}

	snap, err := c.estimator.EvaluateHistorical(ctx, c.cfg.SourceTag, signal.Symbol, signal.At, c.cfg.StatsLookback)
	if err != nil {
		c.logger.Error("expectancy evaluation failed",
			slog.String("symbol", signal.Symbol),
			slog.String("error", err.Error()),
		)
		return
	}
	if snap.ExpectedReturn < c.cfg.MinExpectedReturn {
		c.logger.Debug("signal skipped, expectancy below gate",
			slog.String("symbol", signal.Symbol),
			slog.Float64("expected_return", snap.ExpectedReturn),
			slog.String("confidence", snap.Probability.Confidence.String()),
		)
		return
	}

	now := time.Now()
	if !c.admission.ReserveGlobal(now) {
		c.logger.Warn("signal denied by global rate budget", slog.String("symbol", signal.Symbol))
		return
	}
	if !c.admission.ReserveEndpoint(domain.EndpointOrders, now) {
		c.logger.Warn("signal denied by orders rate budget", slog.String("symbol", signal.Symbol))
		return
	}

	fillPrice, stopOrderID, err := c.orders.PlaceEntry(ctx, signal)
	if err != nil {
		c.logger.Error("entry order failed",
			slog.String("symbol", signal.Symbol),
			slog.String("error", err.Error()),
		)
		return
	}

	state := c.positions.OnEntryFilled(lifecycle.Entry{
		SourceTag:       c.cfg.SourceTag,
		Instrument:      signal.Symbol,
		EntryPrice:      fillPrice,
		Quantity:        signal.Quantity,
		ExpectedHolding: snap.ExpectedHolding,
		FilledAt:        now,
	})
	if stopOrderID != "" {
		c.positions.SetStopLossOrderID(signal.Symbol, stopOrderID)
	}

	c.logger.Info("entry opened",
		slog.String("symbol", signal.Symbol),
		slog.String("position_id", state.ID),
		slog.Float64("fill_price", fillPrice),
		slog.Float64("expected_return", snap.ExpectedReturn),
		slog.Bool("stop_attached", stopOrderID != ""),
	)
}

// positionClosedEvent is the JSON payload published on the positions channel.
type positionClosedEvent struct {
	PositionID  string  `json:"position_id"`
	SourceTag   string  `json:"source_tag"`
	Instrument  string  `json:"instrument"`
	ExitReason  string  `json:"exit_reason"`
	ExitPrice   float64 `json:"exit_price"`
	RealizedPnL float64 `json:"realized_pnl"`
	HoldingMS   int64   `json:"holding_ms"`
}

// closePosition flattens the instrument, resolves the exit reason, and fans
// the outcome out to the recorder, archiver, and bus. Sink failures are
// logged but do not undo the close: the position is already flat at the
// venue.
func (c *Controller) closePosition(ctx context.Context, instrument string, trigger domain.ExitTrigger) {
	snap, ok := c.positions.Snapshot(instrument)
	if !ok {
		return
	}

	reason := c.exits.Decide(trigger)

	exitPrice, err := c.orders.ClosePosition(ctx, instrument, snap.Quantity)
	if err != nil {
		c.logger.Error("close order failed",
			slog.String("symbol", instrument),
			slog.String("position_id", snap.ID),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
		return
	}

	final, ok := c.positions.OnPositionClosed(instrument)
	if !ok {
		return
	}
	closedAt := time.Now()
	realized := (exitPrice - final.EntryPrice) * final.Quantity

	c.logger.Info("position exited",
		slog.String("symbol", instrument),
		slog.String("position_id", final.ID),
		slog.String("reason", reason),
		slog.Float64("exit_price", exitPrice),
		slog.Float64("realized_pnl", realized),
	)

	if c.recorder != nil {
		if err := c.recorder.RecordOutcome(ctx, final, reason, exitPrice, closedAt); err != nil {
			c.logger.Error("record outcome failed",
				slog.String("position_id", final.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if c.archiver != nil {
		if err := c.archiver.ArchiveClosedPosition(ctx, final, reason, exitPrice); err != nil {
			c.logger.Error("archive closed position failed",
				slog.String("position_id", final.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if c.bus != nil {
		event := positionClosedEvent{
			PositionID:  final.ID,
			SourceTag:   final.SourceTag,
			Instrument:  final.Instrument,
			ExitReason:  reason,
			ExitPrice:   exitPrice,
			RealizedPnL: realized,
			HoldingMS:   closedAt.Sub(final.OpenedAt).Milliseconds(),
		}
		payload, err := json.Marshal(event)
		if err == nil {
			err = c.bus.PublishEvent(ctx, domain.PositionsChannel, payload)
		}
		if err != nil {
			c.logger.Error("publish position event failed",
				slog.String("position_id", final.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}
