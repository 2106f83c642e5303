package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/tradecore/internal/domain"
)

// BusFeeder subscribes to the ticks bus channel and forwards each tick to
// the handler. It lets out-of-process producers (or another tradecore
// instance running the WebSocket feed) drive this instance's dispatch.
type BusFeeder struct {
	bus    domain.TickBus
	onTick TickHandler
	logger *slog.Logger
}

// NewBusFeeder creates a BusFeeder.
func NewBusFeeder(bus domain.TickBus, onTick TickHandler, logger *slog.Logger) *BusFeeder {
	return &BusFeeder{
		bus:    bus,
		onTick: onTick,
		logger: logger.With(slog.String("component", "bus_feeder")),
	}
}

// Run subscribes to the ticks channel and forwards messages until ctx is
// cancelled. Malformed payloads are dropped with a debug log.
func (f *BusFeeder) Run(ctx context.Context) error {
	ch, err := f.bus.Subscribe(ctx, domain.TicksChannel)
	if err != nil {
		return err
	}
	f.logger.Info("bus feeder started")
	defer f.logger.Info("bus feeder stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-ch:
			if !ok {
				return fmt.Errorf("feed: ticks subscription: %w", domain.ErrBusClosed)
			}

			var tick domain.Tick
			if err := json.Unmarshal(data, &tick); err != nil {
				f.logger.Debug("bus feeder unparseable tick", slog.Int("payload_len", len(data)))
				continue
			}
			if tick.Symbol == "" {
				continue
			}
			tick.Symbol = domain.NormalizeSymbol(tick.Symbol)

			if f.onTick != nil {
				f.onTick(ctx, tick)
			}
		}
	}
}
