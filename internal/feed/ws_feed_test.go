package feed

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradecore/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func collectTicks(out *[]domain.Tick) TickHandler {
	return func(_ context.Context, tick domain.Tick) {
		*out = append(*out, tick)
	}
}

func TestHandleFrameParsesTrade(t *testing.T) {
	var ticks []domain.Tick
	f := NewWSFeed("wss://example", []string{"btcusdt"}, collectTicks(&ticks), testLogger())

	f.handleFrame(context.Background(), []byte(
		`{"e":"trade","s":"btcusdt","p":"50123.45","q":"0.25","t":42,"T":1756000000000,"m":true}`,
	))

	require.Len(t, ticks, 1)
	assert.Equal(t, "BTCUSDT", ticks[0].Symbol)
	assert.InDelta(t, 50123.45, ticks[0].Price, 1e-9)
	assert.InDelta(t, 0.25, ticks[0].Quantity, 1e-9)
	assert.Equal(t, "42", ticks[0].TradeID)
	assert.True(t, ticks[0].IsMaker)
	assert.Equal(t, time.UnixMilli(1756000000000), ticks[0].Timestamp)
}

func TestHandleFrameDropsMalformedInput(t *testing.T) {
	var ticks []domain.Tick
	f := NewWSFeed("wss://example", []string{"btcusdt"}, collectTicks(&ticks), testLogger())

	frames := [][]byte{
		[]byte(`not json`),
		[]byte(`{"e":"depthUpdate","s":"BTCUSDT"}`),
		[]byte(`{"e":"trade","s":"BTCUSDT","p":"oops","q":"1"}`),
		[]byte(`{"e":"trade","s":"BTCUSDT","p":"1","q":"oops"}`),
		[]byte(`{"e":"trade","s":"","p":"1","q":"1"}`),
	}
	for _, frame := range frames {
		f.handleFrame(context.Background(), frame)
	}

	assert.Empty(t, ticks)
}

type channelBus struct {
	ch chan []byte
}

func (b *channelBus) PublishTick(ctx context.Context, tick domain.Tick) error {
	payload, err := json.Marshal(tick)
	if err != nil {
		return err
	}
	return b.PublishEvent(ctx, domain.TicksChannel, payload)
}

func (b *channelBus) PublishEvent(_ context.Context, _ string, payload []byte) error {
	b.ch <- payload
	return nil
}

func (b *channelBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return b.ch, nil
}

func TestBusFeederForwardsTicks(t *testing.T) {
	bus := &channelBus{ch: make(chan []byte, 8)}

	got := make(chan domain.Tick, 8)
	feeder := NewBusFeeder(bus, func(_ context.Context, tick domain.Tick) {
		got <- tick
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- feeder.Run(ctx) }()

	require.NoError(t, bus.PublishTick(ctx, domain.Tick{
		Symbol: "ethusdt", Price: 2500, Quantity: 1, Timestamp: time.Now(),
	}))
	bus.ch <- []byte(`garbage`)

	select {
	case tick := <-got:
		assert.Equal(t, "ETHUSDT", tick.Symbol)
		assert.InDelta(t, 2500.0, tick.Price, 1e-9)
	case <-time.After(time.Second):
		t.Fatal("tick was not forwarded")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("feeder did not stop on cancel")
	}
}
