// Package feed moves market ticks from the outside world into the core:
// a WebSocket feed for direct exchange connections and a bus feeder for
// ticks relayed through Redis.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/tradecore/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// TickHandler is called for each parsed trade tick.
type TickHandler func(ctx context.Context, tick domain.Tick)

// tradeFrame is the exchange trade message shape. Prices and quantities
// arrive as strings; timestamps are epoch milliseconds.
type tradeFrame struct {
	Event    string `json:"e"`
	Symbol   string `json:"s"`
	Price    string `json:"p"`
	Quantity string `json:"q"`
	TradeID  int64  `json:"t"`
	TradeMS  int64  `json:"T"`
	IsMaker  bool   `json:"m"`
}

// subscribeCommand is the subscription request sent after connecting.
type subscribeCommand struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

// WSFeed connects to an exchange trade-stream WebSocket, subscribes to the
// configured symbols, and invokes the handler for each trade. It reconnects
// with exponential backoff on disconnect.
type WSFeed struct {
	wsURL   string
	symbols []string
	onTick  TickHandler
	logger  *slog.Logger
}

// NewWSFeed creates a feed for the given symbols.
func NewWSFeed(wsURL string, symbols []string, onTick TickHandler, logger *slog.Logger) *WSFeed {
	normalized := make([]string, 0, len(symbols))
	for _, s := range symbols {
		normalized = append(normalized, domain.NormalizeSymbol(s))
	}
	return &WSFeed{
		wsURL:   wsURL,
		symbols: normalized,
		onTick:  onTick,
		logger:  logger.With(slog.String("component", "ws_feed")),
	}
}

// Run connects, subscribes, and processes trades until ctx is cancelled.
func (f *WSFeed) Run(ctx context.Context) error {
	if len(f.symbols) == 0 {
		f.logger.Info("no symbols to subscribe, exiting")
		return nil
	}

	delay := reconnectDelay
	for {
		err := f.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("ws feed disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("delay", delay),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// runConnection dials, subscribes, and reads until the connection drops or
// the context is cancelled.
func (f *WSFeed) runConnection(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return fmt.Errorf("feed: connect: %w", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	if err := f.subscribe(conn); err != nil {
		return err
	}
	f.logger.Info("ws feed subscribed", slog.Int("symbols", len(f.symbols)))

	// Close the connection when the context is cancelled so the blocking
	// read below returns.
	readDone := make(chan struct{})
	defer close(readDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-readDone:
		}
	}()

	go f.pingLoop(ctx, conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("feed: read: %w", domain.ErrWSDisconnect)
		}
		f.handleFrame(ctx, data)
	}
}

func (f *WSFeed) subscribe(conn *websocket.Conn) error {
	params := make([]string, 0, len(f.symbols))
	for _, s := range f.symbols {
		params = append(params, s+"@trade")
	}
	cmd := subscribeCommand{Method: "SUBSCRIBE", Params: params, ID: 1}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("feed: subscribe: %w", err)
	}
	return nil
}

func (f *WSFeed) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleFrame parses a trade frame and forwards it to the handler. Frames
// that are not trades, or that fail to parse, are dropped with a debug log
// so a malformed message never stalls the stream.
func (f *WSFeed) handleFrame(ctx context.Context, data []byte) {
	var frame tradeFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		f.logger.Debug("ws feed unparseable frame", slog.Int("payload_len", len(data)))
		return
	}
	if frame.Event != "trade" || frame.Symbol == "" {
		return
	}

	price, err := strconv.ParseFloat(frame.Price, 64)
	if err != nil {
		f.logger.Debug("ws feed bad price", slog.String("symbol", frame.Symbol), slog.String("price", frame.Price))
		return
	}
	qty, err := strconv.ParseFloat(frame.Quantity, 64)
	if err != nil {
		f.logger.Debug("ws feed bad quantity", slog.String("symbol", frame.Symbol), slog.String("quantity", frame.Quantity))
		return
	}

	ts := time.Now()
	if frame.TradeMS > 0 {
		ts = time.UnixMilli(frame.TradeMS)
	}

	if f.onTick != nil {
		f.onTick(ctx, domain.Tick{
			Symbol:    domain.NormalizeSymbol(frame.Symbol),
			Price:     price,
			Quantity:  qty,
			Timestamp: ts,
			TradeID:   strconv.FormatInt(frame.TradeID, 10),
			IsMaker:   frame.IsMaker,
		})
	}
}
