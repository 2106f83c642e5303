package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/tradecore/internal/domain"
)

// ClosedTrade is the outcome row recorded when a position closes.
type ClosedTrade struct {
	PositionID  string
	SourceTag   string
	Instrument  string
	OpenedAt    time.Time
	ClosedAt    time.Time
	EntryPrice  float64
	ExitPrice   float64
	Quantity    float64
	RealizedPnL float64
	Holding     time.Duration
	ExitReason  string
}

// StatsStore reads and writes trade outcomes in the closed_trades table. It
// implements domain.TradeStatsReader; rows come back most recent first.
type StatsStore struct {
	pool *pgxpool.Pool
}

// NewStatsStore creates a StatsStore over the given pool.
func NewStatsStore(pool *pgxpool.Pool) *StatsStore {
	return &StatsStore{pool: pool}
}

// InsertClosedTrade records a closed position outcome.
func (s *StatsStore) InsertClosedTrade(ctx context.Context, trade ClosedTrade) error {
	const query = `
		INSERT INTO closed_trades (
			position_id, source_tag, instrument, opened_at, closed_at,
			entry_price, exit_price, quantity, realized_pnl, holding_ms, exit_reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.pool.Exec(ctx, query,
		trade.PositionID,
		trade.SourceTag,
		domain.NormalizeSymbol(trade.Instrument),
		trade.OpenedAt,
		trade.ClosedAt,
		trade.EntryPrice,
		trade.ExitPrice,
		trade.Quantity,
		trade.RealizedPnL,
		trade.Holding.Milliseconds(),
		trade.ExitReason,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert closed trade %s: %w", trade.PositionID, err)
	}
	return nil
}

// RecordOutcome persists a closed position's final lifecycle state as a
// closed trade, making it visible to future expectancy evaluations.
func (s *StatsStore) RecordOutcome(ctx context.Context, snap domain.PositionLifecycleState, reason string, exitPrice float64, closedAt time.Time) error {
	return s.InsertClosedTrade(ctx, ClosedTrade{
		PositionID:  snap.ID,
		SourceTag:   snap.SourceTag,
		Instrument:  snap.Instrument,
		OpenedAt:    snap.OpenedAt,
		ClosedAt:    closedAt,
		EntryPrice:  snap.EntryPrice,
		ExitPrice:   exitPrice,
		Quantity:    snap.Quantity,
		RealizedPnL: (exitPrice - snap.EntryPrice) * snap.Quantity,
		Holding:     closedAt.Sub(snap.OpenedAt),
		ExitReason:  reason,
	})
}

// LoadLocalStats implements domain.TradeStatsReader for one (tag, instrument)
// pair. An instrument with no outcomes yields an empty window, not an error.
func (s *StatsStore) LoadLocalStats(ctx context.Context, sourceTag, instrument string, lookback int) (domain.TradeStatsWindow, error) {
	const query = `
		SELECT
			EXTRACT(EPOCH FROM (NOW() - closed_at)) / 86400.0,
			realized_pnl,
			holding_ms
		FROM closed_trades
		WHERE source_tag = $1 AND instrument = $2
		ORDER BY closed_at DESC
		LIMIT $3`

	rows, err := s.pool.Query(ctx, query, sourceTag, domain.NormalizeSymbol(instrument), normalizeLookback(lookback))
	if err != nil {
		return domain.TradeStatsWindow{}, fmt.Errorf("postgres: query local stats %s/%s: %w: %w", sourceTag, instrument, domain.ErrStatsSource, err)
	}
	defer rows.Close()

	return scanWindow(rows)
}

// LoadGlobalStats implements domain.TradeStatsReader across all instruments
// of one source tag.
func (s *StatsStore) LoadGlobalStats(ctx context.Context, sourceTag string, lookback int) (domain.TradeStatsWindow, error) {
	const query = `
		SELECT
			EXTRACT(EPOCH FROM (NOW() - closed_at)) / 86400.0,
			realized_pnl,
			holding_ms
		FROM closed_trades
		WHERE source_tag = $1
		ORDER BY closed_at DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, sourceTag, normalizeLookback(lookback))
	if err != nil {
		return domain.TradeStatsWindow{}, fmt.Errorf("postgres: query global stats %s: %w: %w", sourceTag, domain.ErrStatsSource, err)
	}
	defer rows.Close()

	return scanWindow(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanWindow(rows rowScanner) (domain.TradeStatsWindow, error) {
	var window domain.TradeStatsWindow
	for rows.Next() {
		var (
			ageDays   float64
			pnl       float64
			holdingMS int64
		)
		if err := rows.Scan(&ageDays, &pnl, &holdingMS); err != nil {
			return domain.TradeStatsWindow{}, fmt.Errorf("postgres: scan stats row: %w", err)
		}
		window.Samples = append(window.Samples, domain.TradeStatsSample{
			AgeDays:         ageDays,
			RealizedPnL:     pnl,
			HoldingDuration: time.Duration(holdingMS) * time.Millisecond,
		})
	}
	if err := rows.Err(); err != nil {
		return domain.TradeStatsWindow{}, fmt.Errorf("postgres: iterate stats rows: %w", err)
	}
	return window, nil
}

func normalizeLookback(lookback int) int {
	if lookback < 1 {
		return 1
	}
	return lookback
}

// Compile-time interface check.
var _ domain.TradeStatsReader = (*StatsStore)(nil)
