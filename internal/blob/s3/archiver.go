package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/tradecore/internal/domain"
)

// closedPositionRecord is the JSON shape archived for each closed position.
// The record is self-contained so archives can be replayed without the
// primary store.
type closedPositionRecord struct {
	ID                    string    `json:"id"`
	SourceTag             string    `json:"source_tag"`
	Instrument            string    `json:"instrument"`
	OpenedAt              time.Time `json:"opened_at"`
	ClosedAt              time.Time `json:"closed_at"`
	EntryPrice            float64   `json:"entry_price"`
	ExitPrice             float64   `json:"exit_price"`
	Quantity              float64   `json:"quantity"`
	RealizedPnL           float64   `json:"realized_pnl"`
	MaxFavorableExcursion float64   `json:"max_favorable_excursion"`
	MaxAdverseExcursion   float64   `json:"max_adverse_excursion"`
	HoldingMS             int64     `json:"holding_ms"`
	ExitReason            string    `json:"exit_reason"`
}

// Archiver implements domain.PositionArchiver by serializing each closed
// position to JSON and uploading it to object storage, partitioned by close
// date:
//
//	positions/closed/2026/08/23/<position-id>.json
type Archiver struct {
	writer domain.BlobWriter
	clock  func() time.Time
}

// NewArchiver creates an Archiver over the given blob writer.
func NewArchiver(writer domain.BlobWriter) *Archiver {
	return &Archiver{
		writer: writer,
		clock:  time.Now,
	}
}

// ArchiveClosedPosition uploads the final lifecycle snapshot of a closed
// position.
func (a *Archiver) ArchiveClosedPosition(ctx context.Context, snap domain.PositionLifecycleState, reason string, exitPrice float64) error {
	closedAt := a.clock()

	rec := closedPositionRecord{
		ID:                    snap.ID,
		SourceTag:             snap.SourceTag,
		Instrument:            snap.Instrument,
		OpenedAt:              snap.OpenedAt,
		ClosedAt:              closedAt,
		EntryPrice:            snap.EntryPrice,
		ExitPrice:             exitPrice,
		Quantity:              snap.Quantity,
		RealizedPnL:           (exitPrice - snap.EntryPrice) * snap.Quantity,
		MaxFavorableExcursion: snap.MaxFavorableExcursion,
		MaxAdverseExcursion:   snap.MaxAdverseExcursion,
		HoldingMS:             closedAt.Sub(snap.OpenedAt).Milliseconds(),
		ExitReason:            reason,
	}

	buf, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("s3blob: marshal closed position %s: %w", snap.ID, err)
	}

	path := closedPositionPath(snap.ID, closedAt)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/json"); err != nil {
		return fmt.Errorf("s3blob: archive closed position %s: %w", snap.ID, err)
	}
	return nil
}

// closedPositionPath builds the object key for a closed position, partitioned
// by close date.
func closedPositionPath(id string, closedAt time.Time) string {
	return fmt.Sprintf("positions/closed/%s/%s.json", closedAt.UTC().Format("2006/01/02"), id)
}

// Compile-time interface check.
var _ domain.PositionArchiver = (*Archiver)(nil)
