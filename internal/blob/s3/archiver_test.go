package s3blob

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradecore/internal/domain"
)

type capturingWriter struct {
	path        string
	contentType string
	data        []byte
}

func (w *capturingWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.path = path
	w.contentType = contentType
	w.data = buf
	return nil
}

func (w *capturingWriter) PutMultipart(_ context.Context, path string, data io.Reader, _ int64) error {
	return w.Put(context.Background(), path, data, "")
}

func TestArchiveClosedPosition(t *testing.T) {
	writer := &capturingWriter{}
	archiver := NewArchiver(writer)

	opened := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	closed := opened.Add(90 * time.Second)
	archiver.clock = func() time.Time { return closed }

	err := archiver.ArchiveClosedPosition(context.Background(), domain.PositionLifecycleState{
		ID:                    "pos-1",
		SourceTag:             "scalper",
		Instrument:            "BTCUSDT",
		OpenedAt:              opened,
		EntryPrice:            100,
		Quantity:              2,
		MaxFavorableExcursion: 8,
		MaxAdverseExcursion:   -3,
	}, "exit.max_holding_time", 103)
	require.NoError(t, err)

	assert.Equal(t, "positions/closed/2026/08/23/pos-1.json", writer.path)
	assert.Equal(t, "application/json", writer.contentType)

	var rec closedPositionRecord
	require.NoError(t, json.Unmarshal(writer.data, &rec))
	assert.Equal(t, "pos-1", rec.ID)
	assert.InDelta(t, 6.0, rec.RealizedPnL, 1e-9)
	assert.Equal(t, int64(90_000), rec.HoldingMS)
	assert.Equal(t, "exit.max_holding_time", rec.ExitReason)
}
