package domain

import (
	"context"
	"io"
)

// BlobWriter uploads data to object storage. Used by the closed-position
// archiver to push lifecycle snapshots to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// PositionArchiver persists closed-position snapshots to cold storage for
// later statistics and backtest replay.
type PositionArchiver interface {
	ArchiveClosedPosition(ctx context.Context, snap PositionLifecycleState, reason string, exitPrice float64) error
}
