package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no stats snapshot")

// Store persists usage snapshots.
type Store interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context) (Snapshot, error)
	Close() error
}

// Open returns the store for backend ("file" or "sqlite") rooted at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", "file":
		return NewFileStore(path)
	case "sqlite":
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown stats backend %q", backend)
	}
}

// Restore builds a Counter seeded with the last snapshot in store.
func Restore(ctx context.Context, store Store) (*Counter, error) {
	snap, err := store.Load(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		return NewCounter(Snapshot{}), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load stats snapshot: %w", err)
	}
	return NewCounter(snap), nil
}

// Run flushes counter to store every interval while it has changes, and once
// more when ctx is cancelled. It blocks until then.
func Run(ctx context.Context, counter *Counter, store Store, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			flush(context.Background(), counter, store, logger)
		case <-ctx.Done():
			flush(context.Background(), counter, store, logger)
			return
		}
	}
}

func flush(ctx context.Context, counter *Counter, store Store, logger *zap.Logger) {
	snap, dirty := counter.takeDirty()
	if !dirty {
		return
	}
	if err := store.Save(ctx, snap); err != nil {
		counter.markDirty()
		logger.Warn("Failed to flush stats", zap.Error(err))
		return
	}
	logger.Debug("Flushed stats",
		zap.Int64("created", snap.GamesCreated),
		zap.Int64("completed", snap.GamesCompleted),
		zap.Int64("active", snap.ActiveGames))
}
