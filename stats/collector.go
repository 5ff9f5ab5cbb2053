package stats

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Collector receives game lifecycle notifications. Calls are fire-and-forget:
// implementations must not block the caller and report failures only through
// their own logging.
type Collector interface {
	AddGame(key string)
	RemoveGame(key string)
	CompleteGame(key string)
}

// Snapshot is the aggregate usage state written to a Store.
type Snapshot struct {
	GamesCreated   int64     `json:"games_created"`
	GamesCompleted int64     `json:"games_completed"`
	GamesRemoved   int64     `json:"games_removed"`
	ActiveGames    int64     `json:"active_games"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Counter is an in-memory Collector.
type Counter struct {
	mu    sync.Mutex
	snap  Snapshot
	dirty bool
	now   func() time.Time
}

// NewCounter returns a Counter starting from base, typically the last
// snapshot loaded from a Store. Active games never survive a restart, so the
// active gauge is reset.
func NewCounter(base Snapshot) *Counter {
	base.ActiveGames = 0
	return &Counter{snap: base, now: time.Now}
}

func (c *Counter) AddGame(string) {
	c.update(func(s *Snapshot) {
		s.GamesCreated++
		s.ActiveGames++
	})
}

func (c *Counter) RemoveGame(string) {
	c.update(func(s *Snapshot) {
		s.GamesRemoved++
		if s.ActiveGames > 0 {
			s.ActiveGames--
		}
	})
}

func (c *Counter) CompleteGame(string) {
	c.update(func(s *Snapshot) {
		s.GamesCompleted++
	})
}

// Snapshot returns the current totals.
func (c *Counter) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

func (c *Counter) update(fn func(*Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.snap)
	c.snap.UpdatedAt = c.now()
	c.dirty = true
}

// takeDirty returns the snapshot and whether it changed since the last call.
func (c *Counter) takeDirty() (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dirty := c.dirty
	c.dirty = false
	return c.snap, dirty
}

func (c *Counter) markDirty() {
	c.mu.Lock()
	c.dirty = true
	c.mu.Unlock()
}

// Nop discards every notification.
type Nop struct{}

func (Nop) AddGame(string)      {}
func (Nop) RemoveGame(string)   {}
func (Nop) CompleteGame(string) {}

// asyncQueueSize bounds the notifications waiting for the worker.
const asyncQueueSize = 1024

type event struct {
	op  string
	key string
	fn  func(string)
}

// AsyncCollector forwards notifications to another Collector on a single
// worker goroutine, in the order they were made. Calls never block the
// caller: when the queue is full the notification is dropped and logged.
type AsyncCollector struct {
	next   Collector
	logger *zap.Logger
	queue  chan event
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// Async starts a worker delivering to next. A panic inside next is logged
// instead of reaching the caller. Close releases the worker.
func Async(next Collector, logger *zap.Logger) *AsyncCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &AsyncCollector{
		next:   next,
		logger: logger,
		queue:  make(chan event, asyncQueueSize),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *AsyncCollector) AddGame(key string)      { a.enqueue("add_game", key, a.next.AddGame) }
func (a *AsyncCollector) RemoveGame(key string)   { a.enqueue("remove_game", key, a.next.RemoveGame) }
func (a *AsyncCollector) CompleteGame(key string) { a.enqueue("complete_game", key, a.next.CompleteGame) }

// Close stops accepting notifications and waits until the queued ones have
// been delivered. Later calls are dropped.
func (a *AsyncCollector) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	<-a.done
}

func (a *AsyncCollector) enqueue(op, key string, fn func(string)) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		a.logger.Debug("Stats collector closed, dropping notification",
			zap.String("op", op), zap.String("game_key", key))
		return
	}
	select {
	case a.queue <- event{op: op, key: key, fn: fn}:
	default:
		a.logger.Warn("Stats queue full, dropping notification",
			zap.String("op", op), zap.String("game_key", key))
	}
}

func (a *AsyncCollector) run() {
	defer close(a.done)
	for ev := range a.queue {
		a.deliver(ev)
	}
}

func (a *AsyncCollector) deliver(ev event) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Stats collector failed",
				zap.String("op", ev.op), zap.String("game_key", ev.key), zap.Any("panic", r))
		}
	}()
	ev.fn(ev.key)
}
