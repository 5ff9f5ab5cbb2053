package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type recordingCollector struct {
	mu      sync.Mutex
	removed []string
}

func (r *recordingCollector) AddGame(string)      {}
func (r *recordingCollector) CompleteGame(string) {}
func (r *recordingCollector) RemoveGame(key string) {
	r.mu.Lock()
	r.removed = append(r.removed, key)
	r.mu.Unlock()
}

func (r *recordingCollector) Removed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.removed...)
}

func TestReaper_Sweep(t *testing.T) {
	clock := newFakeClock()
	manager := NewManager(WithClock(clock.Now))
	collector := &recordingCollector{}
	reaper := NewReaper(manager, collector, time.Hour, time.Hour, zaptest.NewLogger(t))

	stale, _, _ := manager.CreateIfAbsent("stale", createTestBoard(), nil)
	fresh, _, _ := manager.CreateIfAbsent("fresh", createTestBoard(), nil)
	occupied, _, _ := manager.CreateIfAbsent("occupied", createTestBoard(), nil)

	now := clock.Now()
	stale.setLastActivity(now.Add(-61 * time.Minute))
	fresh.setLastActivity(now.Add(-59 * time.Minute))
	occupied.setLastActivity(now.Add(-2 * time.Hour))

	// Idle sessions are reaped even with players attached.
	NewPresence().Attach("conn", occupied)

	removed := reaper.Sweep()
	sort.Strings(removed)
	if len(removed) != 2 || removed[0] != "occupied" || removed[1] != "stale" {
		t.Fatalf("Expected [occupied stale] removed, got %v", removed)
	}

	if _, err := manager.Get("fresh"); err != nil {
		t.Error("Session idle for 59 minutes should be retained")
	}
	if _, err := manager.Get("stale"); err == nil {
		t.Error("Session idle for 61 minutes should be removed")
	}

	notified := collector.Removed()
	sort.Strings(notified)
	if len(notified) != 2 || notified[0] != "occupied" || notified[1] != "stale" {
		t.Errorf("Expected stats notified for removed sessions, got %v", notified)
	}

	// Next sweep after the survivor crosses the threshold.
	clock.Advance(2 * time.Minute)
	if removed := reaper.Sweep(); len(removed) != 1 || removed[0] != "fresh" {
		t.Errorf("Expected fresh to be reaped once idle for 61 minutes, got %v", removed)
	}
}

func TestReaper_StartStop(t *testing.T) {
	clock := newFakeClock()
	manager := NewManager(WithClock(clock.Now))
	collector := &recordingCollector{}
	reaper := NewReaper(manager, collector, 5*time.Millisecond, time.Hour, nil)

	sess, _, _ := manager.CreateIfAbsent("old", createTestBoard(), nil)
	sess.setLastActivity(clock.Now().Add(-3 * time.Hour))

	reaper.Start(context.Background())
	reaper.Start(context.Background()) // second start is ignored

	deadline := time.After(time.Second)
	for manager.Count() != 0 {
		select {
		case <-deadline:
			t.Fatal("Reaper did not remove the idle session")
		case <-time.After(5 * time.Millisecond):
		}
	}

	reaper.Stop()
	reaper.Stop() // idempotent

	// No sweeps after Stop.
	late, _, _ := manager.CreateIfAbsent("late", createTestBoard(), nil)
	late.setLastActivity(clock.Now().Add(-3 * time.Hour))
	time.Sleep(30 * time.Millisecond)
	if _, err := manager.Get("late"); err != nil {
		t.Error("Reaper kept running after Stop")
	}
}

func TestNewReaper_Defaults(t *testing.T) {
	reaper := NewReaper(NewManager(), nil, 0, 0, nil)
	if reaper.interval != DefaultReapInterval {
		t.Errorf("Expected default interval %v, got %v", DefaultReapInterval, reaper.interval)
	}
	if reaper.maxIdle != DefaultIdleTimeout {
		t.Errorf("Expected default idle timeout %v, got %v", DefaultIdleTimeout, reaper.maxIdle)
	}
}

func TestReaper_ScheduledSweepsUseExecutor(t *testing.T) {
	clock := newFakeClock()
	manager := NewManager(WithClock(clock.Now))
	sess, _, _ := manager.CreateIfAbsent("old", createTestBoard(), nil)
	sess.setLastActivity(clock.Now().Add(-3 * time.Hour))

	var (
		mu    sync.Mutex
		calls int
	)
	exec := func(ctx context.Context, fn func()) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		fn()
		return nil
	}
	reaper := NewReaper(manager, nil, 5*time.Millisecond, time.Hour, zaptest.NewLogger(t), WithExecutor(exec))
	reaper.Start(context.Background())
	defer reaper.Stop()

	deadline := time.After(time.Second)
	for manager.Count() != 0 {
		select {
		case <-deadline:
			t.Fatal("Reaper did not remove the idle session")
		case <-time.After(5 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if calls == 0 {
		t.Error("Expected scheduled sweeps to go through the executor")
	}
}

func TestReaper_ExecutorErrorSkipsSweep(t *testing.T) {
	clock := newFakeClock()
	manager := NewManager(WithClock(clock.Now))
	sess, _, _ := manager.CreateIfAbsent("old", createTestBoard(), nil)
	sess.setLastActivity(clock.Now().Add(-3 * time.Hour))

	refused := make(chan struct{}, 1)
	exec := func(ctx context.Context, fn func()) error {
		select {
		case refused <- struct{}{}:
		default:
		}
		return errors.New("loop stopped")
	}
	reaper := NewReaper(manager, nil, 5*time.Millisecond, time.Hour, zaptest.NewLogger(t), WithExecutor(exec))
	reaper.Start(context.Background())

	select {
	case <-refused:
	case <-time.After(time.Second):
		t.Fatal("Executor was never called")
	}
	reaper.Stop()

	if _, err := manager.Get("old"); err != nil {
		t.Error("Sweep ran although the executor refused it")
	}
}
