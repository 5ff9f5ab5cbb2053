// Package session provides session management for Codenames games.
//
// The session package implements:
//   - Thread-safe session storage keyed by caller-supplied game keys
//   - Idempotent creation with optional restore from a saved snapshot
//   - Presence tracking of attached connections
//   - Periodic removal of idle sessions
//
// Core Types:
//
// Manager is the session registry. Session wraps one engine.Game together
// with its attached connections and last-activity timestamp. Presence maps
// connections to the single session each is attached to. Reaper sweeps the
// Manager on a fixed interval.
//
// Concurrency:
//
// Each Session serializes its own mutations and snapshots behind a mutex,
// so readers outside the websocket hub never observe a half-applied reveal.
// Sessions share no mutable state with each other. A Reaper built with
// WithExecutor runs its scheduled sweeps through that executor, which lets
// the websocket hub order them with the messages it handles.
//
// Usage:
//
//	manager := session.NewManager(session.WithLogger(logger))
//
//	sess, created, err := manager.CreateIfAbsent(key, board, nil)
//	if err != nil {
//		return err
//	}
//
//	reaper := session.NewReaper(manager, collector, time.Hour, time.Hour, logger,
//		session.WithExecutor(hub.Do))
//	reaper.Start(ctx)
//	defer reaper.Stop()
//
// Cleanup:
//
// Sessions are only ever removed by the Reaper, based on time since the last
// join or reveal. Attached players do not keep an idle session alive.
package session
