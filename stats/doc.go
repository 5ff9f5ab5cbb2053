// Package stats keeps aggregate usage counters for game sessions.
//
// Sessions report their lifecycle through the Collector interface. Counter
// accumulates totals in memory and Run flushes them periodically to a Store,
// either a JSON file (FileStore) or a SQLite table (SQLiteStore). Wrap the
// collector with Async before handing it to code on a hot path so that a
// slow or failing collector never reaches the caller.
package stats
