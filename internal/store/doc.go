// Package store collects the per-target results of a probe run.
//
// This package is internal to hostprobe. A run writes each target's summary
// into a fixed slot (the target's input position), so the collected results
// come back in input order no matter in which order the tasks finish. A
// publish-subscribe channel lets callers follow progress while a run is
// still in flight.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//
// The store is designed for concurrent access with proper synchronization.
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers will miss updates rather than block the run).
package store
