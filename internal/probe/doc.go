// Package probe is the concurrent probing and aggregation engine of hostprobe.
//
// This package is internal to hostprobe. It probes HTTP(S) targets with a
// bounded worker pool, samples each target sequentially, classifies every
// response and aggregates per-target latency and outcome statistics.
//
// The main components are:
//
//   - [Client]: pooled HTTP transport performing one timed GET
//   - [HTTPProber]: one classified probe with a fixed timeout
//   - [Sample]: sequential repetition of a probe against one target
//   - [Aggregate]: reduction of a sample set into a [Summary]
//   - [Scheduler]: bounded fan-out across targets producing a [ResultSet]
//
// Transport faults never escape a probe. They are classified as [Error]
// attempts without latency, so a run always produces one summary per target.
package probe
