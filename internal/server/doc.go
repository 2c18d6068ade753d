// Package server exposes the progress of a probe run over HTTP.
//
// While a run is in flight the server answers:
//
//   - GET /: the text report of every host finished so far
//   - GET /api/results: the same summaries as JSON, with progress counters
//   - GET /api/sse: Server-Sent Events, one event per finished host and a
//     final "done" event once every host has reported
//   - GET /metrics: Prometheus metrics of the run, when a gatherer is set
//
// Summaries are fed in through [Server.Record], which matches the signature
// of a hostprobe summary callback. The server shuts down gracefully when the
// context passed to [Server.Start] is cancelled.
package server
