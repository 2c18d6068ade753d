// Package hostprobe measures the availability and latency of HTTP endpoints.
//
// Every target is probed with a fixed number of sequential GET requests. Each
// response is classified as [ClassSuccess] (status 100 to 399), [ClassFailed]
// (status 400 to 599) or [ClassError] (no usable response), and the attempts
// of a target are aggregated into a [Summary] with outcome counts and
// min/max/average latency. Targets are probed concurrently by a bounded
// worker pool; results come back in the order the targets were given.
//
// # Quick Start
//
//	r, err := hostprobe.New(
//	    hostprobe.WithTargets("https://example.com", "https://example.org"),
//	    hostprobe.WithSampleCount(5),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	results, err := r.Run(ctx)
//	for _, s := range results {
//	    fmt.Println(s.Target, s.Success, s.Failed, s.Error, s.Latency.Avg)
//	}
//
// # Latency
//
// Latency is measured until response headers arrive and is computed over
// Success and Failed attempts only. When no attempt of a target got a
// response, [LatencyStats.HasData] reports false.
//
// # Progress
//
// [WithSummaryCallback] reports each target as it finishes and
// [WithAttemptCallback] reports every individual request as an [Attempt].
//
// # Target Grids
//
// [NewTargetGrid] expands a URL template over the cartesian product of
// dimension values, which is handy for probing the same path across many
// regions or environments:
//
//	targets, err := hostprobe.NewTargetGrid(
//	    hostprobe.WithURLTemplate("https://{{.region}}.api.example.com/health"),
//	    hostprobe.WithDimensions(map[string][]string{
//	        "region": {"us", "eu", "ap"},
//	    }),
//	)
//
// # Architecture
//
//   - internal/probe: transport, classification, sampling, aggregation and the worker pool
//   - internal/store: index-addressed result collection with completion notifications
//   - internal/metrics: Prometheus instrumentation and textfile export
//   - internal/report: text, JSON and chart output
//   - internal/server: live progress over HTTP, SSE and Prometheus while a run is in flight
//   - config: YAML configuration and host list parsing for the CLI
package hostprobe
