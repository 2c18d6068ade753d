package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/hostprobe"
	"github.com/jpalmerr/hostprobe/internal/mockserver"
	"github.com/jpalmerr/hostprobe/internal/report"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	// start the fixture server on a free port
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		logger.Error("failed to listen", "error", err)
		os.Exit(1)
	}
	go func() {
		_ = http.Serve(ln, mockserver.New(logger, 100*time.Millisecond).Handler())
	}()
	base := "http://" + ln.Addr().String()

	// grid API: one declaration, one target per route
	targets, err := hostprobe.NewTargetGrid(
		hostprobe.WithURLTemplate(base+"/{{.route}}"),
		hostprobe.WithDimensions(map[string][]string{
			"route": {"ok", "fail", "flaky", "slow", "status/600"},
		}),
		hostprobe.WithRawDimensionValues(),
	)
	if err != nil {
		logger.Error("failed to build targets", "error", err)
		os.Exit(1)
	}

	runner, err := hostprobe.New(
		hostprobe.WithTargets(targets...),
		hostprobe.WithSampleCount(4),
		hostprobe.WithWorkerLimit(3),
		hostprobe.WithTimeout(500*time.Millisecond),
		hostprobe.WithLogger(logger),
		hostprobe.WithSummaryCallback(func(s hostprobe.Summary) {
			if s.Error > 0 {
				logger.Warn("host had errors", "host", s.Target, "errors", s.Error)
			}
		}),
	)
	if err != nil {
		logger.Error("failed to create runner", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := runner.Run(ctx)
	if err != nil {
		logger.Warn("run did not complete", "error", err)
	}

	if err := report.WriteText(os.Stdout, results); err != nil {
		logger.Error("failed to write report", "error", err)
		os.Exit(1)
	}
}
