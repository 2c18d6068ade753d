// Standalone mock server for trying out the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/hostprobe -c example/hostprobe.yaml
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jpalmerr/hostprobe/internal/mockserver"
)

const addr = ":9999"

func main() {
	fmt.Println("Mock server starting on " + addr)
	fmt.Println("Routes: /ok /fail /notfound /slow?delay=3s /flaky /status/{code}")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	srv := mockserver.New(logger, 150*time.Millisecond)

	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
