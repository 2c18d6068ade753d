// Package report renders probe results for people and machines.
//
// Text output is one block of "key: value" lines per host with a blank line
// between hosts. JSON output is an array with latencies in milliseconds.
// A PNG bar chart of average latency can be rendered alongside either.
package report

import (
	"fmt"
	"io"

	"github.com/jpalmerr/hostprobe"
)

// Supported formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// noData is printed in place of a latency when no attempt got a response.
const noData = "no data"

// Write renders results to w in the given format.
func Write(w io.Writer, format string, results hostprobe.ResultSet) error {
	switch format {
	case FormatText, "":
		return WriteText(w, results)
	case FormatJSON:
		return WriteJSON(w, results)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}
