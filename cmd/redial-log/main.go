// Command redial-log views and analyzes redial trace files.
//
// Trace files are written by redial-client with --trace, or by any program
// that installs a log.FileLogger as the transport trace logger.
//
// Usage:
//
//	redial-log <command> [flags] <file.rlog>
//
// Commands:
//
//	view     View trace file in human-readable format
//	export   Export trace file to JSONL or CSV format
//	filter   Filter trace file and write to new file
//	stats    Show statistics about the trace file
//
// Examples:
//
//	# Follow one connection through its lifecycle
//	redial-log view --category lifecycle session.rlog
//
//	# Only retry ticks
//	redial-log view --layer retry session.rlog
//
//	# Export to CSV
//	redial-log export --format csv -o session.csv session.rlog
//
//	# Keep the events of one socket handle
//	redial-log filter --conn-id 3f2a9c1e-... -o one.rlog session.rlog
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
