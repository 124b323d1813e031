// CLAUDE:SUMMARY CLI entry point for bidicheck: scan, watch, serve, mcp, history and version subcommands.
// Command bidicheck finds bidirectional-text defects in web pages.
//
// Usage:
//
//	bidicheck scan page.html --dir rtl          # check a file, colored report
//	bidicheck scan https://example.com --live   # check a page rendered by Chrome
//	bidicheck watch page.html                   # re-check on every save
//	bidicheck serve --addr :8080                # HTTP API
//	bidicheck mcp                               # MCP server on stdio
//	bidicheck history --limit 10                # saved scans
//
// Exit status is 0 when no defects were found, 2 when some were, 1 on
// failure.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// errDefects reports that a scan completed and found defects.
var errDefects = errors.New("defects found")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	os.Exit(exitCode(rootCmd.ExecuteContext(ctx)))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errDefects):
		return 2
	}
	fmt.Fprintln(os.Stderr, "bidicheck:", err)
	return 1
}
