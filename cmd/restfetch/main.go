// Command restfetch downloads a URL into a storage backend, logging
// progress as it goes.
//
//	restfetch https://example.com/report.csv -o reports/today.csv
//	restfetch --storage s3 --bucket media https://example.com/a.mp4
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
