// Command reconcile removes stored images that no catalog row references.
// They appear when the process dies between the image upload and the insert.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vitrine/catalog/internal/app"
	"github.com/vitrine/catalog/internal/config"
	"github.com/vitrine/catalog/internal/logging"
)

func main() {
	olderThan := flag.Duration("older-than", 15*time.Minute, "only remove images older than this")
	dryRun := flag.Bool("dry-run", false, "report orphans without deleting them")
	flag.Parse()

	cfg := config.Load()

	logger, err := logging.New(cfg)
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger, *olderThan, *dryRun, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		logger.Error("reconciliation failed", zap.Error(err))
	}
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run prints one orphan key per line to out and every unresolved row
// reference to errOut.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, olderThan time.Duration, dryRun bool, out, errOut io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	defer a.Close()

	res, err := a.Service.Reconcile(ctx, olderThan, dryRun)
	if err != nil {
		return err
	}

	for _, key := range res.Orphans {
		fmt.Fprintln(out, key)
	}
	for _, ref := range res.Unresolved {
		fmt.Fprintln(errOut, "unresolved:", ref)
	}
	return nil
}
