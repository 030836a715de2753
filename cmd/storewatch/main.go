// Command storewatch monitors configured online stores for new items,
// price changes, and sold-out transitions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"storewatch/config"
	"storewatch/notify"
	"storewatch/runner"
	"storewatch/scraper"
	"storewatch/storage"
	"storewatch/useragent"
)

func main() {
	configPath := flag.String("config", "storewatch.yml", "path to configuration file")
	once := flag.Bool("once", false, "run every store once and exit, ignoring schedules")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if err := run(*configPath, *once, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "storewatch: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, once, verbose bool) error {
	log, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if len(cfg.Stores) == 0 {
		return errors.New("no stores configured")
	}

	rotator, err := useragent.NewRotator(cfg.Settings.UserAgentsPath, cfg.Settings.AgentIndexPath)
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Settings.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	fetcher := scraper.NewFetcher(cfg.Settings.Timeout())
	walker := scraper.NewWalker(fetcher, rotator, cfg.Settings, log)
	feedWalker := scraper.NewFeedWalker(cfg.Settings.Timeout())
	notifier := notify.NewLogNotifier(log)

	r := runner.New(cfg.Stores, walker, feedWalker, store, rotator,
		notifier, cfg.Settings.MaxConcurrent, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("storewatch starting",
		zap.Int("stores", len(cfg.Stores)),
		zap.Int("user_agents", rotator.Len()),
		zap.Bool("once", once))

	if once {
		r.RunAll(ctx)
		return nil
	}

	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("storewatch stopped")
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}
