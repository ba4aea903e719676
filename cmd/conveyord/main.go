// Command conveyord runs the order-processing pipeline daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"conveyor/internal/config"
	"conveyor/internal/daemon"
	"conveyor/internal/docstore"
	"conveyor/internal/logging"
	"conveyor/internal/objectstore"
	"conveyor/internal/preflight"
	"conveyor/internal/queue"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	cfg, resolvedPath, exists, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	if !exists {
		logger.Warn("no configuration file found, using defaults",
			logging.String("path", resolvedPath))
	}

	broker, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open broker: %w", err)
	}
	docs, err := docstore.Open(cfg)
	if err != nil {
		_ = broker.Close()
		return fmt.Errorf("open document store: %w", err)
	}
	objects, err := objectstore.New(cfg.Paths.ObjectStoreDir)
	if err != nil {
		_ = broker.Close()
		_ = docs.Close()
		return fmt.Errorf("open object store: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := preflight.Run(ctx, cfg, broker, docs)
	for _, result := range results {
		if result.Passed {
			logger.Info("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail))
			continue
		}
		logger.Error("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail))
	}
	if !preflight.AllPassed(results) {
		_ = broker.Close()
		_ = docs.Close()
		return fmt.Errorf("preflight checks failed")
	}

	d, err := daemon.New(cfg, broker, docs, objects, logger)
	if err != nil {
		_ = broker.Close()
		_ = docs.Close()
		return err
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Warn("daemon shutdown reported errors", logging.Error(err))
		}
	}()

	if err := d.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")
	d.Stop()
	return nil
}
