package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/JakeFAU/compliance-gateway/internal/config"
	"github.com/JakeFAU/compliance-gateway/internal/logging"
	"github.com/JakeFAU/compliance-gateway/internal/server"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if err := run(*cfgPath); err != nil {
		fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
		os.Exit(1)
	}
}

// run returns once the server has shut down. Any error, including a failed
// startup, makes the process exit non-zero.
func run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	logger, err := logging.New("gateway", cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw, err := server.BuildGateway(ctx, cfg, nil, logger)
	if err != nil {
		logger.Error("gateway init failed", zap.Error(err))
		return fmt.Errorf("gateway init failed: %w", err)
	}
	if err := gw.Run(ctx); err != nil {
		logger.Error("gateway stopped with error", zap.Error(err))
		return fmt.Errorf("gateway stopped: %w", err)
	}
	return nil
}
