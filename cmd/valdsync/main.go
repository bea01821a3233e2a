package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"valdsync/internal/app"
	"valdsync/internal/config"
	"valdsync/libs/logging"
)

// usage: valdsync [cmj|hj|imtp|ppu|composite|all]
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync() // best-effort flush

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}
	defer application.Close()

	target := "all"
	if len(os.Args) > 1 {
		target = os.Args[1]
	}

	if target == "all" {
		err = application.RunAll(ctx)
	} else {
		err = application.RunOne(ctx, target)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("batch stopped with error", zap.Error(err))
	}
}
