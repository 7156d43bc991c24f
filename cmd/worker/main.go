package main

import (
	"context"
	"os/signal"
	"syscall"

	"hotel/config"
	"hotel/di"
	"hotel/shared/logger"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Get()

	logger.InitLogger()

	logger.SetLogLevel(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := di.InitializeWorker().Run(ctx); err != nil {
		stop()
		log.Fatal().Err(err).Msg("Notification worker failed")
	}
}
