package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"gametrack/internal/config"
	"gametrack/internal/daemon"
	"gametrack/internal/logging"
)

const logBufferCapacity = 4096

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	hub := logging.NewStreamHub(logBufferCapacity)
	logger, err := logging.NewFromConfig(cfg, hub)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if err := daemon.Run(ctx, cfg, logger, hub); err != nil {
		logger.Error("gametrackd exited", logging.Error(err))
		cancel()
		log.Fatalf("gametrackd: %v", err)
	}
}
