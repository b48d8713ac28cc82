package main

import (
	"context"
	"flag"
	"log"

	"q-pipecat/internal/bootstrap"
	"q-pipecat/internal/config"
	"q-pipecat/internal/observability"
	"q-pipecat/internal/server"
)

func main() {
	host := flag.String("host", "", "Host address to bind (overrides HOST)")
	port := flag.Int("port", 0, "Port number to listen on (overrides PORT)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger := observability.NewLoggerWithLevel(cfg.Logging.Level)
	ctx := context.Background()

	deps, err := bootstrap.Initialize(ctx, cfg, logger)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize dependencies", err)
	}

	srv := server.New(cfg, deps, logger)
	srv.Setup()

	if err := srv.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start server", err)
	}

	if err := srv.WaitForShutdown(ctx); err != nil {
		logger.Error(ctx, "shutdown did not complete cleanly", err)
	}
}
