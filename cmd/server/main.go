package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/liberandum/internal/logging"
	"github.com/dmitrijs2005/liberandum/internal/server"
	"github.com/dmitrijs2005/liberandum/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "Startup failed", "error", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "Server stopped with error", "error", err)
		os.Exit(1)
	}
}
