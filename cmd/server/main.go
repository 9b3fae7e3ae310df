package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	_ "github.com/MimoJanra/DomainReport/docs"
	"github.com/MimoJanra/DomainReport/internal/app"
	"github.com/MimoJanra/DomainReport/internal/config"
)

// @title           DomainReport API
// @version         1.0
// @description     REST API for composite domain reports: page speed, WHOIS, trust and uptime.

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /
// @schemes   http
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.Env, false)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to init app", zap.Error(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("failed to close app", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Serve(ctx); err != nil {
		logger.Error("server failed", zap.Error(err))
	}
}
