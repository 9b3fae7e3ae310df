// Package app wires configuration, storage, providers and background
// workers into a running service.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/MimoJanra/DomainReport/internal/config"
	"github.com/MimoJanra/DomainReport/internal/events"
	"github.com/MimoJanra/DomainReport/internal/notifications"
	"github.com/MimoJanra/DomainReport/internal/scheduler"
	"github.com/MimoJanra/DomainReport/internal/storage"
)

type App struct {
	Config           *config.Config
	DB               *sql.DB
	Domains          *storage.DomainRepo
	Monitors         *storage.MonitorRepo
	Reports          *storage.ReportRepo
	NotificationRepo *storage.NotificationRepo
	Service          *ReportService
	Scheduler        *scheduler.Scheduler
	Publisher        events.Publisher
	logger           *zap.Logger
}

func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	a := &App{
		Config:           cfg,
		DB:               db,
		Domains:          storage.NewDomainRepo(db),
		Monitors:         storage.NewMonitorRepo(db),
		Reports:          storage.NewReportRepo(db),
		NotificationRepo: storage.NewNotificationRepo(db),
		Publisher:        events.Nop{},
		logger:           logger,
	}

	if cfg.KafkaEnabled() {
		a.Publisher = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger.Named("events"))
		logger.Info("publishing reports to kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	a.Service = NewReportService(
		NewAnalyzer(cfg, logger),
		a.Domains,
		a.Reports,
		a.NotificationRepo,
		notifications.NewNotificationSender(),
		a.Publisher,
		logger.Named("reports"),
	)

	if cfg.Scheduler.Enabled {
		pool := scheduler.NewWorkerPool(cfg.Scheduler.Workers, cfg.Scheduler.QueueSize, a.Service, logger.Named("workers"))
		a.Scheduler = scheduler.NewScheduler(a.Monitors, a.Domains, pool, cfg.Scheduler.Tick, logger.Named("scheduler"))
	}

	return a, nil
}

func (a *App) Start(ctx context.Context) {
	if a.Scheduler != nil {
		a.Scheduler.Start(ctx)
	}
}

// Close stops background work and releases the database and publisher.
func (a *App) Close() error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if err := a.Publisher.Close(); err != nil {
		a.logger.Warn("failed to close publisher", zap.Error(err))
	}
	return a.DB.Close()
}
