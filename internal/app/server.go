package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/MimoJanra/DomainReport/internal/api"
)

func (a *App) Handler() http.Handler {
	return api.SetupRouter(&api.Server{
		DomainRepo:       a.Domains,
		MonitorRepo:      a.Monitors,
		ReportRepo:       a.Reports,
		NotificationRepo: a.NotificationRepo,
		Reports:          a.Service,
		Logger:           a.logger.Named("http"),
		BatchConcurrency: a.Config.Analysis.BatchConcurrency,
		MaxBatchSize:     a.Config.Analysis.MaxBatchSize,
	})
}

// Serve starts background work and the HTTP server, and blocks until ctx
// is cancelled or the listener fails. In-flight requests get
// Server.ShutdownTimeout to finish.
func (a *App) Serve(ctx context.Context) error {
	a.Start(ctx)

	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}
