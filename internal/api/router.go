package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

func SetupRouter(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.Health)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/analyze", func(r chi.Router) {
		r.Post("/", s.Analyze)
		r.Post("/batch", s.AnalyzeBatch)
	})

	r.Route("/domains", func(r chi.Router) {
		r.Get("/", s.GetDomains)
		r.Post("/", s.CreateDomain)

		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", s.DeleteDomain)

			r.Route("/reports", func(r chi.Router) {
				r.Get("/", s.GetDomainReports)
				r.Get("/latest", s.GetLatestReport)
			})

			r.Route("/monitors", func(r chi.Router) {
				r.Get("/", s.GetMonitors)
				r.Post("/", s.CreateMonitor)
			})
		})
	})

	r.Get("/reports/{id}", s.GetReport)
	r.Delete("/monitors/{id}", s.DeleteMonitor)

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", s.GetNotifications)
		r.Post("/", s.CreateNotification)
		r.Delete("/{id}", s.DeleteNotification)
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
