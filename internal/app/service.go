package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/MimoJanra/DomainReport/internal/analyzer"
	"github.com/MimoJanra/DomainReport/internal/events"
	"github.com/MimoJanra/DomainReport/internal/models"
	"github.com/MimoJanra/DomainReport/internal/notifications"
	"github.com/MimoJanra/DomainReport/internal/storage"
)

type Analyzer interface {
	Analyze(ctx context.Context, domain, url string) models.DomainReport
	AnalyzeBatch(ctx context.Context, targets []analyzer.Target, concurrency int) []models.DomainReport
}

type Notifier interface {
	SendNotification(ctx context.Context, settings models.NotificationSettings, msg notifications.NotificationMessage) error
}

// ReportService runs analyses and takes care of what happens to a report
// afterwards: persistence, publication and alerts.
type ReportService struct {
	analyzer      Analyzer
	domains       *storage.DomainRepo
	reports       *storage.ReportRepo
	notifications *storage.NotificationRepo
	notifier      Notifier
	publisher     events.Publisher
	logger        *zap.Logger
}

func NewReportService(
	a Analyzer,
	domains *storage.DomainRepo,
	reports *storage.ReportRepo,
	notificationRepo *storage.NotificationRepo,
	notifier Notifier,
	publisher events.Publisher,
	logger *zap.Logger,
) *ReportService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		analyzer:      a,
		domains:       domains,
		reports:       reports,
		notifications: notificationRepo,
		notifier:      notifier,
		publisher:     publisher,
		logger:        logger,
	}
}

// Analyze runs one analysis and stores it. The report is produced even if
// the providers fail; only storage errors are returned.
func (s *ReportService) Analyze(ctx context.Context, domain, url string) (models.StoredReport, error) {
	report := s.analyzer.Analyze(ctx, domain, url)
	return s.store(ctx, report)
}

func (s *ReportService) AnalyzeBatch(ctx context.Context, targets []analyzer.Target, concurrency int) ([]models.StoredReport, error) {
	reports := s.analyzer.AnalyzeBatch(ctx, targets, concurrency)
	out := make([]models.StoredReport, 0, len(reports))
	for _, r := range reports {
		stored, err := s.store(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, stored)
	}
	return out, nil
}

// RunMonitor is the scheduler's entry point: analyse, store, then notify.
func (s *ReportService) RunMonitor(ctx context.Context, domain models.Domain, monitor models.Monitor) (bool, error) {
	stored, err := s.Analyze(ctx, domain.Name, monitor.URL)
	if err != nil {
		return false, err
	}
	msg := notifications.MessageFromReport(stored.Report)
	s.Notify(ctx, msg)
	return msg.Degraded, nil
}

// Notify sends msg through every enabled notification setting that asks
// for it. Delivery failures are logged.
func (s *ReportService) Notify(ctx context.Context, msg notifications.NotificationMessage) {
	if s.notifications == nil || s.notifier == nil {
		return
	}
	settings, err := s.notifications.GetEnabled()
	if err != nil {
		s.logger.Error("failed to load notification settings", zap.Error(err))
		return
	}
	for _, st := range settings {
		if !notifications.ShouldNotify(st, msg) {
			continue
		}
		if err := s.notifier.SendNotification(ctx, st, msg); err != nil {
			s.logger.Warn("failed to send notification",
				zap.Int("setting_id", st.ID),
				zap.String("type", st.Type),
				zap.String("domain", msg.DomainName),
				zap.Error(err),
			)
		}
	}
}

func (s *ReportService) store(ctx context.Context, report models.DomainReport) (models.StoredReport, error) {
	domain, err := s.domains.GetOrCreate(report.Domain)
	if err != nil {
		return models.StoredReport{}, fmt.Errorf("resolve domain %s: %w", report.Domain, err)
	}
	stored, err := s.reports.Add(domain.ID, report)
	if err != nil {
		return models.StoredReport{}, fmt.Errorf("save report for %s: %w", report.Domain, err)
	}

	if err := s.publisher.PublishReport(ctx, stored); err != nil {
		s.logger.Warn("failed to publish report",
			zap.String("report_id", stored.ReportID),
			zap.Error(err),
		)
	}
	return stored, nil
}
