package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/MimoJanra/DomainReport/internal/analyzer"
	"github.com/MimoJanra/DomainReport/internal/config"
	"github.com/MimoJanra/DomainReport/internal/models"
	"github.com/MimoJanra/DomainReport/internal/notifications"
	"github.com/MimoJanra/DomainReport/internal/storage"
)

type stubAnalyzer struct {
	status string
}

func (s stubAnalyzer) Analyze(_ context.Context, domain, url string) models.DomainReport {
	return models.DomainReport{
		ID:     "id-" + domain + url,
		Domain: domain,
		URL:    analyzer.TargetURL(domain, url),
		Uptime: &models.UptimeSection{Status: s.status, Errors: []string{}},
		Summary: models.Summary{
			ServicesCompleted: 1,
			AnalysisTimestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		},
	}
}

func (s stubAnalyzer) AnalyzeBatch(ctx context.Context, targets []analyzer.Target, _ int) []models.DomainReport {
	out := make([]models.DomainReport, len(targets))
	for i, t := range targets {
		out[i] = s.Analyze(ctx, t.Domain, t.URL)
	}
	return out
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordingNotifier) SendNotification(_ context.Context, st models.NotificationSettings, msg notifications.NotificationMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, st.Type+":"+msg.DomainName)
	if st.Type == "slack" {
		return errors.New("webhook gone")
	}
	return nil
}

type recordingPublisher struct {
	published []string
}

func (p *recordingPublisher) PublishReport(_ context.Context, r models.StoredReport) error {
	p.published = append(p.published, r.ReportID)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fixture struct {
	service   *ReportService
	notifier  *recordingNotifier
	publisher *recordingPublisher
	domains   *storage.DomainRepo
	reports   *storage.ReportRepo
	settings  *storage.NotificationRepo
}

func newFixture(t *testing.T, status string) fixture {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := fixture{
		notifier:  &recordingNotifier{},
		publisher: &recordingPublisher{},
		domains:   storage.NewDomainRepo(db),
		reports:   storage.NewReportRepo(db),
		settings:  storage.NewNotificationRepo(db),
	}
	f.service = NewReportService(stubAnalyzer{status: status}, f.domains, f.reports, f.settings, f.notifier, f.publisher, zaptest.NewLogger(t))
	return f
}

func TestReportService_AnalyzeStoresAndPublishes(t *testing.T) {
	f := newFixture(t, models.UptimeStatusUp)

	stored, err := f.service.Analyze(context.Background(), "se1gym.co.uk", "")
	require.NoError(t, err)
	assert.Equal(t, "id-se1gym.co.uk", stored.ReportID)
	assert.Equal(t, []string{"id-se1gym.co.uk"}, f.publisher.published)

	d, err := f.domains.GetByName("se1gym.co.uk")
	require.NoError(t, err)
	latest, err := f.reports.GetLatestByDomain(d.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, latest.ID)
}

func TestReportService_AnalyzeBatch(t *testing.T) {
	f := newFixture(t, models.UptimeStatusUp)

	stored, err := f.service.AnalyzeBatch(context.Background(), []analyzer.Target{
		{Domain: "a.com"}, {Domain: "b.com"}, {Domain: "a.com", URL: "https://a.com/x"},
	}, 2)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, stored[0].DomainID, stored[2].DomainID)
	assert.Equal(t, "https://a.com/x", stored[2].Report.URL)
}

func TestReportService_RunMonitorNotifiesOnDegraded(t *testing.T) {
	f := newFixture(t, models.UptimeStatusDown)

	_, err := f.settings.Add(models.NotificationSettings{Type: "telegram", Enabled: true, Token: "t", ChatID: "1", NotifyOnFailure: true})
	require.NoError(t, err)
	_, err = f.settings.Add(models.NotificationSettings{Type: "slack", Enabled: true, WebhookURL: "https://hooks.test", NotifyOnFailure: true})
	require.NoError(t, err)
	_, err = f.settings.Add(models.NotificationSettings{Type: "telegram", Enabled: true, Token: "t", ChatID: "2", NotifyOnSuccess: true})
	require.NoError(t, err)

	degraded, err := f.service.RunMonitor(context.Background(),
		models.Domain{ID: 1, Name: "thethirdspace.com"},
		models.Monitor{ID: 1, URL: "https://thethirdspace.com"})
	require.NoError(t, err)
	assert.True(t, degraded)
	assert.Equal(t, []string{"telegram:thethirdspace.com", "slack:thethirdspace.com"}, f.notifier.sent)
}

func TestReportService_RunMonitorHealthy(t *testing.T) {
	f := newFixture(t, models.UptimeStatusUp)
	_, err := f.settings.Add(models.NotificationSettings{Type: "telegram", Enabled: true, Token: "t", ChatID: "1", NotifyOnFailure: true})
	require.NoError(t, err)

	degraded, err := f.service.RunMonitor(context.Background(), models.Domain{Name: "se1gym.co.uk"}, models.Monitor{URL: "https://se1gym.co.uk"})
	require.NoError(t, err)
	assert.False(t, degraded)
	assert.Empty(t, f.notifier.sent)
}

func TestNewAnalyzer_DisabledProviders(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PROVIDERS_PAGESPEED_ENABLED", "false")
	t.Setenv("PROVIDERS_WHOIS_ENABLED", "false")
	t.Setenv("PROVIDERS_TRUST_ENABLED", "false")
	t.Setenv("PROVIDERS_UPTIME_ENABLED", "false")
	cfg, err := config.Load("")
	require.NoError(t, err)

	r := NewAnalyzer(cfg, zaptest.NewLogger(t)).Analyze(context.Background(), "example.com", "")
	assert.Nil(t, r.PageSpeed)
	assert.Nil(t, r.Whois)
	assert.Nil(t, r.TrustAndCRO)
	assert.Nil(t, r.Uptime)
	assert.Equal(t, 0, r.Summary.TotalErrors)
	assert.Equal(t, 0, r.Summary.ServicesCompleted)
}

func TestNew_WiresScheduler(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Database.Path = filepath.Join(t.TempDir(), "wired.db")

	a, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.NotNil(t, a.Scheduler)
	assert.NotNil(t, a.Service)
	require.NoError(t, a.Close())
}
