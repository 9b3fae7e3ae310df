// Package analyzer builds a DomainReport by calling every enabled provider
// concurrently, each under its own timeout, and merging whatever they
// return. Provider failures end up as strings in the section they belong
// to; Analyze itself never fails.
package analyzer

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MimoJanra/DomainReport/internal/models"
	"github.com/MimoJanra/DomainReport/internal/provider"
	"github.com/MimoJanra/DomainReport/internal/provider/pagespeed"
	"github.com/MimoJanra/DomainReport/internal/provider/trust"
)

type PageSpeed interface {
	Run(ctx context.Context, targetURL string, strategy pagespeed.Strategy) (*models.DeviceReport, error)
}

type Whois interface {
	Lookup(ctx context.Context, domain string) (*models.WhoisRecord, error)
	History(ctx context.Context, domain string) (*models.WhoisHistory, error)
}

type Uptime interface {
	Probe(ctx context.Context, targetURL string) (*models.UptimeStats, error)
}

type Trust interface {
	InspectTLS(ctx context.Context, host string) (*models.SSLInfo, error)
	FetchHomepage(ctx context.Context, targetURL string) (*trust.Homepage, error)
}

// Providers are injected; a nil provider is disabled and its section stays
// nil in the report.
type Providers struct {
	PageSpeed PageSpeed
	Whois     Whois
	Uptime    Uptime
	Trust     Trust
}

type Timeouts struct {
	PageSpeed time.Duration
	Whois     time.Duration
	Trust     time.Duration
	Uptime    time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		PageSpeed: 60 * time.Second,
		Whois:     10 * time.Second,
		Trust:     10 * time.Second,
		Uptime:    10 * time.Second,
	}
}

type Analyzer struct {
	providers Providers
	timeouts  Timeouts
	logger    *zap.Logger
	now       func() time.Time
}

func New(providers Providers, timeouts Timeouts, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		providers: providers,
		timeouts:  timeouts,
		logger:    logger,
		now:       time.Now,
	}
}

// Target is one domain to analyse. An empty URL means https://<domain>.
type Target struct {
	Domain string `json:"domain"`
	URL    string `json:"url,omitempty"`
}

func TargetURL(domain, rawURL string) string {
	if strings.TrimSpace(rawURL) != "" {
		return strings.TrimSpace(rawURL)
	}
	return "https://" + domain
}

func (a *Analyzer) Analyze(ctx context.Context, domain, rawURL string) models.DomainReport {
	domain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	target := TargetURL(domain, rawURL)
	start := a.now()

	report := models.DomainReport{
		ID:        uuid.NewString(),
		Domain:    domain,
		URL:       target,
		Timestamp: start,
	}

	var probes trustProbes
	var wg conc.WaitGroup
	if a.providers.PageSpeed != nil {
		wg.Go(func() { report.PageSpeed = a.runPageSpeed(ctx, target) })
	}
	if a.providers.Whois != nil {
		wg.Go(func() { report.Whois = a.runWhois(ctx, domain) })
	}
	if a.providers.Uptime != nil {
		wg.Go(func() { report.Uptime = a.runUptime(ctx, target) })
	}
	if a.providers.Trust != nil {
		wg.Go(func() { probes = a.runTrustProbes(ctx, hostOf(target, domain), target) })
	}
	wg.Wait()

	if a.providers.Trust != nil {
		report.TrustAndCRO = a.scoreTrust(probes, report.Whois, report.PageSpeed, start)
	}

	end := a.now()
	report.Summary = summarize(report, a.providers)
	report.Summary.AnalysisDuration = end.Sub(start).Milliseconds()
	report.Summary.AnalysisTimestamp = end

	a.logger.Info("analysis finished",
		zap.String("report_id", report.ID),
		zap.String("domain", domain),
		zap.Int("total_errors", report.Summary.TotalErrors),
		zap.Int("services_completed", report.Summary.ServicesCompleted),
		zap.Int64("duration_ms", report.Summary.AnalysisDuration),
	)
	return report
}

// AnalyzeBatch analyses targets with at most concurrency analyses in
// flight. Reports come back in input order.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, targets []Target, concurrency int) []models.DomainReport {
	out := make([]models.DomainReport, len(targets))
	if concurrency <= 0 {
		concurrency = 1
	}

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, t := range targets {
		g.Go(func() error {
			out[i] = a.Analyze(ctx, t.Domain, t.URL)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (a *Analyzer) runPageSpeed(ctx context.Context, target string) *models.PageSpeedSection {
	section := &models.PageSpeedSection{Errors: []string{}}
	var mobileErr, desktopErr error

	var wg conc.WaitGroup
	wg.Go(func() {
		section.Mobile, mobileErr = call(ctx, a.timeouts.PageSpeed, func(ctx context.Context) (*models.DeviceReport, error) {
			return a.providers.PageSpeed.Run(ctx, target, pagespeed.StrategyMobile)
		})
	})
	wg.Go(func() {
		section.Desktop, desktopErr = call(ctx, a.timeouts.PageSpeed, func(ctx context.Context) (*models.DeviceReport, error) {
			return a.providers.PageSpeed.Run(ctx, target, pagespeed.StrategyDesktop)
		})
	})
	wg.Wait()

	if mobileErr != nil {
		section.Mobile = nil
		section.Errors = append(section.Errors, a.failure("pagespeed", "Mobile analysis failed", mobileErr, a.timeouts.PageSpeed))
	}
	if desktopErr != nil {
		section.Desktop = nil
		section.Errors = append(section.Errors, a.failure("pagespeed", "Desktop analysis failed", desktopErr, a.timeouts.PageSpeed))
	}
	return section
}

func (a *Analyzer) runWhois(ctx context.Context, domain string) *models.WhoisSection {
	section := &models.WhoisSection{Errors: []string{}}

	rec, err := call(ctx, a.timeouts.Whois, func(ctx context.Context) (*models.WhoisRecord, error) {
		return a.providers.Whois.Lookup(ctx, domain)
	})
	if err != nil {
		section.Errors = append(section.Errors, a.failure("whois", "WHOIS lookup failed", err, a.timeouts.Whois))
		return section
	}
	if rec == nil {
		section.Errors = append(section.Errors, a.failure("whois", "WHOIS lookup failed", provider.ErrUnexpectedShape, a.timeouts.Whois))
		return section
	}

	history, err := call(ctx, a.timeouts.Whois, func(ctx context.Context) (*models.WhoisHistory, error) {
		return a.providers.Whois.History(ctx, domain)
	})
	if err != nil {
		section.Errors = append(section.Errors, a.failure("whois", "WHOIS history lookup failed", err, a.timeouts.Whois))
	} else {
		rec.History = history
	}

	section.Data = rec
	return section
}

func (a *Analyzer) runUptime(ctx context.Context, target string) *models.UptimeSection {
	section := &models.UptimeSection{Errors: []string{}}

	stats, err := call(ctx, a.timeouts.Uptime, func(ctx context.Context) (*models.UptimeStats, error) {
		return a.providers.Uptime.Probe(ctx, target)
	})
	if stats != nil {
		pct := stats.UptimePercentage
		section.UptimePercentage = &pct
		section.AverageResponseTime = stats.AverageResponseTime
		section.Status = stats.Status
		section.CheckedSamples = stats.Samples
	}
	if err != nil {
		section.Errors = append(section.Errors, a.failure("uptime", "Uptime check failed", err, a.timeouts.Uptime))
	}
	return section
}

type trustProbes struct {
	ssl      *models.SSLInfo
	homepage *trust.Homepage
	errors   []string
}

func (a *Analyzer) runTrustProbes(ctx context.Context, host, target string) trustProbes {
	var (
		p           trustProbes
		sslErr      error
		homepageErr error
	)

	var wg conc.WaitGroup
	wg.Go(func() {
		p.ssl, sslErr = call(ctx, a.timeouts.Trust, func(ctx context.Context) (*models.SSLInfo, error) {
			return a.providers.Trust.InspectTLS(ctx, host)
		})
	})
	wg.Go(func() {
		p.homepage, homepageErr = call(ctx, a.timeouts.Trust, func(ctx context.Context) (*trust.Homepage, error) {
			return a.providers.Trust.FetchHomepage(ctx, target)
		})
	})
	wg.Wait()

	if sslErr != nil {
		p.ssl = nil
		p.errors = append(p.errors, a.failure("trust", "SSL check failed", sslErr, a.timeouts.Trust))
	}
	if homepageErr != nil {
		p.homepage = nil
		p.errors = append(p.errors, a.failure("trust", "Homepage fetch failed", homepageErr, a.timeouts.Trust))
	}
	return p
}

func (a *Analyzer) scoreTrust(p trustProbes, whois *models.WhoisSection, ps *models.PageSpeedSection, now time.Time) *models.TrustSection {
	section := &models.TrustSection{Errors: append([]string{}, p.errors...)}

	security, cro, errs := trust.Score(trust.Inputs{
		SSL:       p.ssl,
		Homepage:  p.homepage,
		Whois:     whois,
		PageSpeed: ps,
		Now:       now,
	})
	section.Security = security
	section.CRO = cro
	section.Errors = append(section.Errors, errs...)
	return section
}

func (a *Analyzer) failure(providerName, prefix string, err error, timeout time.Duration) string {
	msg := prefix + ": " + provider.Describe(err, timeout)
	a.logger.Warn("provider call failed",
		zap.String("provider", providerName),
		zap.String("message", msg),
		zap.Error(err),
	)
	return msg
}

func hostOf(target, fallback string) string {
	u, err := url.Parse(target)
	if err != nil || u.Hostname() == "" {
		return fallback
	}
	return u.Hostname()
}

// summarize counts errors and completed sections. ServicesCompleted is
// models.ServicesFailed when the reachability providers that are enabled
// all saw nothing: no page-speed device report and no uptime "up".
func summarize(r models.DomainReport, p Providers) models.Summary {
	var s models.Summary

	if r.PageSpeed != nil {
		s.TotalErrors += len(r.PageSpeed.Errors)
	}
	if r.Whois != nil {
		s.TotalErrors += len(r.Whois.Errors)
	}
	if r.TrustAndCRO != nil {
		s.TotalErrors += len(r.TrustAndCRO.Errors)
	}
	if r.Uptime != nil {
		s.TotalErrors += len(r.Uptime.Errors)
	}

	pageSpeedOK := r.PageSpeed != nil && (r.PageSpeed.Mobile != nil || r.PageSpeed.Desktop != nil)
	uptimeOK := r.Uptime != nil && r.Uptime.Status == models.UptimeStatusUp

	for _, ok := range []bool{
		pageSpeedOK,
		r.Whois != nil && r.Whois.Data != nil,
		r.TrustAndCRO != nil && (r.TrustAndCRO.Security != nil || r.TrustAndCRO.CRO != nil),
		uptimeOK,
	} {
		if ok {
			s.ServicesCompleted++
		}
	}

	reachabilityChecked := p.PageSpeed != nil || p.Uptime != nil
	if reachabilityChecked && !pageSpeedOK && !uptimeOK {
		s.ServicesCompleted = models.ServicesFailed
	}
	return s
}
