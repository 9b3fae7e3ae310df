package analyzer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/MimoJanra/DomainReport/internal/models"
	"github.com/MimoJanra/DomainReport/internal/provider"
	"github.com/MimoJanra/DomainReport/internal/provider/pagespeed"
	"github.com/MimoJanra/DomainReport/internal/provider/trust"
	"github.com/MimoJanra/DomainReport/internal/provider/uptime"
)

type fakePageSpeed struct {
	mobile, desktop *models.DeviceReport
	err             error
	block           bool
}

func (f *fakePageSpeed) Run(ctx context.Context, _ string, strategy pagespeed.Strategy) (*models.DeviceReport, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	if strategy == pagespeed.StrategyMobile {
		return f.mobile, nil
	}
	return f.desktop, nil
}

type fakeWhois struct {
	record     models.WhoisRecord
	lookupErr  error
	historyErr error
	history    *models.WhoisHistory
	block      bool
	release    chan struct{}
	panicValue any
}

func (f *fakeWhois) Lookup(ctx context.Context, _ string) (*models.WhoisRecord, error) {
	if f.panicValue != nil {
		panic(f.panicValue)
	}
	if f.release != nil {
		<-f.release
		return nil, errors.New("too late")
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	rec := f.record
	return &rec, nil
}

func (f *fakeWhois) History(context.Context, string) (*models.WhoisHistory, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history, nil
}

type fakeUptime struct {
	stats *models.UptimeStats
	err   error
}

func (f *fakeUptime) Probe(context.Context, string) (*models.UptimeStats, error) {
	if f.stats == nil {
		return nil, f.err
	}
	s := *f.stats
	return &s, f.err
}

type fakeTrust struct {
	ssl         *models.SSLInfo
	sslErr      error
	homepage    *trust.Homepage
	homepageErr error
}

func (f *fakeTrust) InspectTLS(context.Context, string) (*models.SSLInfo, error) {
	if f.sslErr != nil {
		return nil, f.sslErr
	}
	s := *f.ssl
	return &s, nil
}

func (f *fakeTrust) FetchHomepage(context.Context, string) (*trust.Homepage, error) {
	if f.homepageErr != nil {
		return nil, f.homepageErr
	}
	return f.homepage, nil
}

func device(perf int) *models.DeviceReport {
	return &models.DeviceReport{
		Scores: models.CategoryScores{Performance: perf, Accessibility: 90, BestPractices: 96, SEO: 92},
		CoreWebVitals: models.CoreWebVitals{
			CLS: &models.Metric{Value: 0.02, Unit: "unitless", DisplayValue: "0.02"},
		},
		MobileUsability: models.MobileUsability{Checks: []models.UsabilityCheck{
			{ID: "viewport", Passed: true},
			{ID: "font-size", Passed: true},
		}},
		Opportunities: []models.Opportunity{},
	}
}

func healthyProviders() Providers {
	created := time.Date(2013, 4, 2, 0, 0, 0, 0, time.UTC)
	avg := 180
	header := http.Header{}
	header.Set("Strict-Transport-Security", "max-age=31536000")

	return Providers{
		PageSpeed: &fakePageSpeed{mobile: device(100), desktop: device(99)},
		Whois: &fakeWhois{
			record:  models.WhoisRecord{DomainName: "se1gym.co.uk", Registrar: "Dynadot, LLC t/a Dynadot", CreatedDate: &created},
			history: &models.WhoisHistory{TotalRecords: 4},
		},
		Uptime: &fakeUptime{stats: &models.UptimeStats{UptimePercentage: 100, AverageResponseTime: &avg, Status: models.UptimeStatusUp, Samples: 3}},
		Trust: &fakeTrust{
			ssl:      &models.SSLInfo{Valid: true, Issuer: "R3", DaysRemaining: 60, Protocol: "TLS 1.3"},
			homepage: &trust.Homepage{StatusCode: 200, Header: header, Page: trust.PageSignals{Title: "SE1 Gym", H1Count: 1, HasViewport: true, Lang: "en"}},
		},
	}
}

func newTestAnalyzer(t *testing.T, p Providers, timeouts Timeouts) *Analyzer {
	return New(p, timeouts, zaptest.NewLogger(t))
}

func allErrors(r models.DomainReport) []string {
	var out []string
	if r.PageSpeed != nil {
		out = append(out, r.PageSpeed.Errors...)
	}
	if r.Whois != nil {
		out = append(out, r.Whois.Errors...)
	}
	if r.TrustAndCRO != nil {
		out = append(out, r.TrustAndCRO.Errors...)
	}
	if r.Uptime != nil {
		out = append(out, r.Uptime.Errors...)
	}
	return out
}

func TestAnalyze_AllProvidersSucceed(t *testing.T) {
	defer goleak.VerifyNone(t)

	a := newTestAnalyzer(t, healthyProviders(), DefaultTimeouts())
	r := a.Analyze(context.Background(), "SE1GYM.co.uk", "")

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "se1gym.co.uk", r.Domain)
	assert.Equal(t, "https://se1gym.co.uk", r.URL)
	assert.Equal(t, 0, r.Summary.TotalErrors)
	assert.Equal(t, 4, r.Summary.ServicesCompleted)
	assert.Empty(t, allErrors(r))

	require.NotNil(t, r.PageSpeed.Mobile)
	require.NotNil(t, r.PageSpeed.Desktop)
	require.NotNil(t, r.Whois.Data)
	require.NotNil(t, r.Whois.Data.History)
	assert.Equal(t, 4, r.Whois.Data.History.TotalRecords)
	require.NotNil(t, r.TrustAndCRO.Security)
	require.NotNil(t, r.TrustAndCRO.CRO)
	assert.Equal(t, models.UptimeStatusUp, r.Uptime.Status)
	assert.False(t, r.Summary.AnalysisTimestamp.Before(r.Timestamp))
	assert.GreaterOrEqual(t, r.Summary.AnalysisDuration, int64(0))
}

func TestAnalyze_WhoisTimeoutLeavesOthersUntouched(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := healthyProviders()
	p.Whois = &fakeWhois{block: true}
	timeouts := DefaultTimeouts()
	timeouts.Whois = 20 * time.Millisecond

	r := newTestAnalyzer(t, p, timeouts).Analyze(context.Background(), "se1gym.co.uk", "")

	assert.Nil(t, r.Whois.Data)
	assert.Equal(t, []string{"WHOIS lookup failed: timeout of 20ms exceeded"}, r.Whois.Errors)
	assert.NotNil(t, r.PageSpeed.Mobile)
	assert.Equal(t, models.UptimeStatusUp, r.Uptime.Status)
	assert.Equal(t, []string{trust.ErrDomainAgeUnavailable}, r.TrustAndCRO.Errors)
	assert.Equal(t, 2, r.Summary.TotalErrors)
	assert.Equal(t, 3, r.Summary.ServicesCompleted)

	for _, e := range allErrors(r) {
		assert.NotContains(t, strings.ToLower(e), "nil pointer")
		assert.NotContains(t, strings.ToLower(e), "cannot read")
	}
}

func TestAnalyze_ProviderIgnoringContextStillTimesOut(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	p := healthyProviders()
	p.Whois = &fakeWhois{release: release}
	timeouts := DefaultTimeouts()
	timeouts.Whois = 20 * time.Millisecond

	start := time.Now()
	r := newTestAnalyzer(t, p, timeouts).Analyze(context.Background(), "se1gym.co.uk", "")
	close(release)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, []string{"WHOIS lookup failed: timeout of 20ms exceeded"}, r.Whois.Errors)
}

func TestAnalyze_PanickingProviderIsRecovered(t *testing.T) {
	p := healthyProviders()
	p.Whois = &fakeWhois{panicValue: "boom"}

	r := newTestAnalyzer(t, p, DefaultTimeouts()).Analyze(context.Background(), "se1gym.co.uk", "")

	assert.Nil(t, r.Whois.Data)
	assert.Equal(t, []string{"WHOIS lookup failed: internal error: boom"}, r.Whois.Errors)
	assert.Equal(t, models.UptimeStatusUp, r.Uptime.Status)
}

func TestAnalyze_AvailableSite(t *testing.T) {
	p := healthyProviders()
	p.Whois.(*fakeWhois).historyErr = &provider.StatusError{Code: http.StatusForbidden, Message: "Access restricted"}

	r := newTestAnalyzer(t, p, DefaultTimeouts()).Analyze(context.Background(), "se1gym.co.uk", "https://se1gym.co.uk/")

	assert.Equal(t, 100, r.PageSpeed.Mobile.Scores.Performance)
	assert.Equal(t, 99, r.PageSpeed.Desktop.Scores.Performance)
	require.NotNil(t, r.Whois.Data)
	assert.Equal(t, "Dynadot, LLC t/a Dynadot", r.Whois.Data.Registrar)
	assert.Nil(t, r.Whois.Data.History)
	assert.Equal(t, []string{"WHOIS history lookup failed: request failed with status code 403: Access restricted"}, r.Whois.Errors)
	assert.Equal(t, models.UptimeStatusUp, r.Uptime.Status)
	assert.Equal(t, 1, r.Summary.TotalErrors)
	assert.Equal(t, 4, r.Summary.ServicesCompleted)
}

func TestAnalyze_UnavailableSite(t *testing.T) {
	p := healthyProviders()
	p.PageSpeed = &fakePageSpeed{err: &provider.StatusError{Code: http.StatusBadRequest, Message: "Lighthouse returned error: FAILED_DOCUMENT_REQUEST."}}
	p.Uptime = &fakeUptime{
		stats: &models.UptimeStats{UptimePercentage: 0, Status: models.UptimeStatusDown, Samples: 3},
		err:   errors.New("dial tcp: lookup thethirdspace.com: no such host"),
	}
	p.Trust = &fakeTrust{
		sslErr:      errors.New("TLS connection failed: dial tcp: lookup thethirdspace.com: no such host"),
		homepageErr: errors.New("dial tcp: lookup thethirdspace.com: no such host"),
	}

	r := newTestAnalyzer(t, p, DefaultTimeouts()).Analyze(context.Background(), "thethirdspace.com", "")

	assert.Nil(t, r.PageSpeed.Mobile)
	assert.Nil(t, r.PageSpeed.Desktop)
	require.Len(t, r.PageSpeed.Errors, 2)
	assert.True(t, strings.HasPrefix(r.PageSpeed.Errors[0], "Mobile analysis failed: request failed with status code 400"))
	assert.True(t, strings.HasPrefix(r.PageSpeed.Errors[1], "Desktop analysis failed: request failed with status code 400"))
	assert.Equal(t, models.UptimeStatusDown, r.Uptime.Status)
	require.NotNil(t, r.Uptime.UptimePercentage)
	assert.Equal(t, 0.0, *r.Uptime.UptimePercentage)
	assert.Contains(t, r.TrustAndCRO.Errors, trust.ErrPageSpeedScoreUnavailable)
	assert.Nil(t, r.TrustAndCRO.CRO)

	assert.Equal(t, 6, r.Summary.TotalErrors)
	assert.Len(t, allErrors(r), 6)
	assert.Equal(t, models.ServicesFailed, r.Summary.ServicesCompleted)
}

func TestAnalyze_HangingHostIsReportedDown(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	p := healthyProviders()
	p.Uptime = uptime.New(uptime.Options{
		HTTPClient: ts.Client(),
		Samples:    3,
		Interval:   5 * time.Millisecond,
		Timeout:    30 * time.Millisecond,
	})
	timeouts := DefaultTimeouts()
	timeouts.Uptime = 100 * time.Millisecond

	r := newTestAnalyzer(t, p, timeouts).Analyze(context.Background(), "thethirdspace.com", ts.URL)

	require.NotNil(t, r.Uptime)
	assert.Equal(t, models.UptimeStatusDown, r.Uptime.Status)
	require.NotNil(t, r.Uptime.UptimePercentage)
	assert.Equal(t, 0.0, *r.Uptime.UptimePercentage)
	assert.Positive(t, r.Uptime.CheckedSamples)
	assert.Equal(t, []string{"Uptime check failed: request timed out"}, r.Uptime.Errors)
}

func TestAnalyze_DisabledProviders(t *testing.T) {
	p := healthyProviders()
	p.PageSpeed = nil
	p.Uptime = nil

	r := newTestAnalyzer(t, p, DefaultTimeouts()).Analyze(context.Background(), "se1gym.co.uk", "")

	assert.Nil(t, r.PageSpeed)
	assert.Nil(t, r.Uptime)
	assert.Equal(t, 0, r.Summary.TotalErrors)
	assert.Equal(t, 2, r.Summary.ServicesCompleted)
}

func TestAnalyze_Idempotent(t *testing.T) {
	a := newTestAnalyzer(t, healthyProviders(), DefaultTimeouts())
	first := a.Analyze(context.Background(), "se1gym.co.uk", "")
	second := a.Analyze(context.Background(), "se1gym.co.uk", "")

	assert.NotEqual(t, first.ID, second.ID)
	diff := cmp.Diff(first, second,
		cmpopts.IgnoreFields(models.DomainReport{}, "ID", "Timestamp"),
		cmpopts.IgnoreFields(models.Summary{}, "AnalysisTimestamp", "AnalysisDuration"),
	)
	assert.Empty(t, diff)
}

type countingUptime struct {
	inFlight, peak atomic.Int32
}

func (c *countingUptime) Probe(context.Context, string) (*models.UptimeStats, error) {
	n := c.inFlight.Add(1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	c.inFlight.Add(-1)
	return &models.UptimeStats{UptimePercentage: 100, Status: models.UptimeStatusUp, Samples: 1}, nil
}

func TestAnalyzeBatch_OrderAndLimit(t *testing.T) {
	defer goleak.VerifyNone(t)

	counter := &countingUptime{}
	a := newTestAnalyzer(t, Providers{Uptime: counter}, DefaultTimeouts())

	targets := []Target{
		{Domain: "a.com"},
		{Domain: "b.com", URL: "http://b.com/landing"},
		{Domain: "c.com"},
		{Domain: "d.com"},
	}
	reports := a.AnalyzeBatch(context.Background(), targets, 2)

	require.Len(t, reports, 4)
	for i, tgt := range targets {
		assert.Equal(t, tgt.Domain, reports[i].Domain)
	}
	assert.Equal(t, "http://b.com/landing", reports[1].URL)
	assert.LessOrEqual(t, counter.peak.Load(), int32(2))
}

func TestCall_ParentCancellationIsNotATimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := call(ctx, time.Second, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	var te *provider.TimeoutError
	assert.False(t, errors.As(err, &te))
}
