package app

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/MimoJanra/DomainReport/internal/analyzer"
	"github.com/MimoJanra/DomainReport/internal/config"
	"github.com/MimoJanra/DomainReport/internal/provider/pagespeed"
	"github.com/MimoJanra/DomainReport/internal/provider/trust"
	"github.com/MimoJanra/DomainReport/internal/provider/uptime"
	"github.com/MimoJanra/DomainReport/internal/provider/whois"
)

// NewAnalyzer builds the analyzer with every provider enabled in cfg.
func NewAnalyzer(cfg *config.Config, logger *zap.Logger) *analyzer.Analyzer {
	pc := cfg.Providers
	var providers analyzer.Providers

	if pc.PageSpeed.Enabled {
		providers.PageSpeed = pagespeed.New(pc.PageSpeed.BaseURL, pc.PageSpeed.APIKey, &http.Client{}, pc.PageSpeed.RatePerMinute)
	}
	if pc.Whois.Enabled {
		providers.Whois = whois.New(whois.Options{
			BaseURL:    pc.Whois.BaseURL,
			HistoryURL: pc.Whois.HistoryURL,
			APIKey:     pc.Whois.APIKey,
			HTTPClient: &http.Client{},
			CacheTTL:   pc.Whois.CacheTTL,
			CacheSize:  pc.Whois.CacheSize,
		})
	}
	if pc.Uptime.Enabled {
		providers.Uptime = uptime.New(uptime.Options{
			Samples:  pc.Uptime.Samples,
			Interval: pc.Uptime.Interval,
			Timeout:  pc.Uptime.ProbeTimeout,
		})
	}
	if pc.Trust.Enabled {
		providers.Trust = trust.NewProber(&http.Client{}, pc.Trust.TLSPort, pc.Trust.Timeout)
	}

	logger.Info("providers configured",
		zap.Bool("pagespeed", pc.PageSpeed.Enabled),
		zap.Bool("whois", pc.Whois.Enabled),
		zap.Bool("trust", pc.Trust.Enabled),
		zap.Bool("uptime", pc.Uptime.Enabled),
	)

	return analyzer.New(providers, analyzer.Timeouts{
		PageSpeed: pc.PageSpeed.Timeout,
		Whois:     pc.Whois.Timeout,
		Trust:     pc.Trust.Timeout,
		Uptime:    pc.Uptime.Timeout,
	}, logger.Named("analyzer"))
}
