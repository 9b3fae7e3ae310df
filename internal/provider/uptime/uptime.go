// Package uptime measures availability of a URL with a short burst of HTTP
// probes.
package uptime

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/MimoJanra/DomainReport/internal/checker"
	"github.com/MimoJanra/DomainReport/internal/models"
)

type Prober struct {
	client   *http.Client
	samples  int
	interval time.Duration
	timeout  time.Duration
}

type Options struct {
	HTTPClient *http.Client
	Samples    int
	Interval   time.Duration
	// Timeout applies to each probe, not to the whole burst.
	Timeout time.Duration
}

func New(opts Options) *Prober {
	p := &Prober{
		client:   opts.HTTPClient,
		samples:  opts.Samples,
		interval: opts.Interval,
		timeout:  opts.Timeout,
	}
	if p.client == nil {
		p.client = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}
	if p.samples <= 0 {
		p.samples = 3
	}
	if p.timeout <= 0 {
		p.timeout = 5 * time.Second
	}
	return p
}

// Probe runs the configured number of samples against target. When no
// sample is up the stats are still returned together with an error naming
// the last failure.
//
// If ctx carries a deadline the burst stops a little before it, and the
// samples taken so far are reported; a burst cut short with nothing up is
// "down". Only cancellation of ctx discards the samples.
func (p *Prober) Probe(ctx context.Context, target string) (*models.UptimeStats, error) {
	burstCtx, cancel := burstContext(ctx)
	defer cancel()

	var (
		up        int
		total     int
		totalMS   int
		lastError string
	)

	for i := 0; i < p.samples; i++ {
		if i > 0 && p.interval > 0 {
			timer := time.NewTimer(p.interval)
			select {
			case <-burstCtx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
		if burstCtx.Err() != nil {
			break
		}

		res := checker.RunHTTPCheck(burstCtx, p.client, target, p.timeout)
		total++
		if res.Up() {
			up++
			totalMS += res.DurationMS
			continue
		}
		lastError = describe(res)
	}

	if err := ctx.Err(); errors.Is(err, context.Canceled) {
		return nil, err
	}

	stats := &models.UptimeStats{
		Status:  models.UptimeStatusDown,
		Samples: total,
	}
	if total > 0 {
		stats.UptimePercentage = math.Round(float64(up)/float64(total)*10000) / 100
	}
	if up > 0 {
		avg := int(math.Round(float64(totalMS) / float64(up)))
		stats.AverageResponseTime = &avg
		stats.Status = models.UptimeStatusUp
		return stats, nil
	}
	if lastError == "" {
		lastError = "request timed out"
	}
	return stats, errors.New(lastError)
}

// burstContext ends the burst a tenth of the remaining budget before ctx's
// deadline, so the result reaches a caller that waits on the same deadline.
func burstContext(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return context.WithCancel(ctx)
	}
	guard := time.Until(deadline) / 10
	return context.WithDeadline(ctx, deadline.Add(-guard))
}

func describe(res checker.CheckResult) string {
	switch {
	case res.Status == checker.StatusTimeout:
		return "request timed out"
	case res.StatusCode > 0:
		return fmt.Sprintf("server responded with status code %d", res.StatusCode)
	case res.ErrorMessage != "":
		return res.ErrorMessage
	default:
		return "no response"
	}
}
