// Package pagespeed talks to the PageSpeed Insights v5 API and reduces a
// Lighthouse result to a models.DeviceReport.
package pagespeed

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/MimoJanra/DomainReport/internal/checker"
	"github.com/MimoJanra/DomainReport/internal/models"
	"github.com/MimoJanra/DomainReport/internal/provider"
)

type Strategy string

const (
	StrategyMobile  Strategy = "mobile"
	StrategyDesktop Strategy = "desktop"
)

const DefaultBaseURL = "https://www.googleapis.com/pagespeedonline/v5"

var categories = []string{"performance", "accessibility", "best-practices", "seo"}

type Client struct {
	baseURL string
	apiKey  string
	http    *provider.Client
	limiter *checker.RateLimiter
}

// New builds a client. A ratePerMinute <= 0 disables client-side throttling.
func New(baseURL, apiKey string, httpClient *http.Client, ratePerMinute int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		http:    provider.NewClient(httpClient),
	}
	if ratePerMinute > 0 {
		c.limiter = checker.NewRateLimiter(ratePerMinute, 0)
	}
	return c
}

// Run analyses targetURL with one Lighthouse strategy.
func (c *Client) Run(ctx context.Context, targetURL string, strategy Strategy) (*models.DeviceReport, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("url", targetURL)
	query.Set("strategy", string(strategy))
	for _, cat := range categories {
		query.Add("category", cat)
	}
	if c.apiKey != "" {
		query.Set("key", c.apiKey)
	}

	var resp runPagespeedResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/runPagespeed", query, &resp); err != nil {
		return nil, err
	}
	if resp.LighthouseResult == nil {
		return nil, fmt.Errorf("lighthouseResult missing: %w", provider.ErrUnexpectedShape)
	}
	if msg := resp.LighthouseResult.RuntimeError.Message; msg != "" {
		return nil, fmt.Errorf("lighthouse runtime error: %s", msg)
	}

	return resp.LighthouseResult.toDeviceReport(), nil
}

type runPagespeedResponse struct {
	ID               string            `json:"id"`
	LighthouseResult *lighthouseResult `json:"lighthouseResult"`
}

type lighthouseResult struct {
	RequestedURL string              `json:"requestedUrl"`
	FinalURL     string              `json:"finalUrl"`
	Categories   map[string]category `json:"categories"`
	Audits       map[string]audit    `json:"audits"`
	RuntimeError struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"runtimeError"`
}

type category struct {
	ID    string   `json:"id"`
	Score *float64 `json:"score"`
}

type audit struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Score        *float64      `json:"score"`
	NumericValue *float64      `json:"numericValue"`
	NumericUnit  string        `json:"numericUnit"`
	DisplayValue string        `json:"displayValue"`
	Details      *auditDetails `json:"details"`
}

type auditDetails struct {
	Type                string   `json:"type"`
	OverallSavingsMs    *float64 `json:"overallSavingsMs"`
	OverallSavingsBytes *float64 `json:"overallSavingsBytes"`
}

var mobileUsabilityAudits = []string{"viewport", "font-size", "tap-targets"}

func (lr *lighthouseResult) toDeviceReport() *models.DeviceReport {
	report := &models.DeviceReport{
		Scores: models.CategoryScores{
			Performance:   lr.categoryScore("performance"),
			Accessibility: lr.categoryScore("accessibility"),
			BestPractices: lr.categoryScore("best-practices"),
			SEO:           lr.categoryScore("seo"),
		},
		CoreWebVitals: models.CoreWebVitals{
			LCP:        lr.metric("largest-contentful-paint"),
			FID:        lr.metric("max-potential-fid"),
			CLS:        lr.metric("cumulative-layout-shift"),
			FCP:        lr.metric("first-contentful-paint"),
			SpeedIndex: lr.metric("speed-index"),
		},
		ServerMetrics: models.ServerMetrics{
			ServerResponseTime: lr.metric("server-response-time"),
			TotalByteWeight:    lr.metric("total-byte-weight"),
			DOMSize:            lr.metric("dom-size"),
		},
		MobileUsability: models.MobileUsability{Checks: []models.UsabilityCheck{}},
		Opportunities:   lr.opportunities(),
		FinalURL:        lr.FinalURL,
	}

	for _, id := range mobileUsabilityAudits {
		a, ok := lr.Audits[id]
		if !ok || a.Score == nil {
			continue
		}
		report.MobileUsability.Checks = append(report.MobileUsability.Checks, models.UsabilityCheck{
			ID:     id,
			Title:  a.Title,
			Passed: *a.Score >= 0.9,
		})
	}

	return report
}

func (lr *lighthouseResult) categoryScore(id string) int {
	c, ok := lr.Categories[id]
	if !ok || c.Score == nil {
		return 0
	}
	return int(math.Round(*c.Score * 100))
}

func (lr *lighthouseResult) metric(id string) *models.Metric {
	a, ok := lr.Audits[id]
	if !ok || a.NumericValue == nil {
		return nil
	}
	return &models.Metric{
		Value:        *a.NumericValue,
		Unit:         unitName(a.NumericUnit),
		DisplayValue: a.DisplayValue,
	}
}

func (lr *lighthouseResult) opportunities() []models.Opportunity {
	out := []models.Opportunity{}
	for id, a := range lr.Audits {
		if a.Details == nil || a.Details.Type != "opportunity" {
			continue
		}
		var savings float64
		unit := "ms"
		switch {
		case a.Details.OverallSavingsMs != nil && *a.Details.OverallSavingsMs > 0:
			savings = *a.Details.OverallSavingsMs
		case a.Details.OverallSavingsBytes != nil && *a.Details.OverallSavingsBytes > 0:
			savings = *a.Details.OverallSavingsBytes
			unit = "bytes"
		default:
			continue
		}
		out = append(out, models.Opportunity{
			ID:               id,
			Title:            a.Title,
			Description:      a.Description,
			PotentialSavings: math.Round(savings),
			Unit:             unit,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Unit != out[j].Unit {
			return out[i].Unit == "ms"
		}
		if out[i].PotentialSavings != out[j].PotentialSavings {
			return out[i].PotentialSavings > out[j].PotentialSavings
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func unitName(numericUnit string) string {
	switch numericUnit {
	case "millisecond":
		return "ms"
	case "byte":
		return "bytes"
	default:
		return numericUnit
	}
}
