package models

import "time"

type Domain struct {
	ID   int    `json:"id" example:"1"`
	Name string `json:"name" example:"example.com"`
}

type Monitor struct {
	ID              int    `json:"id" example:"1"`
	DomainID        int    `json:"domain_id" example:"1"`
	URL             string `json:"url" example:"https://example.com"`
	IntervalSeconds int    `json:"interval_seconds" example:"3600"`
	Enabled         bool   `json:"enabled" example:"true"`
}

// StoredReport is a persisted DomainReport together with its summary columns.
type StoredReport struct {
	ID                int          `json:"id" example:"1"`
	DomainID          int          `json:"domain_id" example:"1"`
	ReportID          string       `json:"report_id" example:"6f1c0f5e-3f0e-4a55-9d1b-0b7f2c7d5a10"`
	TotalErrors       int          `json:"total_errors" example:"1"`
	ServicesCompleted int          `json:"services_completed" example:"4"`
	DurationMS        int64        `json:"duration_ms" example:"8421"`
	CreatedAt         string       `json:"created_at" example:"2024-01-01T12:00:00Z"`
	Report            DomainReport `json:"report"`
}

type NotificationSettings struct {
	ID              int    `json:"id" example:"1"`
	Type            string `json:"type" example:"telegram"`
	Enabled         bool   `json:"enabled" example:"true"`
	Token           string `json:"token,omitempty" example:"123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11"`
	ChatID          string `json:"chat_id,omitempty" example:"-1001234567890"`
	WebhookURL      string `json:"webhook_url,omitempty" example:"https://hooks.slack.com/services/..."`
	NotifyOnFailure bool   `json:"notify_on_failure" example:"true"`
	NotifyOnSuccess bool   `json:"notify_on_success" example:"false"`
}

// ServicesFailed is reported in Summary.ServicesCompleted when the target
// could not be reached at all.
const ServicesFailed = -1

// DomainReport is the composite result of one analysis. Every section is
// nil only when its provider is disabled.
type DomainReport struct {
	ID          string            `json:"id"`
	Domain      string            `json:"domain"`
	URL         string            `json:"url"`
	Timestamp   time.Time         `json:"timestamp"`
	PageSpeed   *PageSpeedSection `json:"pageSpeed"`
	Whois       *WhoisSection     `json:"whois"`
	TrustAndCRO *TrustSection     `json:"trustAndCRO"`
	Uptime      *UptimeSection    `json:"uptime"`
	Summary     Summary           `json:"summary"`
}

type Summary struct {
	TotalErrors       int       `json:"totalErrors"`
	ServicesCompleted int       `json:"servicesCompleted"`
	AnalysisDuration  int64     `json:"analysisDuration"`
	AnalysisTimestamp time.Time `json:"analysisTimestamp"`
}

type PageSpeedSection struct {
	Mobile  *DeviceReport `json:"mobile"`
	Desktop *DeviceReport `json:"desktop"`
	Errors  []string      `json:"errors"`
}

type DeviceReport struct {
	Scores          CategoryScores  `json:"scores"`
	CoreWebVitals   CoreWebVitals   `json:"coreWebVitals"`
	ServerMetrics   ServerMetrics   `json:"serverMetrics"`
	MobileUsability MobileUsability `json:"mobileUsability"`
	Opportunities   []Opportunity   `json:"opportunities"`
	FinalURL        string          `json:"finalUrl,omitempty"`
}

// CategoryScores are Lighthouse category scores on a 0-100 scale.
type CategoryScores struct {
	Performance   int `json:"performance"`
	Accessibility int `json:"accessibility"`
	BestPractices int `json:"bestPractices"`
	SEO           int `json:"seo"`
}

type Metric struct {
	Value        float64 `json:"value"`
	Unit         string  `json:"unit"`
	DisplayValue string  `json:"displayValue"`
}

type CoreWebVitals struct {
	LCP        *Metric `json:"lcp"`
	FID        *Metric `json:"fid"`
	CLS        *Metric `json:"cls"`
	FCP        *Metric `json:"fcp"`
	SpeedIndex *Metric `json:"speedIndex"`
}

type ServerMetrics struct {
	ServerResponseTime *Metric `json:"serverResponseTime"`
	TotalByteWeight    *Metric `json:"totalByteWeight"`
	DOMSize            *Metric `json:"domSize"`
}

type UsabilityCheck struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Passed bool   `json:"passed"`
}

type MobileUsability struct {
	Checks []UsabilityCheck `json:"checks"`
}

// PassRatio returns the share of passing checks, and false when there are none.
func (m MobileUsability) PassRatio() (float64, bool) {
	if len(m.Checks) == 0 {
		return 0, false
	}
	passed := 0
	for _, c := range m.Checks {
		if c.Passed {
			passed++
		}
	}
	return float64(passed) / float64(len(m.Checks)), true
}

type Opportunity struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	PotentialSavings float64 `json:"potentialSavings"`
	Unit             string  `json:"unit"`
}

type WhoisSection struct {
	Data   *WhoisRecord `json:"data"`
	Errors []string     `json:"errors"`
}

type WhoisRecord struct {
	DomainName  string        `json:"domainName"`
	Registrar   string        `json:"registrar"`
	CreatedDate *time.Time    `json:"createdDate"`
	UpdatedDate *time.Time    `json:"updatedDate"`
	ExpiresDate *time.Time    `json:"expiresDate"`
	Status      []string      `json:"status"`
	NameServers []string      `json:"nameServers"`
	History     *WhoisHistory `json:"history"`
}

type WhoisHistory struct {
	TotalRecords int `json:"totalRecords"`
}

type TrustSection struct {
	Security *SecurityScore `json:"security"`
	CRO      *CROScore      `json:"cro"`
	Errors   []string       `json:"errors"`
}

type SecurityScore struct {
	Score     int      `json:"score"`
	SSL       *int     `json:"ssl"`
	Headers   *int     `json:"headers"`
	DomainAge *int     `json:"domainAge"`
	SSLInfo   *SSLInfo `json:"sslInfo"`
	// AgeYears is the domain age in whole years, when known.
	AgeYears       *int     `json:"ageYears"`
	MissingHeaders []string `json:"missingHeaders"`
}

type SSLInfo struct {
	Valid         bool      `json:"valid"`
	Issuer        string    `json:"issuer"`
	Subject       string    `json:"subject"`
	NotBefore     time.Time `json:"notBefore"`
	NotAfter      time.Time `json:"notAfter"`
	DaysRemaining int       `json:"daysRemaining"`
	Protocol      string    `json:"protocol"`
	Error         string    `json:"error,omitempty"`
}

type CROScore struct {
	Score              int               `json:"score"`
	MobileFriendliness *int              `json:"mobileFriendliness"`
	Usability          *int              `json:"usability"`
	PageSpeed          *PageSpeedSummary `json:"pageSpeed"`
	UserExperience     *int              `json:"userExperience"`
}

type PageSpeedSummary struct {
	Mobile  *int `json:"mobile"`
	Desktop *int `json:"desktop"`
	Average int  `json:"average"`
}

type UptimeSection struct {
	UptimePercentage    *float64 `json:"uptimePercentage"`
	AverageResponseTime *int     `json:"averageResponseTime"`
	Status              string   `json:"status"`
	CheckedSamples      int      `json:"checkedSamples"`
	Errors              []string `json:"errors"`
}

const (
	UptimeStatusUp   = "up"
	UptimeStatusDown = "down"
)

// UptimeStats is what an uptime probe measured.
type UptimeStats struct {
	UptimePercentage    float64
	AverageResponseTime *int
	Status              string
	Samples             int
}
