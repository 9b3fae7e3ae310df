package trust

import (
	"math"
	"net/http"
	"time"

	"github.com/MimoJanra/DomainReport/internal/models"
)

const (
	ErrDomainAgeUnavailable      = "Domain age unavailable: WHOIS data unavailable"
	ErrCreationDateMissing       = "Domain age unavailable: creation date missing from WHOIS record"
	ErrPageSpeedScoreUnavailable = "Page-speed dependent scores unavailable: page-speed data unavailable"
)

// Inputs collects everything scoring looks at. A nil section means its
// provider is disabled, which is not reported as a missing dependency; a
// section whose payload is nil means the provider failed.
type Inputs struct {
	SSL       *models.SSLInfo
	Homepage  *Homepage
	Whois     *models.WhoisSection
	PageSpeed *models.PageSpeedSection
	Now       time.Time
}

type securityHeader struct {
	name   string
	weight int
}

var securityHeaders = []securityHeader{
	{"Strict-Transport-Security", 25},
	{"Content-Security-Policy", 25},
	{"X-Frame-Options", 15},
	{"X-Content-Type-Options", 15},
	{"Referrer-Policy", 10},
	{"Permissions-Policy", 10},
}

// Score derives the security and CRO scores. It never dereferences a
// missing dependency; instead the returned messages say which derivations
// were skipped.
func Score(in Inputs) (*models.SecurityScore, *models.CROScore, []string) {
	if in.Now.IsZero() {
		in.Now = time.Now()
	}
	var errs []string

	security := &models.SecurityScore{MissingHeaders: []string{}}
	var parts []int

	if in.SSL != nil {
		v := sslScore(in.SSL)
		security.SSL = &v
		security.SSLInfo = in.SSL
		parts = append(parts, v)
	}
	if in.Homepage != nil {
		v, missing := headerScore(in.Homepage.Header)
		security.Headers = &v
		security.MissingHeaders = missing
		parts = append(parts, v)
	}
	if in.Whois != nil {
		switch {
		case in.Whois.Data == nil:
			errs = append(errs, ErrDomainAgeUnavailable)
		case in.Whois.Data.CreatedDate == nil:
			errs = append(errs, ErrCreationDateMissing)
		default:
			years := ageYears(*in.Whois.Data.CreatedDate, in.Now)
			v := domainAgeScore(years)
			security.AgeYears = &years
			security.DomainAge = &v
			parts = append(parts, v)
		}
	}
	if len(parts) > 0 {
		security.Score = mean(parts)
	} else {
		security = nil
	}

	cro := &models.CROScore{}
	var croParts []int

	var mobile, desktop *models.DeviceReport
	if in.PageSpeed != nil {
		mobile, desktop = in.PageSpeed.Mobile, in.PageSpeed.Desktop
		if mobile == nil && desktop == nil {
			errs = append(errs, ErrPageSpeedScoreUnavailable)
		}
	}

	if mobile != nil {
		if ratio, ok := mobile.MobileUsability.PassRatio(); ok {
			v := int(math.Round(ratio * 100))
			cro.MobileFriendliness = &v
			croParts = append(croParts, v)
		}
	}
	if in.Homepage != nil {
		v := usabilityScore(in.Homepage.Page)
		cro.Usability = &v
		croParts = append(croParts, v)
	}
	if mobile != nil || desktop != nil {
		summary := &models.PageSpeedSummary{}
		var perf []int
		if mobile != nil {
			v := mobile.Scores.Performance
			summary.Mobile = &v
			perf = append(perf, v)
		}
		if desktop != nil {
			v := desktop.Scores.Performance
			summary.Desktop = &v
			perf = append(perf, v)
		}
		summary.Average = mean(perf)
		cro.PageSpeed = summary
		croParts = append(croParts, summary.Average)
	}
	if len(croParts) > 0 {
		v := userExperience(mean(croParts), cumulativeLayoutShift(mobile, desktop))
		cro.UserExperience = &v
		croParts = append(croParts, v)
		cro.Score = mean(croParts)
	} else {
		cro = nil
	}

	return security, cro, errs
}

func sslScore(info *models.SSLInfo) int {
	switch {
	case !info.Valid:
		return 0
	case info.DaysRemaining <= 7:
		return 40
	case info.DaysRemaining <= 30:
		return 70
	default:
		return 100
	}
}

func headerScore(h http.Header) (int, []string) {
	score := 0
	missing := []string{}
	for _, sh := range securityHeaders {
		if h.Get(sh.name) != "" {
			score += sh.weight
			continue
		}
		missing = append(missing, sh.name)
	}
	return score, missing
}

func ageYears(created, now time.Time) int {
	years := now.Year() - created.Year()
	if created.AddDate(years, 0, 0).After(now) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

func domainAgeScore(years int) int {
	switch {
	case years >= 10:
		return 100
	case years >= 5:
		return 85
	case years >= 2:
		return 70
	case years >= 1:
		return 50
	default:
		return 25
	}
}

func usabilityScore(p PageSignals) int {
	checks := []bool{
		p.Title != "",
		p.MetaDescription != "",
		p.H1Count > 0,
		p.HasViewport,
		p.Lang != "",
	}
	total := 0.0
	for _, ok := range checks {
		if ok {
			total++
		}
	}
	if p.Images == 0 {
		total++
	} else {
		total += float64(p.ImagesWithAlt) / float64(p.Images)
	}
	return int(math.Round(total / float64(len(checks)+1) * 100))
}

// cumulativeLayoutShift prefers the mobile measurement.
func cumulativeLayoutShift(mobile, desktop *models.DeviceReport) *float64 {
	for _, d := range []*models.DeviceReport{mobile, desktop} {
		if d != nil && d.CoreWebVitals.CLS != nil {
			v := d.CoreWebVitals.CLS.Value
			return &v
		}
	}
	return nil
}

func userExperience(base int, cls *float64) int {
	if cls == nil {
		return base
	}
	switch {
	case *cls > 0.25:
		base -= 20
	case *cls > 0.1:
		base -= 10
	}
	if base < 0 {
		return 0
	}
	return base
}

func mean(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return int(math.Round(float64(sum) / float64(len(values))))
}
