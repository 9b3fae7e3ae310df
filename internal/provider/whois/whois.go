// Package whois queries a WhoisXML-style JSON API for registration data and
// the number of historic WHOIS records of a domain.
package whois

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/MimoJanra/DomainReport/internal/models"
	"github.com/MimoJanra/DomainReport/internal/provider"
)

const (
	DefaultBaseURL    = "https://www.whoisxmlapi.com/whoisserver/WhoisService"
	DefaultHistoryURL = "https://whois-history.whoisxmlapi.com/api/v1"
)

type Client struct {
	baseURL    string
	historyURL string
	apiKey     string
	http       *provider.Client
	cache      *Cache
}

type Options struct {
	BaseURL    string
	HistoryURL string
	APIKey     string
	HTTPClient *http.Client
	// CacheTTL <= 0 disables caching of successful lookups.
	CacheTTL  time.Duration
	CacheSize int
}

func New(opts Options) *Client {
	c := &Client{
		baseURL:    opts.BaseURL,
		historyURL: opts.HistoryURL,
		apiKey:     opts.APIKey,
		http:       provider.NewClient(opts.HTTPClient),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.historyURL == "" {
		c.historyURL = DefaultHistoryURL
	}
	if opts.CacheTTL > 0 {
		size := opts.CacheSize
		if size <= 0 {
			size = 1000
		}
		c.cache = NewCache(size, opts.CacheTTL)
	}
	return c
}

// RegistrableDomain reduces a host name to its eTLD+1, which is what
// registries answer for.
func RegistrableDomain(domain string) string {
	host := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return registrable
}

// Lookup returns the registration record for domain. History is left nil;
// it is fetched separately with History.
func (c *Client) Lookup(ctx context.Context, domain string) (*models.WhoisRecord, error) {
	name := RegistrableDomain(domain)
	if c.cache != nil {
		if rec, ok := c.cache.Get(name); ok {
			return rec, nil
		}
	}

	query := url.Values{}
	query.Set("domainName", name)
	query.Set("outputFormat", "JSON")
	if c.apiKey != "" {
		query.Set("apiKey", c.apiKey)
	}

	var resp whoisResponse
	if err := c.http.GetJSON(ctx, c.baseURL, query, &resp); err != nil {
		return nil, err
	}
	if resp.ErrorMessage != nil && resp.ErrorMessage.Msg != "" {
		return nil, fmt.Errorf("upstream error: %s", resp.ErrorMessage.Msg)
	}
	if resp.WhoisRecord == nil {
		return nil, fmt.Errorf("WhoisRecord missing: %w", provider.ErrUnexpectedShape)
	}

	rec := resp.WhoisRecord.toModel(name)
	if c.cache != nil {
		c.cache.Set(name, rec)
	}
	return rec, nil
}

// History returns how many historic WHOIS records the upstream holds.
func (c *Client) History(ctx context.Context, domain string) (*models.WhoisHistory, error) {
	query := url.Values{}
	query.Set("domainName", RegistrableDomain(domain))
	query.Set("mode", "preview")
	if c.apiKey != "" {
		query.Set("apiKey", c.apiKey)
	}

	var resp historyResponse
	if err := c.http.GetJSON(ctx, c.historyURL, query, &resp); err != nil {
		return nil, err
	}
	if resp.RecordsCount == nil {
		return nil, fmt.Errorf("recordsCount missing: %w", provider.ErrUnexpectedShape)
	}
	return &models.WhoisHistory{TotalRecords: *resp.RecordsCount}, nil
}

type whoisResponse struct {
	WhoisRecord  *whoisRecord `json:"WhoisRecord"`
	ErrorMessage *struct {
		ErrorCode string `json:"errorCode"`
		Msg       string `json:"msg"`
	} `json:"ErrorMessage"`
}

type whoisFields struct {
	DomainName    string `json:"domainName"`
	CreatedDate   string `json:"createdDate"`
	UpdatedDate   string `json:"updatedDate"`
	ExpiresDate   string `json:"expiresDate"`
	RegistrarName string `json:"registrarName"`
	Status        string `json:"status"`
	NameServers   *struct {
		HostNames []string `json:"hostNames"`
	} `json:"nameServers"`
}

type whoisRecord struct {
	whoisFields
	RegistryData *whoisFields `json:"registryData"`
}

type historyResponse struct {
	RecordsCount *int `json:"recordsCount"`
}

func (r *whoisRecord) toModel(fallbackName string) *models.WhoisRecord {
	reg := whoisFields{}
	if r.RegistryData != nil {
		reg = *r.RegistryData
	}

	rec := &models.WhoisRecord{
		DomainName:  firstNonEmpty(r.DomainName, reg.DomainName, fallbackName),
		Registrar:   firstNonEmpty(r.RegistrarName, reg.RegistrarName),
		CreatedDate: parseDate(firstNonEmpty(r.CreatedDate, reg.CreatedDate)),
		UpdatedDate: parseDate(firstNonEmpty(r.UpdatedDate, reg.UpdatedDate)),
		ExpiresDate: parseDate(firstNonEmpty(r.ExpiresDate, reg.ExpiresDate)),
		Status:      splitStatus(firstNonEmpty(r.Status, reg.Status)),
		NameServers: []string{},
	}

	servers := r.NameServers
	if servers == nil || len(servers.HostNames) == 0 {
		servers = reg.NameServers
	}
	if servers != nil {
		for _, h := range servers.HostNames {
			if h = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(h), ".")); h != "" {
				rec.NameServers = append(rec.NameServers, h)
			}
		}
	}
	return rec
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

var eppCode = regexp.MustCompile(`^(ok|active|inactive|[a-z]+[A-Z][A-Za-z]*)$`)

// splitStatus splits a status field on newlines and commas. A part made of
// EPP codes is split further and loses the ICANN explanation links that
// follow each code; any other part is a registry phrase and is kept whole.
func splitStatus(raw string) []string {
	out := []string{}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '\n' || r == '\r' || r == ',' })
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if codes, ok := eppCodes(part); ok {
			out = append(out, codes...)
			continue
		}
		out = append(out, part)
	}
	return out
}

func eppCodes(part string) ([]string, bool) {
	var codes []string
	for _, tok := range strings.Fields(part) {
		if strings.HasPrefix(tok, "http://") || strings.HasPrefix(tok, "https://") {
			if len(codes) == 0 {
				return nil, false
			}
			continue
		}
		if !eppCode.MatchString(tok) {
			return nil, false
		}
		codes = append(codes, tok)
	}
	return codes, len(codes) > 0
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
}

func parseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
