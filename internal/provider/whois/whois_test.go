package whois

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimoJanra/DomainReport/internal/models"
	"github.com/MimoJanra/DomainReport/internal/provider"
)

const se1gymRecord = `{
  "WhoisRecord": {
    "domainName": "se1gym.co.uk",
    "registrarName": "Dynadot, LLC t/a Dynadot",
    "createdDate": "2013-04-02T00:00:00Z",
    "updatedDate": "2024-03-08T00:00:00Z",
    "expiresDate": "2026-04-02T00:00:00Z",
    "status": "Registered until expiry date.",
    "nameServers": {"hostNames": ["NS1.DYNADOT.COM.", "ns2.dynadot.com"]}
  }
}`

func TestRegistrableDomain(t *testing.T) {
	assert.Equal(t, "se1gym.co.uk", RegistrableDomain("www.se1gym.co.uk"))
	assert.Equal(t, "example.com", RegistrableDomain("Shop.Example.COM."))
	assert.Equal(t, "localhost", RegistrableDomain("localhost"))
}

func TestClientLookup(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "se1gym.co.uk", r.URL.Query().Get("domainName"))
		assert.Equal(t, "JSON", r.URL.Query().Get("outputFormat"))
		assert.Equal(t, "k", r.URL.Query().Get("apiKey"))
		fmt.Fprint(w, se1gymRecord)
	}))
	defer ts.Close()

	c := New(Options{BaseURL: ts.URL, APIKey: "k", HTTPClient: ts.Client()})
	rec, err := c.Lookup(context.Background(), "www.se1gym.co.uk")
	require.NoError(t, err)

	assert.Equal(t, "se1gym.co.uk", rec.DomainName)
	assert.Equal(t, "Dynadot, LLC t/a Dynadot", rec.Registrar)
	require.NotNil(t, rec.CreatedDate)
	assert.Equal(t, 2013, rec.CreatedDate.Year())
	require.NotNil(t, rec.ExpiresDate)
	assert.Equal(t, []string{"ns1.dynadot.com", "ns2.dynadot.com"}, rec.NameServers)
	assert.Equal(t, []string{"Registered until expiry date."}, rec.Status)
	assert.Nil(t, rec.History)
}

func TestClientLookup_RegistryDataFallback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"WhoisRecord":{"domainName":"example.com","registryData":{
			"createdDate":"1995-08-14 04:00:00 UTC",
			"registrarName":"RESERVED-Internet Assigned Numbers Authority",
			"status":"clientDeleteProhibited https://icann.org/epp#clientDeleteProhibited",
			"nameServers":{"hostNames":["a.iana-servers.net"]}}}}`)
	}))
	defer ts.Close()

	c := New(Options{BaseURL: ts.URL, HTTPClient: ts.Client()})
	rec, err := c.Lookup(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, "RESERVED-Internet Assigned Numbers Authority", rec.Registrar)
	require.NotNil(t, rec.CreatedDate)
	assert.Equal(t, 1995, rec.CreatedDate.Year())
	assert.Equal(t, []string{"clientDeleteProhibited"}, rec.Status)
	assert.Equal(t, []string{"a.iana-servers.net"}, rec.NameServers)
}

func TestClientLookup_UpstreamErrors(t *testing.T) {
	t.Run("error message envelope", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"ErrorMessage":{"errorCode":"WHOIS_01","msg":"API key is invalid"}}`)
		}))
		defer ts.Close()

		_, err := New(Options{BaseURL: ts.URL, HTTPClient: ts.Client()}).Lookup(context.Background(), "example.com")
		assert.ErrorContains(t, err, "API key is invalid")
	})

	t.Run("missing record", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{}`)
		}))
		defer ts.Close()

		_, err := New(Options{BaseURL: ts.URL, HTTPClient: ts.Client()}).Lookup(context.Background(), "example.com")
		assert.ErrorIs(t, err, provider.ErrUnexpectedShape)
	})

	t.Run("server error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer ts.Close()

		_, err := New(Options{BaseURL: ts.URL, HTTPClient: ts.Client()}).Lookup(context.Background(), "example.com")
		var se *provider.StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	})
}

func TestClientLookup_UsesCache(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, se1gymRecord)
	}))
	defer ts.Close()

	c := New(Options{BaseURL: ts.URL, HTTPClient: ts.Client(), CacheTTL: time.Hour})
	first, err := c.Lookup(context.Background(), "se1gym.co.uk")
	require.NoError(t, err)
	first.History = &models.WhoisHistory{TotalRecords: 3}

	second, err := c.Lookup(context.Background(), "www.se1gym.co.uk")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Nil(t, second.History)
	assert.Equal(t, first.Registrar, second.Registrar)
}

func TestClientHistory(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "preview", r.URL.Query().Get("mode"))
		fmt.Fprint(w, `{"recordsCount": 7}`)
	}))
	defer ts.Close()

	c := New(Options{HistoryURL: ts.URL, HTTPClient: ts.Client()})
	h, err := c.History(context.Background(), "se1gym.co.uk")
	require.NoError(t, err)
	assert.Equal(t, 7, h.TotalRecords)
}

func TestClientHistory_MissingCount(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"records": []}`)
	}))
	defer ts.Close()

	_, err := New(Options{HistoryURL: ts.URL, HTTPClient: ts.Client()}).History(context.Background(), "example.com")
	assert.ErrorIs(t, err, provider.ErrUnexpectedShape)
}

func TestCache_ExpiryAndEviction(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCache(2, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("a.com", &models.WhoisRecord{DomainName: "a.com"})
	now = now.Add(time.Second)
	c.Set("b.com", &models.WhoisRecord{DomainName: "b.com"})
	now = now.Add(time.Second)
	c.Set("c.com", &models.WhoisRecord{DomainName: "c.com"})

	assert.Equal(t, 2, c.Size())
	_, ok := c.Get("a.com")
	assert.False(t, ok, "oldest entry should be evicted")

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("c.com")
	assert.False(t, ok, "entry should expire")
}

func TestSplitStatus(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "registry phrase", raw: "Registered until expiry date.", want: []string{"Registered until expiry date."}},
		{name: "epp code with link", raw: "clientTransferProhibited https://icann.org/epp#clientTransferProhibited", want: []string{"clientTransferProhibited"}},
		{
			name: "space separated codes",
			raw:  "clientDeleteProhibited https://icann.org/epp#clientDeleteProhibited clientUpdateProhibited https://icann.org/epp#clientUpdateProhibited",
			want: []string{"clientDeleteProhibited", "clientUpdateProhibited"},
		},
		{name: "newline separated", raw: "ok\nRenewal request being processed.", want: []string{"ok", "Renewal request being processed."}},
		{name: "comma separated", raw: "serverHold, No longer required", want: []string{"serverHold", "No longer required"}},
		{name: "link without code kept", raw: "see https://example.com/status", want: []string{"see https://example.com/status"}},
		{name: "empty", raw: "", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitStatus(tt.raw))
		})
	}
}

func TestClientLookup_CachedRecordKeepsShape(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"WhoisRecord":{"domainName":"example.org","registrarName":"Example Registrar"}}`)
	}))
	defer ts.Close()

	c := New(Options{BaseURL: ts.URL, HTTPClient: ts.Client(), CacheTTL: time.Hour})
	first, err := c.Lookup(context.Background(), "example.org")
	require.NoError(t, err)
	second, err := c.Lookup(context.Background(), "example.org")
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(firstJSON), string(secondJSON))
	assert.NotNil(t, second.Status)
	assert.NotNil(t, second.NameServers)
}
