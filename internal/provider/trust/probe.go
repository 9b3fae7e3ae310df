// Package trust inspects a site's TLS certificate and homepage and turns
// those observations, together with WHOIS and page-speed results, into
// security and conversion-rate scores.
package trust

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/MimoJanra/DomainReport/internal/checker"
	"github.com/MimoJanra/DomainReport/internal/models"
)

const maxHomepageBytes = 2 << 20

type Prober struct {
	client  *http.Client
	tlsPort int
	timeout time.Duration
}

func NewProber(httpClient *http.Client, tlsPort int, timeout time.Duration) *Prober {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if tlsPort <= 0 {
		tlsPort = 443
	}
	return &Prober{client: httpClient, tlsPort: tlsPort, timeout: timeout}
}

// InspectTLS reports the certificate presented by host. An invalid or
// expired certificate is not an error; failing to complete a handshake is.
func (p *Prober) InspectTLS(ctx context.Context, host string) (*models.SSLInfo, error) {
	res, err := checker.RunTLSCheck(ctx, host, p.tlsPort, p.timeout)
	if err != nil {
		return nil, err
	}
	return &models.SSLInfo{
		Valid:         res.Valid,
		Issuer:        res.Issuer,
		Subject:       res.Subject,
		NotBefore:     res.NotBefore,
		NotAfter:      res.NotAfter,
		DaysRemaining: res.DaysRemaining,
		Protocol:      res.Version,
		Error:         res.VerifyError,
	}, nil
}

// Homepage is what the scorer needs from one fetch of the landing page.
type Homepage struct {
	StatusCode int
	Header     http.Header
	Page       PageSignals
}

// PageSignals are the usability markers found in the HTML document.
type PageSignals struct {
	Title           string
	MetaDescription string
	H1Count         int
	HasViewport     bool
	Lang            string
	Images          int
	ImagesWithAlt   int
}

func (p *Prober) FetchHomepage(ctx context.Context, target string) (*Homepage, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", checker.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("server responded with status code %d", resp.StatusCode)
	}

	page, err := ParsePage(io.LimitReader(resp.Body, maxHomepageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return &Homepage{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Page:       page,
	}, nil
}

func ParsePage(r io.Reader) (PageSignals, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return PageSignals{}, err
	}
	var s PageSignals
	walk(doc, &s, 0)
	return s, nil
}

func walk(n *html.Node, s *PageSignals, depth int) {
	if depth > 200 {
		return
	}
	if n.Type == html.ElementNode {
		switch n.Data {
		case "html":
			s.Lang = strings.TrimSpace(getAttr(n, "lang"))
		case "title":
			if s.Title == "" {
				s.Title = strings.TrimSpace(textContent(n))
			}
		case "meta":
			switch strings.ToLower(getAttr(n, "name")) {
			case "description":
				s.MetaDescription = strings.TrimSpace(getAttr(n, "content"))
			case "viewport":
				s.HasViewport = strings.TrimSpace(getAttr(n, "content")) != ""
			}
		case "h1":
			s.H1Count++
		case "img":
			s.Images++
			if strings.TrimSpace(getAttr(n, "alt")) != "" {
				s.ImagesWithAlt++
			}
		case "script", "style", "noscript":
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, s, depth+1)
	}
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
