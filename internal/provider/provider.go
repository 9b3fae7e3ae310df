// Package provider holds the HTTP plumbing and failure taxonomy shared by
// the report providers.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MimoJanra/DomainReport/internal/checker"
)

// ErrUnexpectedShape marks an upstream response that decoded but did not
// carry the fields a provider relies on.
var ErrUnexpectedShape = errors.New("unexpected response shape")

// StatusError is a non-2xx upstream response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status code %d", e.Code)
	}
	return fmt.Sprintf("request failed with status code %d: %s", e.Code, e.Message)
}

// TimeoutError is returned when a provider call exceeds its own deadline.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout of %dms exceeded", e.Timeout.Milliseconds())
}

func (e *TimeoutError) Is(target error) bool {
	return target == context.DeadlineExceeded
}

// Describe renders err for a report section. Timeouts use the configured
// budget so every provider reports them the same way.
func Describe(err error, timeout time.Duration) string {
	if err == nil {
		return ""
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		return te.Error()
	}
	if timeout > 0 && checker.IsTimeoutError(err) {
		return (&TimeoutError{Timeout: timeout}).Error()
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Error()
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err.Error()
	}
	return err.Error()
}

// Client executes JSON requests against one upstream API.
type Client struct {
	httpClient *http.Client
}

func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{httpClient: httpClient}
}

// GetJSON issues a GET to rawURL with query and decodes a 2xx body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, query url.Values, out any) error {
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		rawURL += sep + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", checker.UserAgent)

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && !checker.IsTimeoutError(err) {
			return fmt.Errorf("network error contacting %s: %w", req.URL.Hostname(), err)
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &StatusError{Code: resp.StatusCode, Message: upstreamMessage(b)}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w: %v", ErrUnexpectedShape, err)
	}

	return nil
}

// upstreamMessage pulls a human readable message out of common JSON error
// envelopes, falling back to the trimmed body.
const maxMessageBytes = 200

func upstreamMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message      string `json:"message"`
		ErrorMessage string `json:"ErrorMessage"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		switch {
		case envelope.Error.Message != "":
			return envelope.Error.Message
		case envelope.Message != "":
			return envelope.Message
		case envelope.ErrorMessage != "":
			return envelope.ErrorMessage
		}
	}
	msg := truncate(strings.ToValidUTF8(strings.TrimSpace(string(body)), ""), maxMessageBytes)
	if strings.HasPrefix(msg, "<") {
		return ""
	}
	return msg
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
