package checker

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

type CheckResult struct {
	Status       string
	StatusCode   int
	DurationMS   int
	Outcome      string
	ErrorMessage string
}

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusTimeout = "timeout"
	StatusError   = "error"
)

// Up reports whether the target answered with a non-5xx response.
func (r CheckResult) Up() bool {
	return r.StatusCode > 0 && r.StatusCode < http.StatusInternalServerError
}

func RunHTTPCheck(ctx context.Context, client *http.Client, url string, timeout time.Duration) CheckResult {
	return RunHTTPCheckWithMethod(ctx, client, url, http.MethodGet, timeout)
}

func RunHTTPCheckWithMethod(ctx context.Context, client *http.Client, url string, method string, timeout time.Duration) CheckResult {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, normalizeMethod(method), url, nil)
	if err != nil {
		return createErrorResult(err.Error())
	}
	req.Header.Set("User-Agent", UserAgent)

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start).Milliseconds()

	if err != nil {
		return handleRequestError(err, int(duration))
	}

	defer closeResponseBody(resp.Body)
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	return createSuccessResult(resp, int(duration))
}

// UserAgent is sent by every probe this package issues.
const UserAgent = "Mozilla/5.0 (compatible; DomainReport/1.0)"

func normalizeMethod(method string) string {
	if method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(method)
}

func createErrorResult(errorMsg string) CheckResult {
	return CheckResult{
		Status:       StatusError,
		DurationMS:   0,
		Outcome:      "error",
		ErrorMessage: errorMsg,
	}
}

func handleRequestError(err error, duration int) CheckResult {
	status, outcome := determineErrorStatus(err)
	return CheckResult{
		Status:       status,
		DurationMS:   duration,
		Outcome:      outcome,
		ErrorMessage: err.Error(),
	}
}

func determineErrorStatus(err error) (status, outcome string) {
	if IsTimeoutError(err) {
		return StatusTimeout, "timeout"
	}
	return StatusError, "error"
}

func closeResponseBody(body io.ReadCloser) {
	if body != nil {
		_ = body.Close()
	}
}

func createSuccessResult(resp *http.Response, duration int) CheckResult {
	status, outcome := determineResponseStatus(resp.StatusCode)
	return CheckResult{
		Status:     status,
		StatusCode: resp.StatusCode,
		DurationMS: duration,
		Outcome:    outcome,
	}
}

func determineResponseStatus(statusCode int) (status, outcome string) {
	switch {
	case statusCode >= 500:
		return StatusFailure, "5xx"
	case statusCode >= 400:
		return StatusFailure, "4xx"
	case statusCode >= 300:
		return StatusSuccess, "3xx"
	default:
		return StatusSuccess, "2xx"
	}
}

// IsTimeoutError recognises deadline errors from contexts, net.Conn and
// http.Client alike.
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}
