package checker

import (
	"context"
	"crypto/x509"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunHTTPCheck_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	res := RunHTTPCheck(context.Background(), ts.Client(), ts.URL, time.Second)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "2xx", res.Outcome)
	assert.True(t, res.Up())
}

func TestRunHTTPCheck_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	res := RunHTTPCheck(context.Background(), ts.Client(), ts.URL, time.Second)
	assert.Equal(t, StatusFailure, res.Status)
	assert.Equal(t, "5xx", res.Outcome)
	assert.False(t, res.Up())
}

func TestRunHTTPCheck_ClientErrorCountsAsUp(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	res := RunHTTPCheck(context.Background(), ts.Client(), ts.URL, time.Second)
	assert.Equal(t, "4xx", res.Outcome)
	assert.True(t, res.Up())
}

func TestRunHTTPCheck_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	res := RunHTTPCheck(context.Background(), ts.Client(), ts.URL, 50*time.Millisecond)
	assert.Equal(t, StatusTimeout, res.Status)
	assert.NotEmpty(t, res.ErrorMessage)
	assert.False(t, res.Up())
}

func TestRunHTTPCheck_InvalidURL(t *testing.T) {
	res := RunHTTPCheck(context.Background(), nil, "://bad", time.Second)
	assert.Equal(t, StatusError, res.Status)
}

func TestIsTimeoutError(t *testing.T) {
	assert.False(t, IsTimeoutError(nil))
	assert.True(t, IsTimeoutError(context.DeadlineExceeded))
	assert.True(t, IsTimeoutError(&url.Error{Op: "Get", URL: "x", Err: context.DeadlineExceeded}))
	assert.False(t, IsTimeoutError(context.Canceled))
}

func TestRunTLSCheck(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	t.Run("untrusted certificate is reported, not failed", func(t *testing.T) {
		res, err := RunTLSCheck(context.Background(), host, port, time.Second)
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.NotEmpty(t, res.VerifyError)
		assert.Greater(t, res.DaysRemaining, 0)
		assert.NotEmpty(t, res.Version)
	})

	t.Run("trusted certificate is valid", func(t *testing.T) {
		roots := x509.NewCertPool()
		roots.AddCert(ts.Certificate())
		res, err := runTLSCheckWithSNI(context.Background(), host, "example.com", port, time.Second, roots)
		require.NoError(t, err)
		assert.True(t, res.Valid, res.VerifyError)
	})

	t.Run("closed port", func(t *testing.T) {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		closedPort := l.Addr().(*net.TCPAddr).Port
		require.NoError(t, l.Close())

		_, err = RunTLSCheck(context.Background(), "127.0.0.1", closedPort, time.Second)
		assert.ErrorContains(t, err, "TLS connection failed")
	})
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(2, 0)
	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())
}

func TestRateLimiter_MinInterval(t *testing.T) {
	rl := NewRateLimiter(0, 1000)
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())
}

func TestRateLimiter_WaitRespectsContext(t *testing.T) {
	rl := NewRateLimiter(1, 0)
	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := rl.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiter_NilWaitIsNoop(t *testing.T) {
	var rl *RateLimiter
	assert.NoError(t, rl.Wait(context.Background()))
}
