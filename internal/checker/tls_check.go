package checker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// TLSResult describes the certificate a server presented.
type TLSResult struct {
	Valid         bool
	Issuer        string
	Subject       string
	NotBefore     time.Time
	NotAfter      time.Time
	DaysRemaining int
	Version       string
	VerifyError   string
	DurationMS    int
}

// tlsConfigForHost skips the handshake's own verification so that expired
// or mismatched certificates can still be inspected; verification happens
// afterwards against the system roots.
func tlsConfigForHost(serverName string) *tls.Config {
	cfg := &tls.Config{InsecureSkipVerify: true}
	if serverName != "" && net.ParseIP(serverName) == nil {
		cfg.ServerName = serverName
	}
	return cfg
}

func RunTLSCheck(ctx context.Context, host string, port int, timeout time.Duration) (TLSResult, error) {
	return runTLSCheckWithSNI(ctx, host, host, port, timeout, nil)
}

func runTLSCheckWithSNI(ctx context.Context, host, serverName string, port int, timeout time.Duration, roots *x509.CertPool) (TLSResult, error) {
	start := time.Now()
	address := net.JoinHostPort(host, strconv.Itoa(port))

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config:    tlsConfigForHost(serverName),
	}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return TLSResult{DurationMS: int(time.Since(start).Milliseconds())}, fmt.Errorf("TLS connection failed: %w", err)
	}
	defer conn.Close()

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return TLSResult{}, errors.New("TLS connection failed: not a TLS connection")
	}
	state := tlsConn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return TLSResult{}, errors.New("TLS connection failed: no peer certificates")
	}

	leaf := state.PeerCertificates[0]
	result := TLSResult{
		Issuer:        leaf.Issuer.CommonName,
		Subject:       leaf.Subject.CommonName,
		NotBefore:     leaf.NotBefore,
		NotAfter:      leaf.NotAfter,
		DaysRemaining: int(time.Until(leaf.NotAfter).Hours() / 24),
		Version:       tls.VersionName(state.Version),
		DurationMS:    int(time.Since(start).Milliseconds()),
	}
	if result.Issuer == "" && len(leaf.Issuer.Organization) > 0 {
		result.Issuer = leaf.Issuer.Organization[0]
	}

	intermediates := x509.NewCertPool()
	for _, cert := range state.PeerCertificates[1:] {
		intermediates.AddCert(cert)
	}
	_, verr := leaf.Verify(x509.VerifyOptions{
		DNSName:       serverName,
		Roots:         roots,
		Intermediates: intermediates,
	})
	if verr != nil {
		result.VerifyError = verr.Error()
	} else {
		result.Valid = true
	}

	return result, nil
}
