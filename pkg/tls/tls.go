// Package tls builds the server's TLS configuration from certificate files
// or a generated self-signed certificate.
package tls

import (
	"crypto/tls"
	"errors"
	"fmt"
	"time"
)

// ErrNoCertificate is returned when TLS is enabled without a certificate
// and generation is off.
var ErrNoCertificate = errors.New("TLS enabled but no certificate provided and auto-generation disabled")

// Options selects the certificate source.
type Options struct {
	CertFile     string
	KeyFile      string
	AutoGenerate bool          // self-signed when no files are given
	Hosts        []string      // DNS names or IPs for generated certificates
	ValidFor     time.Duration // generated certificate lifetime
}

// DefaultOptions generates a one-year localhost certificate.
func DefaultOptions() Options {
	return Options{
		AutoGenerate: true,
		Hosts:        []string{"localhost", "127.0.0.1"},
		ValidFor:     365 * 24 * time.Hour,
	}
}

// Load returns a server TLS config for opts.
func Load(opts Options) (*tls.Config, error) {
	var (
		cert tls.Certificate
		err  error
	)
	switch {
	case opts.CertFile != "" && opts.KeyFile != "":
		cert, err = tls.LoadX509KeyPair(opts.CertFile, opts.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
		}
	case opts.AutoGenerate:
		cert, err = GenerateSelfSigned(opts.Hosts, opts.ValidFor)
		if err != nil {
			return nil, fmt.Errorf("failed to generate self-signed certificate: %w", err)
		}
	default:
		return nil, ErrNoCertificate
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		CipherSuites: SecureCipherSuites(),
		NextProtos:   []string{"h2", "http/1.1"},
	}, nil
}

// SecureCipherSuites lists the TLS 1.2 suites allowed alongside TLS 1.3,
// which negotiates its own.
func SecureCipherSuites() []uint16 {
	return []uint16{
		tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
		tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
		tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
		tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
	}
}
