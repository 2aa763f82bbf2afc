// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package sso

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cobaltcore-dev/cinderbridge/pkg/conf"
)

// Headers that carry credentials and must never end up in the logs.
var redactedHeaders = []string{"X-Auth-Token", "X-Subject-Token"}

// Round tripper that logs each request to the volume or identity api,
// together with the negotiated microversion and the response status.
type requestLogger struct {
	next http.RoundTripper
}

func (l *requestLogger) RoundTrip(req *http.Request) (*http.Response, error) {
	attrs := []any{"method", req.Method, "url", req.URL.String()}
	if version := req.Header.Get("OpenStack-API-Version"); version != "" {
		attrs = append(attrs, "apiVersion", version)
	}
	for _, header := range redactedHeaders {
		if req.Header.Get(header) != "" {
			attrs = append(attrs, header, "[redacted]")
		}
	}
	start := time.Now()
	resp, err := l.next.RoundTrip(req)
	attrs = append(attrs, "duration", time.Since(start))
	if err != nil {
		slog.Debug("http request failed", append(attrs, "error", err)...)
		return nil, err
	}
	slog.Debug("http request done", append(attrs, "status", resp.StatusCode)...)
	return resp, nil
}

// Create a new HTTP client that logs each request. If a client certificate
// is configured, it is presented to the remote side.
func NewHTTPClient(config conf.SSOConfig) (*http.Client, error) {
	if config.Cert == "" {
		slog.Debug("making http requests without SSO")
		return &http.Client{Transport: &requestLogger{next: &http.Transport{}}}, nil
	}
	tlsConfig, err := clientTLSConfig(config)
	if err != nil {
		return nil, err
	}
	return &http.Client{Transport: &requestLogger{next: &http.Transport{TLSClientConfig: tlsConfig}}}, nil
}

func clientTLSConfig(config conf.SSOConfig) (*tls.Config, error) {
	if config.CertKey == "" {
		return nil, errors.New("missing cert key for SSO")
	}
	cert, err := tls.X509KeyPair([]byte(config.Cert), []byte(config.CertKey))
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AddCert(cert.Leaf)
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		// Self signed volume api endpoints cannot be verified.
		//nolint:gosec
		InsecureSkipVerify: config.SelfSigned,
	}, nil
}
