// Package tlsclient builds HTTP clients for stacks served with self-signed
// certificates.
package tlsclient

import (
	"crypto/tls"
	"net/http"
	"time"
)

// NewInsecure returns a client that skips certificate verification.
func NewInsecure(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
