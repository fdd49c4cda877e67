package httpx

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// New returns an http.Client with sane transport defaults for outbound
// provider calls. Retries and circuit breaking are layered on top by the
// resilience package, not duplicated here.
func New(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:     (&net.Dialer{Timeout: timeout}).DialContext,
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			MaxIdleConns:    100,
			IdleConnTimeout: 30 * time.Second,
		},
	}
}
