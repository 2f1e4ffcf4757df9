package transcribe

import (
	"crypto/tls"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// NewHTTPClient builds the shared upload client. The transport is reused
// across requests so connections stay warm between recordings.
func NewHTTPClient(timeout time.Duration, enableHTTP2, verifySSL bool) *http.Client {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if !verifySSL {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if enableHTTP2 {
		_ = http2.ConfigureTransport(tr)
	}
	return &http.Client{Transport: tr, Timeout: timeout}
}
