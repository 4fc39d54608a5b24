package app

import (
	"net"
	"net/http"
	"time"
)

// newSharedHTTPClient returns the HTTP client shared by the prober, the
// fetcher and the search providers. Pooling is tuned for many parallel
// hosts; there is no client-level timeout because every caller bounds
// its requests with a context deadline.
func newSharedHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          0,
		MaxIdleConnsPerHost:   64,
		MaxConnsPerHost:       0,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{Transport: transport}
}
