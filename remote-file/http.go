package remotefile

import (
	"net"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
)

var (
	// DefaultMaxConnsPerHost is the maximum number of connections per host to
	// the remote storage server.
	DefaultMaxConnsPerHost = 64

	// DefaultMaxIdleConnsPerHost is the maximum number of idle (keep-alive)
	// connections per host to the remote storage server.
	DefaultMaxIdleConnsPerHost = 16

	// DefaultKeepAlive is the keep-alive period for HTTP connections to the
	// remote storage server.
	DefaultKeepAlive = 180 * time.Second

	// DefaultTimeout is the timeout for HTTP requests to the remote storage
	// server.
	DefaultTimeout = 60 * time.Second
)

func NewHTTPTransport() *http.Transport {
	return &http.Transport{
		IdleConnTimeout:     time.Minute,
		MaxConnsPerHost:     DefaultMaxConnsPerHost,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		Proxy:               http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   DefaultTimeout,
			KeepAlive: DefaultKeepAlive,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// NewHTTPClient returns a new Client from the provided config.
// Client is safe for concurrent use by multiple goroutines.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   DefaultTimeout,
		Transport: gzhttp.Transport(NewHTTPTransport()),
	}
}
