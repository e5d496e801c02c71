package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var FileRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "daicon_file_requests_total",
		Help: "File backend requests by backend and action",
	},
	[]string{"backend", "action"},
)

var FileRequestErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "daicon_file_request_errors_total",
		Help: "Failed file backend requests by backend and action",
	},
	[]string{"backend", "action"},
)

var RemoteFileHttpRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "daicon_remote_file_http_requests_total",
		Help: "HTTP requests made by the remote file backend",
	},
	[]string{"method", "code"},
)

var RangeCacheHitsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "daicon_range_cache_hits_total",
		Help: "Range cache lookups by outcome",
	},
	[]string{"outcome"},
)
