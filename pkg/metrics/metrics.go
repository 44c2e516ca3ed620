// Package metrics provides Prometheus metrics for the Data Lake client.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adlfs_requests_total",
			Help: "Total number of storage REST requests",
		},
		[]string{"method", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adlfs_request_duration_seconds",
			Help:    "Storage REST request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	bytesDownloaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "adlfs_bytes_downloaded_total",
			Help: "Total bytes received in response bodies",
		},
	)

	bytesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "adlfs_bytes_uploaded_total",
			Help: "Total bytes sent in request bodies",
		},
	)

	tokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adlfs_token_refreshes_total",
			Help: "Total credential exchanges against the token endpoint",
		},
		[]string{"result"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest records one storage REST round trip. A status of 0 means
// the request failed before a response was received.
func RecordRequest(method string, status int, duration time.Duration) {
	requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordDownload records bytes received from the service.
func RecordDownload(n int64) {
	bytesDownloaded.Add(float64(n))
}

// RecordUpload records bytes sent to the service.
func RecordUpload(n int64) {
	bytesUploaded.Add(float64(n))
}

// RecordTokenRefresh records a credential exchange attempt.
func RecordTokenRefresh(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	tokenRefreshesTotal.WithLabelValues(result).Inc()
}
