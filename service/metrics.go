package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess       = "success"
	outcomeStorageError  = "storage_error"
	outcomeDatabaseError = "database_error"
)

var (
	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upload_service_uploads_total",
			Help: "Uploads processed, by outcome",
		},
		[]string{"outcome"},
	)

	uploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "upload_service_upload_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)

	uploadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upload_service_upload_duration_seconds",
			Help:    "Time spent storing an upload and its metadata",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
)

func observeUpload(outcome string, size int, start time.Time) {
	uploadsTotal.WithLabelValues(outcome).Inc()
	uploadDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	if outcome == outcomeSuccess {
		uploadBytes.Observe(float64(size))
	}
}
