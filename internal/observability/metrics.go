package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Recognitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "absensi",
		Name:      "recognitions_total",
		Help:      "Total recognition attempts by outcome",
	}, []string{"outcome"})

	AttendanceEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "absensi",
		Name:      "attendance_events_total",
		Help:      "Total recorded attendance transitions",
	}, []string{"type"})

	ImageFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "absensi",
		Name:      "image_fetches_total",
		Help:      "Total remote image fetch attempts",
	}, []string{"outcome"})

	StagedFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "absensi",
		Name:      "staged_files",
		Help:      "Number of image files currently staged in the cache directory",
	})

	RecognitionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "absensi",
		Name:      "recognition_duration_seconds",
		Help:      "Duration of calls to the recognition model service",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "absensi",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "absensi",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
