package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CapturesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "presence",
		Name:      "captures_processed_total",
		Help:      "Total number of capture tasks processed",
	}, []string{"source"})

	ProbesMatched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "presence",
		Name:      "probes_matched_total",
		Help:      "Total number of probes resolved to an enrolled identity",
	})

	ProbesUnmatched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "presence",
		Name:      "probes_unmatched_total",
		Help:      "Total number of probes with no confident match",
	})

	DescriptorsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "presence",
		Name:      "descriptors_skipped_total",
		Help:      "Gallery descriptors skipped during matching due to dimension mismatch",
	})

	AttendanceMarked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "presence",
		Name:      "attendance_marked_total",
		Help:      "Total number of new attendance records created",
	})

	AttendanceDuplicates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "presence",
		Name:      "attendance_duplicates_total",
		Help:      "Total number of attendance marks suppressed as same-day duplicates",
	})

	StatisticsClamped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "presence",
		Name:      "statistics_clamped_total",
		Help:      "Daily statistics reads where absent count was clamped to zero",
	})

	MatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "presence",
		Name:      "match_duration_seconds",
		Help:      "Duration of gallery matching",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
	})

	GallerySize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "presence",
		Name:      "gallery_size",
		Help:      "Number of enrolled descriptors in the current gallery snapshot",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "presence",
		Name:      "queue_depth",
		Help:      "Number of pending capture tasks in queue",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "presence",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "presence",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
