package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "robolink",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"app", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "robolink",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"app", "method", "path", "status"},
	)
	linkBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "robolink",
			Subsystem: "link",
			Name:      "bytes_total",
			Help:      "Bytes moved over the serial link.",
		},
		[]string{"direction"},
	)
	linkFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "robolink",
			Subsystem: "link",
			Name:      "frames_total",
			Help:      "Frames decoded from or written to the serial link.",
		},
		[]string{"direction"},
	)
	linkDegraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "robolink",
			Subsystem: "link",
			Name:      "degraded_total",
			Help:      "Decode degradations: unknown bytes, truncated payloads, overflow resets, discarded bytes.",
		},
		[]string{"reason"},
	)
	linkErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "robolink",
			Subsystem: "link",
			Name:      "transport_errors_total",
			Help:      "Transport errors by operation.",
		},
		[]string{"op"},
	)
	telemetryMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "robolink",
			Subsystem: "telemetry",
			Name:      "messages_total",
			Help:      "Inbound messages by recognised shape.",
		},
		[]string{"shape"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			linkBytes,
			linkFrames,
			linkDegraded,
			linkErrors,
			telemetryMessages,
		)
	})
}

func RecordHTTPRequest(app, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(app, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(app, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordBytesRead(n int) {
	RegisterMetrics()
	linkBytes.WithLabelValues("rx").Add(float64(n))
}

func RecordFrameSent(n int) {
	RegisterMetrics()
	linkBytes.WithLabelValues("tx").Add(float64(n))
	linkFrames.WithLabelValues("tx").Inc()
}

// FrameDelta is the change in frame buffer counters since the last report.
type FrameDelta struct {
	Frames         uint64
	Overflows      uint64
	DiscardedBytes uint64
	UnknownBytes   uint64
	Truncated      uint64
}

func RecordFrameDelta(d FrameDelta) {
	RegisterMetrics()
	if d.Frames > 0 {
		linkFrames.WithLabelValues("rx").Add(float64(d.Frames))
	}
	if d.Overflows > 0 {
		linkDegraded.WithLabelValues("overflow").Add(float64(d.Overflows))
	}
	if d.DiscardedBytes > 0 {
		linkDegraded.WithLabelValues("discarded_bytes").Add(float64(d.DiscardedBytes))
	}
	if d.UnknownBytes > 0 {
		linkDegraded.WithLabelValues("unknown_byte").Add(float64(d.UnknownBytes))
	}
	if d.Truncated > 0 {
		linkDegraded.WithLabelValues("truncated_payload").Add(float64(d.Truncated))
	}
}

func RecordTransportError(op string) {
	RegisterMetrics()
	linkErrors.WithLabelValues(op).Inc()
}

func RecordTelemetry(shape string) {
	RegisterMetrics()
	telemetryMessages.WithLabelValues(shape).Inc()
}
