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
			Namespace: "basp",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "basp",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	messagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "basp",
			Subsystem: "engine",
			Name:      "messages_sent_total",
			Help:      "Messages dispatched to a directly or indirectly reachable node.",
		},
		[]string{"node"},
	)
	messagesForwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "basp",
			Subsystem: "engine",
			Name:      "messages_forwarded_total",
			Help:      "Frames relayed to a next hop on behalf of another node.",
		},
		[]string{"source", "dest", "next_hop", "operation"},
	)
	messagesSendingFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "basp",
			Subsystem: "engine",
			Name:      "messages_sending_failed_total",
			Help:      "Dispatch calls that found no route to the destination.",
		},
		[]string{"node"},
	)
	messagesForwardingFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "basp",
			Subsystem: "engine",
			Name:      "messages_forwarding_failed_total",
			Help:      "Forwarding attempts that found no route to the destination.",
		},
		[]string{"source", "dest"},
	)
	actorsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "basp",
			Subsystem: "registry",
			Name:      "actors_published_total",
			Help:      "Published-actor registrations.",
		},
		[]string{"port"},
	)
)

// RegisterMetrics registers the package's collectors with the default
// Prometheus registry exactly once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			messagesSent, messagesForwarded, messagesSendingFailed, messagesForwardingFailed,
			actorsPublished,
		)
	})
}

// RecordHTTPRequest feeds the admin HTTP middleware's per-request metrics.
func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordMessageSent feeds the engine.Dispatch hook path.
func RecordMessageSent(node string) {
	RegisterMetrics()
	messagesSent.WithLabelValues(node).Inc()
}

// RecordMessageForwarded feeds the engine forwarding hook path.
func RecordMessageForwarded(source, dest, nextHop, operation string) {
	RegisterMetrics()
	messagesForwarded.WithLabelValues(source, dest, nextHop, operation).Inc()
}

// RecordMessageSendingFailed feeds the engine.Dispatch no-route hook path.
func RecordMessageSendingFailed(node string) {
	RegisterMetrics()
	messagesSendingFailed.WithLabelValues(node).Inc()
}

// RecordMessageForwardingFailed feeds the engine forwarding-failure hook
// path.
func RecordMessageForwardingFailed(source, dest string) {
	RegisterMetrics()
	messagesForwardingFailed.WithLabelValues(source, dest).Inc()
}

// RecordActorPublished feeds the registry publish hook path.
func RecordActorPublished(port string) {
	RegisterMetrics()
	actorsPublished.WithLabelValues(port).Inc()
}
