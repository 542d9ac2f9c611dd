package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is used by the controller components and the backend client
type Recorder interface {
	RecordDivinationRequest(fortuneType string)
	RecordDivinationDiscarded()
	RecordDivinationFailure(kind string)
	RecordAuthEvent(kind string)
	RecordAuthChecked(source string)
	RecordTicketConsumed(action string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector records controller metrics in Prometheus
type Collector struct {
	divinationRequests  *prometheus.CounterVec
	divinationDiscarded prometheus.Counter
	divinationFailures  *prometheus.CounterVec
	authEvents          *prometheus.CounterVec
	authChecked         *prometheus.CounterVec
	ticketsConsumed     *prometheus.CounterVec
	httpStatus          *prometheus.CounterVec
	requestLatency      prometheus.Histogram
}

// NewCollector creates a Collector and registers it with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		divinationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uranai_divination_requests_total",
			Help: "Divination requests dispatched to the backend",
		}, []string{"fortune_type"}),
		divinationDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uranai_divination_discarded_total",
			Help: "Divination responses dropped because their key was superseded",
		}),
		divinationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uranai_divination_failures_total",
			Help: "Failed divination requests by error kind",
		}, []string{"kind"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uranai_auth_events_total",
			Help: "Normalized auth provider session events",
		}, []string{"kind"}),
		authChecked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uranai_auth_checked_total",
			Help: "Startup auth checks by completing source",
		}, []string{"source"}),
		ticketsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uranai_tickets_consumed_total",
			Help: "Tickets consumed by action",
		}, []string{"action"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uranai_backend_http_status_total",
			Help: "Backend responses by status code",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "uranai_backend_request_latency_seconds",
			Help:    "Backend request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.divinationRequests,
		c.divinationDiscarded,
		c.divinationFailures,
		c.authEvents,
		c.authChecked,
		c.ticketsConsumed,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

func (c *Collector) RecordDivinationRequest(fortuneType string) {
	c.divinationRequests.WithLabelValues(fortuneType).Inc()
}

func (c *Collector) RecordDivinationDiscarded() {
	c.divinationDiscarded.Inc()
}

func (c *Collector) RecordDivinationFailure(kind string) {
	c.divinationFailures.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordAuthEvent(kind string) {
	c.authEvents.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordAuthChecked(source string) {
	c.authChecked.WithLabelValues(source).Inc()
}

func (c *Collector) RecordTicketConsumed(action string) {
	c.ticketsConsumed.WithLabelValues(action).Inc()
}

func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Nop discards everything
type Nop struct{}

func (Nop) RecordDivinationRequest(string)     {}
func (Nop) RecordDivinationDiscarded()         {}
func (Nop) RecordDivinationFailure(string)     {}
func (Nop) RecordAuthEvent(string)             {}
func (Nop) RecordAuthChecked(string)           {}
func (Nop) RecordTicketConsumed(string)        {}
func (Nop) RecordHTTPStatus(int)               {}
func (Nop) RecordRequestLatency(time.Duration) {}

// Handler serves /metrics from gatherer
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}
