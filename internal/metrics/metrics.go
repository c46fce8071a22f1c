// Package metrics exposes Prometheus metrics for bookings and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what services and middleware report to.
type Recorder interface {
	ReservationCreated(status string, partySize int)
	ReservationRejected(reason string)
	ReservationCancelled()
	AvailabilityLookup(cacheHit bool)
	HTTPRequest(method, route string, status int, duration time.Duration)
}

type Collector struct {
	created      *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	cancelled    prometheus.Counter
	covers       prometheus.Histogram
	availability *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewCollector creates the collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trattoria_reservations_created_total",
			Help: "Reservations created, by initial status.",
		}, []string{"status"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trattoria_reservations_rejected_total",
			Help: "Reservation attempts rejected, by reason.",
		}, []string{"reason"}),
		cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trattoria_reservations_cancelled_total",
			Help: "Reservations cancelled.",
		}),
		covers: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trattoria_reservation_party_size",
			Help:    "Party size of created reservations.",
			Buckets: []float64{1, 2, 4, 6, 8, 10, 12},
		}),
		availability: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trattoria_availability_lookups_total",
			Help: "Availability lookups, by cache result.",
		}, []string{"cache"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trattoria_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(c.created, c.rejected, c.cancelled, c.covers, c.availability, c.httpDuration)
	return c
}

func (c *Collector) ReservationCreated(status string, partySize int) {
	c.created.WithLabelValues(status).Inc()
	c.covers.Observe(float64(partySize))
}

func (c *Collector) ReservationRejected(reason string) {
	c.rejected.WithLabelValues(reason).Inc()
}

func (c *Collector) ReservationCancelled() {
	c.cancelled.Inc()
}

func (c *Collector) AvailabilityLookup(cacheHit bool) {
	label := "miss"
	if cacheHit {
		label = "hit"
	}
	c.availability.WithLabelValues(label).Inc()
}

func (c *Collector) HTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// Handler serves the Prometheus scrape endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) ReservationCreated(string, int)                 {}
func (Nop) ReservationRejected(string)                     {}
func (Nop) ReservationCancelled()                          {}
func (Nop) AvailabilityLookup(bool)                        {}
func (Nop) HTTPRequest(string, string, int, time.Duration) {}
