// Package metrics exposes Prometheus counters for HTTP traffic, chat activity
// and the realtime relay.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector registers and updates every metric of the server.
type Collector struct {
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	messagesSent     prometheus.Counter
	friendRequests   prometheus.Counter
	relaySubscribers prometheus.Gauge
	relayDelivered   prometheus.Counter
	relayDropped     prometheus.Counter
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "animechat_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "animechat_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "animechat_messages_sent_total",
			Help: "Direct messages stored.",
		}),
		friendRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "animechat_friend_requests_total",
			Help: "Friend requests created.",
		}),
		relaySubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "animechat_relay_subscribers",
			Help: "Live realtime subscriptions.",
		}),
		relayDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "animechat_relay_delivered_total",
			Help: "Realtime events handed to a subscriber.",
		}),
		relayDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "animechat_relay_dropped_total",
			Help: "Realtime events dropped because a subscriber lagged.",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.messagesSent,
		c.friendRequests,
		c.relaySubscribers,
		c.relayDelivered,
		c.relayDropped,
	)
	return c
}

// ObserveHTTP records one finished request. route is the router pattern, not
// the raw path, to keep label cardinality bounded.
func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) MessageSent()   { c.messagesSent.Inc() }
func (c *Collector) FriendRequest() { c.friendRequests.Inc() }

func (c *Collector) RelaySubscribers(delta int) { c.relaySubscribers.Add(float64(delta)) }
func (c *Collector) RelayDelivered()            { c.relayDelivered.Inc() }
func (c *Collector) RelayDropped()              { c.relayDropped.Inc() }

// Handler serves the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
