package server

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the backend's prometheus collectors on a private registry.
type Metrics struct {
	registry      *prometheus.Registry
	onlineUsers   prometheus.Gauge
	wsConnections prometheus.Counter
	httpRequests  *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		onlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chatline",
			Name:      "online_users",
			Help:      "Users with at least one open presence socket.",
		}),
		wsConnections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chatline",
			Name:      "ws_connections_total",
			Help:      "Presence websocket connections accepted.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatline",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(m.onlineUsers, m.wsConnections, m.httpRequests)
	return m
}

// Registry returns the registry backing /metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Middleware counts every request. Errors are rendered here so the recorded
// status matches the response.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				return herr
			}
		}
		status := strconv.Itoa(c.Response().StatusCode())
		m.httpRequests.WithLabelValues(c.Method(), c.Route().Path, status).Inc()
		return nil
	}
}

func (m *Metrics) connected() {
	if m == nil {
		return
	}
	m.wsConnections.Inc()
}

func (m *Metrics) setOnline(n int) {
	if m == nil {
		return
	}
	m.onlineUsers.Set(float64(n))
}
