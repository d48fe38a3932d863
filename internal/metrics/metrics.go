// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "logmene"

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	statusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "freight",
		Name:      "status_transitions_total",
		Help:      "Freight request status transitions.",
	}, []string{"from", "to"})

	notificationsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      "dispatched_total",
		Help:      "Notification deliveries by channel (in_app, email, websocket, amqp) and result.",
	}, []string{"channel", "result"})

	websocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      "websocket_connections",
		Help:      "Open notification websocket connections.",
	})
)

// RecordTransition counts one status change.
func RecordTransition(from, to string) {
	statusTransitions.WithLabelValues(from, to).Inc()
}

// RecordNotification counts one delivery attempt on a channel.
func RecordNotification(channel string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	notificationsDispatched.WithLabelValues(channel, result).Inc()
}

func WebsocketConnected()    { websocketConnections.Inc() }
func WebsocketDisconnected() { websocketConnections.Dec() }

// Middleware observes request latency labelled by the route template, not the raw path.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			httpRequestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the Prometheus exposition format.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
