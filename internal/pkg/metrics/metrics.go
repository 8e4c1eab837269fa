package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripshape",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tripshape",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tripshape",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Normalizer metrics
	ItinerariesNormalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripshape",
		Subsystem: "normalizer",
		Name:      "itineraries_total",
		Help:      "Total itineraries normalized",
	}, []string{"source"})

	LegsMerged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tripshape",
		Subsystem: "normalizer",
		Name:      "legs_merged_total",
		Help:      "Legs folded into a preceding leg of the same ride",
	})

	WalksDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tripshape",
		Subsystem: "normalizer",
		Name:      "walks_dropped_total",
		Help:      "Negligible walking legs removed from display",
	})

	BoundingBoxAbsent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tripshape",
		Subsystem: "normalizer",
		Name:      "bounding_box_absent_total",
		Help:      "Itineraries normalized without any geometry",
	})

	NormalizeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tripshape",
		Subsystem: "normalizer",
		Name:      "duration_seconds",
		Help:      "Time spent normalizing one itinerary",
		Buckets:   []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})

	NormalizeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripshape",
		Subsystem: "normalizer",
		Name:      "errors_total",
		Help:      "Failures storing or publishing normalized itineraries",
	}, []string{"stage"})

	// Polyline metrics
	PolylinePointsDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tripshape",
		Subsystem: "polyline",
		Name:      "points_decoded_total",
		Help:      "Coordinates decoded from polylines served by the API",
	})

	PolylineMalformed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tripshape",
		Subsystem: "polyline",
		Name:      "malformed_total",
		Help:      "Polylines that could not be decoded",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tripshape",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripshape",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripshape",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tripshape",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tripshape",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tripshape",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// PoolStat is the subset of pgxpool.Stat read by UpdateDBPoolMetrics.
type PoolStat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
}

// UpdateDBPoolMetrics copies pool statistics into the db gauges.
func UpdateDBPoolMetrics(s PoolStat) {
	DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
	DBPoolConnsIdle.Set(float64(s.IdleConns()))
	DBPoolConnsOpen.Set(float64(s.TotalConns()))
}
