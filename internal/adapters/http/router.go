package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/tripshape/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// RouterOptions tunes the middleware stack.
type RouterOptions struct {
	// RateLimit is the number of requests per minute per IP (0 disables limiting).
	RateLimit int
	SpecPath  string
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies, opts RouterOptions) {
	app.Use(recover.New())

	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(TracingMiddleware())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	if opts.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        opts.RateLimit,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
			},
		}))
	}

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Post("/itineraries/normalize", timeout.NewWithContext(NormalizeItineraryHandler(deps), requestTimeout))
	v1.Post("/plans/normalize", timeout.NewWithContext(NormalizePlanHandler(deps), requestTimeout))
	v1.Get("/itineraries", timeout.NewWithContext(ListItinerariesHandler(deps), requestTimeout))
	v1.Get("/itineraries/:id", timeout.NewWithContext(GetItineraryHandler(deps), requestTimeout))
	v1.Get("/polyline/decode", DecodePolylineHandler(deps))
	v1.Post("/polyline/encode", EncodePolylineHandler(deps))
	v1.Get("/polyline/bounds", PolylineBoundsHandler(deps))

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app, opts.SpecPath)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
