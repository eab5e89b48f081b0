package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/raasta/internal/pkg/metrics"
)

const defaultRequestTimeout = 15 * time.Second

// DefaultLegacySunset is announced on the path-style endpoints when no other
// date is configured.
var DefaultLegacySunset = time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC)

// SetupRoutes registers all REST, legacy, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	if deps.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        deps.RateLimit,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			Next: func(c *fiber.Ctx) bool {
				// probes and scrapes are never throttled
				p := c.Path()
				return p == "/metrics" || p == "/v1/health" || p == "/v1/ready"
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
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	sunset := deps.LegacySunset
	if sunset.IsZero() {
		sunset = DefaultLegacySunset
	}
	app.Use(DeprecationMiddleware(LegacyRoutes(sunset)))

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	reqTimeout := deps.RequestTimeout
	if reqTimeout <= 0 {
		reqTimeout = defaultRequestTimeout
	}
	withTimeout := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, reqTimeout)
	}

	v1 := app.Group("/v1")
	v1.Get("/hazards/:category", withTimeout(ListHazardsHandler(deps)))
	v1.Get("/hazards/:category/geojson", withTimeout(HazardsGeoJSONHandler(deps)))
	v1.Get("/nearest", withTimeout(NearestHandler(deps)))
	v1.Get("/route", withTimeout(RouteHandler(deps)))
	v1.Get("/route/geojson", withTimeout(RouteGeoJSONHandler(deps)))

	// Path-style endpoints of the first API version
	app.Get("/get_points/:type", withTimeout(LegacyPointsHandler(deps)))
	app.Get("/get_nearest_neighbor/*", withTimeout(LegacyNearestHandler(deps)))
	app.Get("/get_intersection/*", withTimeout(LegacyIntersectionHandler(deps)))

	// GraphQL
	app.Post("/graphql", withTimeout(GraphQLHandler(deps)))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/route", websocket.New(RouteStreamHandler(deps)))
}
