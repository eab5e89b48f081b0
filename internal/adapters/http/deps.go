package http

import (
	"time"

	"github.com/samirrijal/raasta/internal/adapters/postgres"
	"github.com/samirrijal/raasta/internal/core/ports"
	"github.com/samirrijal/raasta/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Hazards *usecases.HazardService

	// Readiness probes; nil means not configured.
	Store       ports.Pinger
	StoreDriver string
	Events      ports.Pinger
	Cache       ports.Pinger
	DB          *postgres.DB // set for the postgres driver, feeds pool metrics

	RequestTimeout time.Duration // per-request timeout on query routes
	RateLimit      int           // requests per minute per IP, 0 disables
	LegacySunset   time.Time     // announced end of the path-style endpoints
}
