package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DeprecatedRoute marks an endpoint as deprecated with sunset date.
type DeprecatedRoute struct {
	Path        string    // Route pattern, ":name" matches one segment, a trailing "*" the rest
	SunsetDate  time.Time // Date when endpoint will be removed
	Alternative string    // Recommended alternative endpoint (optional)
}

// LegacyRoutes lists the path-style endpoints superseded by /v1.
func LegacyRoutes(sunset time.Time) []DeprecatedRoute {
	return []DeprecatedRoute{
		{Path: "/get_points/:type", SunsetDate: sunset, Alternative: "/v1/hazards/{category}"},
		{Path: "/get_nearest_neighbor/*", SunsetDate: sunset, Alternative: "/v1/nearest"},
		{Path: "/get_intersection/*", SunsetDate: sunset, Alternative: "/v1/route"},
	}
}

// DeprecationMiddleware adds Deprecation, Sunset, and Link headers to deprecated endpoints.
func DeprecationMiddleware(deprecated []DeprecatedRoute) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, d := range deprecated {
			if !matchPattern(c.Path(), d.Path) {
				continue
			}

			// RFC 8594
			c.Set("Deprecation", "true")
			c.Set("Sunset", d.SunsetDate.UTC().Format(time.RFC1123))

			// RFC 8288
			if d.Alternative != "" {
				c.Set("Link", fmt.Sprintf(`<%s>; rel="successor-version"`, d.Alternative))
			}

			days := time.Until(d.SunsetDate).Hours() / 24
			if days < 0 {
				days = 0
			}
			c.Set("Warning", fmt.Sprintf(`299 - "Deprecated API, will sunset in %.0f days"`, days))
			break
		}

		return c.Next()
	}
}

// matchPattern reports whether path matches a route pattern such as
// "/v1/hazards/:category" or "/get_intersection/*".
func matchPattern(path, pattern string) bool {
	if path == pattern {
		return true
	}

	pathSegs := strings.Split(strings.Trim(path, "/"), "/")
	patSegs := strings.Split(strings.Trim(pattern, "/"), "/")

	for i, seg := range patSegs {
		if seg == "*" {
			// the wildcard must match at least one segment
			return i == len(patSegs)-1 && len(pathSegs) > i && pathSegs[i] != ""
		}
		if i >= len(pathSegs) {
			return false
		}
		if strings.HasPrefix(seg, ":") {
			if pathSegs[i] == "" {
				return false
			}
			continue
		}
		if seg != pathSegs[i] {
			return false
		}
	}
	return len(pathSegs) == len(patSegs)
}
