package http

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/raasta/internal/core/domain"
)

// The first public version of the API exposed three path-style endpoints.
// They are kept with their original response shapes and marked deprecated.

type legacyPoints struct {
	Points [][2]float64 `json:"Points"`
}

type legacyNearest struct {
	PDist []float64    `json:"p_dist"`
	PLoc  [][2]float64 `json:"p_loc"`
	SDist []float64    `json:"s_dist"`
	SLoc  [][2]float64 `json:"s_loc"`
}

type legacyIntersection struct {
	Potholes      [][2]float64 `json:"Number of potholes"`
	Speedbreakers [][2]float64 `json:"Number of speedbreakers:"`
}

// LegacyPointsHandler serves /get_points/:type where type is Pothole or
// Speedbreaker.
func LegacyPointsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		category, err := domain.ParseCategory(c.Params("type"))
		if err != nil {
			return errBadRequest(c, "Invalid type of points requested")
		}

		points, err := deps.Hazards.ListHazards(c.UserContext(), category)
		if err != nil {
			return errQuery(c, err)
		}
		return c.JSON(legacyPoints{Points: pairs(points)})
	}
}

// LegacyNearestHandler serves /get_nearest_neighbor/<lat,lon,...>.
func LegacyNearestHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := url.PathUnescape(c.Params("*"))
		if err != nil {
			return errBadRequest(c, "malformed path")
		}

		res, err := deps.Hazards.NearestNeighbors(c.UserContext(), raw)
		if err != nil {
			return errQuery(c, err)
		}

		out := legacyNearest{}
		out.PDist, out.PLoc = splitNearest(res.Pothole)
		out.SDist, out.SLoc = splitNearest(res.Speedbreaker)

		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.JSON(out)
	}
}

// LegacyIntersectionHandler serves /get_intersection/<lat,lon,...>.
func LegacyIntersectionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := url.PathUnescape(c.Params("*"))
		if err != nil {
			return errBadRequest(c, "malformed path")
		}

		res, err := deps.Hazards.RouteIntersections(c.UserContext(), raw)
		if err != nil {
			return errQuery(c, err)
		}

		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.JSON(legacyIntersection{
			Potholes:      pairs(res.Pothole),
			Speedbreakers: pairs(res.Speedbreaker),
		})
	}
}

func pairs(points []domain.Point) [][2]float64 {
	out := make([][2]float64, 0, len(points))
	for _, p := range points {
		out = append(out, p.Pair())
	}
	return out
}

func splitNearest(results []domain.NearestResult) ([]float64, [][2]float64) {
	dist := make([]float64, 0, len(results))
	loc := make([][2]float64, 0, len(results))
	for _, r := range results {
		dist = append(dist, r.Distance)
		loc = append(loc, r.Location.Pair())
	}
	return dist, loc
}
