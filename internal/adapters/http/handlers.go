package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/raasta/internal/core/domain"
	"github.com/samirrijal/raasta/internal/pkg/geospatial"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 500
)

// ListHazardsHandler returns one category of hazards, paginated.
func ListHazardsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		category, err := domain.ParseCategory(c.Params("category"))
		if err != nil {
			return errQuery(c, err)
		}

		points, err := deps.Hazards.ListHazards(c.UserContext(), category)
		if err != nil {
			return errQuery(c, err)
		}

		offset, limit := pageParams(c)
		page, pg := paginate(points, offset, limit)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// HazardsGeoJSONHandler returns one category of hazards as a GeoJSON
// FeatureCollection of points.
func HazardsGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		category, err := domain.ParseCategory(c.Params("category"))
		if err != nil {
			return errQuery(c, err)
		}

		points, err := deps.Hazards.ListHazards(c.UserContext(), category)
		if err != nil {
			return errQuery(c, err)
		}

		fc := geojson.NewFeatureCollection()
		appendHazardFeatures(fc, category, points)
		return sendGeoJSON(c, fc)
	}
}

// NearestHandler returns the nearest hazard of each category to every point
// in ?points=lat,lon,lat,lon...
func NearestHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Query("points")
		if raw == "" {
			return errBadRequest(c, "points query parameter is required")
		}

		res, err := deps.Hazards.NearestNeighbors(c.UserContext(), raw)
		if err != nil {
			return errQuery(c, err)
		}

		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.JSON(res)
	}
}

// RouteHandler returns the hazards lying on the route given either as
// ?points=lat,lon,... or as an encoded ?polyline=.
func RouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			res *domain.RouteHazards
			err error
		)
		switch {
		case c.Query("polyline") != "":
			var pts []domain.Point
			if pts, err = geospatial.ParsePolyline(c.Query("polyline")); err == nil {
				res, err = deps.Hazards.RouteIntersectionsFromPoints(c.UserContext(), pts)
			}
		case c.Query("points") != "":
			res, err = deps.Hazards.RouteIntersections(c.UserContext(), c.Query("points"))
		default:
			return errBadRequest(c, "points or polyline query parameter is required")
		}
		if err != nil {
			return errQuery(c, err)
		}

		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.JSON(res)
	}
}

// RouteGeoJSONHandler returns the route as a LineString feature followed by
// one point feature per hazard on it.
func RouteGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			pts []domain.Point
			err error
		)
		switch {
		case c.Query("polyline") != "":
			pts, err = geospatial.ParsePolyline(c.Query("polyline"))
		case c.Query("points") != "":
			pts, err = geospatial.ParseCoordinates(c.Query("points"))
		default:
			return errBadRequest(c, "points or polyline query parameter is required")
		}
		if err != nil {
			return errQuery(c, err)
		}

		res, err := deps.Hazards.RouteIntersectionsFromPoints(c.UserContext(), pts)
		if err != nil {
			return errQuery(c, err)
		}

		fc := geojson.NewFeatureCollection()
		line := geojson.NewFeature(domain.Route{Points: pts}.LineString())
		line.Properties["kind"] = "route"
		fc.Append(line)
		for _, cat := range domain.Categories() {
			appendHazardFeatures(fc, cat, res.Get(cat))
		}

		c.Set(fiber.HeaderCacheControl, "no-store")
		return sendGeoJSON(c, fc)
	}
}

func appendHazardFeatures(fc *geojson.FeatureCollection, category domain.HazardCategory, points []domain.Point) {
	for _, p := range points {
		f := geojson.NewFeature(p.Orb())
		f.Properties["kind"] = "hazard"
		f.Properties["category"] = string(category)
		fc.Append(f)
	}
}

func sendGeoJSON(c *fiber.Ctx, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/geo+json")
	return c.Send(data)
}
