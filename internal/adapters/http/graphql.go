package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/raasta/internal/core/domain"
	"github.com/samirrijal/raasta/internal/pkg/geospatial"
)

// buildSchema creates the GraphQL schema wired to the hazard service. Object
// fields resolve from the domain types' json tags.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	pointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Point",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	nearestType := graphql.NewObject(graphql.ObjectConfig{
		Name: "NearestHazard",
		Fields: graphql.Fields{
			"distance":        &graphql.Field{Type: graphql.Float, Description: "Planar distance in degrees"},
			"distance_meters": &graphql.Field{Type: graphql.Float, Description: "Great-circle distance in meters"},
			"location":        &graphql.Field{Type: pointType},
		},
	})

	nearestHazardsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "NearestHazards",
		Fields: graphql.Fields{
			"pothole":      &graphql.Field{Type: graphql.NewList(nearestType)},
			"speedbreaker": &graphql.Field{Type: graphql.NewList(nearestType)},
		},
	})

	routeHazardsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteHazards",
		Fields: graphql.Fields{
			"pothole":      &graphql.Field{Type: graphql.NewList(pointType)},
			"speedbreaker": &graphql.Field{Type: graphql.NewList(pointType)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"hazards": &graphql.Field{
				Type:        graphql.NewList(pointType),
				Description: "All hazards of a category (pothole or speedbreaker)",
				Args: graphql.FieldConfigArgument{
					"category": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					category, err := domain.ParseCategory(p.Args["category"].(string))
					if err != nil {
						return nil, err
					}
					return deps.Hazards.ListHazards(p.Context, category)
				},
			},
			"nearestHazards": &graphql.Field{
				Type:        nearestHazardsType,
				Description: "Nearest hazard of each category to every point",
				Args: graphql.FieldConfigArgument{
					"points": &graphql.ArgumentConfig{
						Type:        graphql.NewNonNull(graphql.String),
						Description: "lat,lon,lat,lon...",
					},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Hazards.NearestNeighbors(p.Context, p.Args["points"].(string))
				},
			},
			"routeHazards": &graphql.Field{
				Type:        routeHazardsType,
				Description: "Hazards lying on a route given as points or as an encoded polyline",
				Args: graphql.FieldConfigArgument{
					"points":   &graphql.ArgumentConfig{Type: graphql.String},
					"polyline": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if enc, ok := p.Args["polyline"].(string); ok && enc != "" {
						pts, err := geospatial.ParsePolyline(enc)
						if err != nil {
							return nil, err
						}
						return deps.Hazards.RouteIntersectionsFromPoints(p.Context, pts)
					}
					raw, _ := p.Args["points"].(string)
					return deps.Hazards.RouteIntersections(p.Context, raw)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Query == "" {
			return errBadRequest(c, "query is required")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.JSON(result)
	}
}
