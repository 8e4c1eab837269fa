package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/tripshape/internal/core/domain"
	"github.com/samirrijal/tripshape/internal/core/usecases"
)

// buildSchema creates the GraphQL schema wired to our services.
// Resolvers hand back maps keyed by field name.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	boundingRectType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "BoundingRect",
		Description: "Enclosing rectangle in projected map units",
		Fields: graphql.Fields{
			"originX": &graphql.Field{Type: graphql.Float},
			"originY": &graphql.Field{Type: graphql.Float},
			"width":   &graphql.Field{Type: graphql.Float},
			"height":  &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"minLat": &graphql.Field{Type: graphql.Float},
			"minLon": &graphql.Field{Type: graphql.Float},
			"maxLat": &graphql.Field{Type: graphql.Float},
			"maxLon": &graphql.Field{Type: graphql.Float},
		},
	})

	boxResultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BoundingBoxResult",
		Fields: graphql.Fields{
			"rect":   &graphql.Field{Type: boundingRectType},
			"bounds": &graphql.Field{Type: boundsType},
		},
	})

	legType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Leg",
		Fields: graphql.Fields{
			"mode":            &graphql.Field{Type: graphql.String},
			"route":           &graphql.Field{Type: graphql.String},
			"transitLeg":      &graphql.Field{Type: graphql.Boolean},
			"headsign":        &graphql.Field{Type: graphql.String},
			"from":            &graphql.Field{Type: graphql.String},
			"to":              &graphql.Field{Type: graphql.String},
			"startTime":       &graphql.Field{Type: graphql.String},
			"endTime":         &graphql.Field{Type: graphql.String},
			"durationSeconds": &graphql.Field{Type: graphql.Int},
			"distanceMeters":  &graphql.Field{Type: graphql.Float},
			"lengthMeters":    &graphql.Field{Type: graphql.Float},
			"geometry":        &graphql.Field{Type: graphql.String},
			"points":          &graphql.Field{Type: graphql.NewList(coordinateType)},
		},
	})

	itineraryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Itinerary",
		Fields: graphql.Fields{
			"id":               &graphql.Field{Type: graphql.String},
			"relevantLegs":     &graphql.Field{Type: graphql.NewList(legType)},
			"boundingBox":      &graphql.Field{Type: boundingRectType},
			"bounds":           &graphql.Field{Type: boundsType},
			"durationSeconds":  &graphql.Field{Type: graphql.Int},
			"pathLengthMeters": &graphql.Field{Type: graphql.Float},
			"geometryMode":     &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"decodePolyline": &graphql.Field{
				Type:        graphql.NewList(coordinateType),
				Description: "Decode an encoded polyline (malformed input yields an empty list)",
				Args: graphql.FieldConfigArgument{
					"encoded": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					coords, err := deps.Polylines.Decode(p.Context, p.Args["encoded"].(string))
					if err != nil {
						return nil, err
					}
					return coordinateMaps(coords), nil
				},
			},
			"boundingBox": &graphql.Field{
				Type:        boxResultType,
				Description: "Bounding box of an encoded polyline, null when it has no points",
				Args: graphql.FieldConfigArgument{
					"encoded": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					rect, bounds, err := deps.Polylines.Bounds(p.Context, p.Args["encoded"].(string))
					if err != nil || rect == nil {
						return nil, err
					}
					return map[string]interface{}{
						"rect":   rectMap(rect),
						"bounds": boundsMap(bounds),
					}, nil
				},
			},
			"itinerary": &graphql.Field{
				Type:        itineraryType,
				Description: "A stored normalized itinerary",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					n, err := deps.Itineraries.Get(p.Context, p.Args["id"].(string))
					if errors.Is(err, usecases.ErrNotFound) {
						return nil, nil
					}
					if err != nil {
						return nil, err
					}
					return itineraryMap(n), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func coordinateMaps(coords []domain.Coordinate) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(coords))
	for _, c := range coords {
		out = append(out, map[string]interface{}{"lat": c.Lat, "lon": c.Lon})
	}
	return out
}

// rectMap and boundsMap return an untyped nil for nil input so GraphQL emits null.
func rectMap(r *domain.BoundingRect) interface{} {
	if r == nil {
		return nil
	}
	return map[string]interface{}{
		"originX": r.OriginX,
		"originY": r.OriginY,
		"width":   r.Width,
		"height":  r.Height,
	}
}

func boundsMap(b *domain.Bounds) interface{} {
	if b == nil {
		return nil
	}
	return map[string]interface{}{
		"minLat": b.MinLat,
		"minLon": b.MinLon,
		"maxLat": b.MaxLat,
		"maxLon": b.MaxLon,
	}
}

func itineraryMap(n *domain.NormalizedItinerary) map[string]interface{} {
	legs := make([]map[string]interface{}, 0, len(n.Legs))
	for _, l := range n.Legs {
		m := map[string]interface{}{
			"mode":            l.Mode,
			"transitLeg":      l.TransitLeg,
			"headsign":        l.Headsign,
			"from":            l.From.Name,
			"to":              l.To.Name,
			"startTime":       l.StartTime.Format("2006-01-02T15:04:05Z07:00"),
			"endTime":         l.EndTime.Format("2006-01-02T15:04:05Z07:00"),
			"durationSeconds": l.DurationSeconds,
			"distanceMeters":  l.DistanceMeters,
			"lengthMeters":    l.LengthMeters,
			"geometry":        l.Geometry,
			"points":          coordinateMaps(l.Points),
		}
		if l.Route != nil {
			m["route"] = *l.Route
		}
		legs = append(legs, m)
	}

	return map[string]interface{}{
		"id":               n.ID,
		"relevantLegs":     legs,
		"boundingBox":      rectMap(n.BoundingBox),
		"bounds":           boundsMap(n.Bounds),
		"durationSeconds":  n.DurationSeconds,
		"pathLengthMeters": n.PathLengthMeters,
		"geometryMode":     n.GeometryMode,
	}
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// programming error in the schema definition
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

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
