package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/tripshape/internal/adapters/otp"
	"github.com/samirrijal/tripshape/internal/core/domain"
)

// NormalizeItineraryHandler turns one OTP itinerary into its display form.
// With ?store=true the result is also persisted and announced.
func NormalizeItineraryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		it, err := otp.DecodeItinerary(c.Body())
		if err != nil {
			return errFrom(c, err)
		}

		if c.QueryBool("store", false) {
			n, err := deps.Itineraries.Ingest(c.UserContext(), it, "api")
			if err != nil {
				return errFrom(c, err)
			}
			c.Location("/v1/itineraries/" + n.ID)
			return c.Status(fiber.StatusCreated).JSON(n)
		}

		return c.JSON(deps.Itineraries.Normalize(c.UserContext(), it))
	}
}

// NormalizePlanHandler normalizes every itinerary of an OTP plan.
func NormalizePlanHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		plan, err := otp.DecodePlan(c.Body())
		if err != nil {
			return errFrom(c, err)
		}

		return c.JSON(fiber.Map{
			"from":        plan.From,
			"to":          plan.To,
			"itineraries": deps.Itineraries.NormalizePlan(c.UserContext(), plan),
		})
	}
}

// ListItinerariesHandler returns stored itinerary summaries, newest first.
func ListItinerariesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		items, total, err := deps.Itineraries.List(c.UserContext(), offset, limit)
		if err != nil {
			return errInternal(c, err)
		}
		if items == nil {
			items = []domain.ItinerarySummary{}
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: items, Pagination: pg})
	}
}

// GetItineraryHandler returns one stored normalized itinerary.
func GetItineraryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "id is required")
		}

		n, err := deps.Itineraries.Get(c.UserContext(), id)
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(n)
	}
}

// DecodePolylineHandler decodes ?encoded=... into coordinates.
// Malformed input yields an empty list, not an error.
func DecodePolylineHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		encoded := c.Query("encoded")
		coords, err := deps.Polylines.Decode(c.UserContext(), encoded)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=86400")
		return c.JSON(fiber.Map{
			"coordinates": coords,
			"count":       len(coords),
		})
	}
}

type encodeRequest struct {
	Coordinates []domain.Coordinate `json:"coordinates"`
}

// EncodePolylineHandler encodes a coordinate list.
func EncodePolylineHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req encodeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		encoded, err := deps.Polylines.Encode(c.UserContext(), req.Coordinates)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.JSON(fiber.Map{"encoded": encoded})
	}
}

// PolylineBoundsHandler returns the bounding box of ?encoded=...;
// both boxes are null when the polyline holds no points.
func PolylineBoundsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rect, bounds, err := deps.Polylines.Bounds(c.UserContext(), c.Query("encoded"))
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=86400")
		return c.JSON(fiber.Map{
			"bounding_box": rect,
			"bounds":       bounds,
		})
	}
}
