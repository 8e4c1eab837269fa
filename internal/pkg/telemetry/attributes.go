package telemetry

import "go.opentelemetry.io/otel/attribute"

// Span attribute keys used for instrumentation.
const (
	AttrItineraryID   = attribute.Key("itinerary.id")
	AttrLegCount      = attribute.Key("itinerary.legs")
	AttrRelevantLegs  = attribute.Key("itinerary.relevant_legs")
	AttrHasBounds     = attribute.Key("itinerary.has_bounds")
	AttrGeometryMode  = attribute.Key("itinerary.geometry_mode")
	AttrCacheHit      = attribute.Key("cache.hit")
	AttrPolylineBytes = attribute.Key("polyline.bytes")
)

// TracerName is the instrumentation scope of spans created by this service.
const TracerName = "github.com/samirrijal/tripshape"
