package domain

import (
	"time"
)

// Travel modes as reported by the routing API (always uppercase).
const (
	ModeWalk    = "WALK"
	ModeBus     = "BUS"
	ModeTram    = "TRAM"
	ModeRail    = "RAIL"
	ModeSubway  = "SUBWAY"
	ModeFerry   = "FERRY"
	ModeBicycle = "BICYCLE"
)

// Place is a location a leg starts at, ends at, or passes through.
type Place struct {
	Name       string  `json:"name"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	VertexType string  `json:"vertex_type,omitempty"`
	StopID     *string `json:"stop_id,omitempty"`
	StopCode   *string `json:"stop_code,omitempty"`
}

// Coordinate returns the place position.
func (p Place) Coordinate() Coordinate {
	return Coordinate{Lat: p.Lat, Lon: p.Lon}
}

// Step is a single turn-by-turn instruction inside a walking leg.
type Step struct {
	DistanceMeters    float64 `json:"distance_meters"`
	RelativeDirection string  `json:"relative_direction,omitempty"`
	AbsoluteDirection string  `json:"absolute_direction,omitempty"`
	StreetName        string  `json:"street_name,omitempty"`
	Lat               float64 `json:"lat"`
	Lon               float64 `json:"lon"`
}

// Leg is one contiguous segment of an itinerary using a single travel mode.
//
// Route is nil when the payload carried no route; a nil route never matches
// another nil route. MergedGeometries holds the polylines of later legs that
// were folded into this one by Merge; Geometry itself always stays the
// polyline of the first leg.
type Leg struct {
	Mode              string    `json:"mode"`
	Route             *string   `json:"route,omitempty"`
	TransitLeg        bool      `json:"transit_leg"`
	AgencyName        string    `json:"agency_name,omitempty"`
	RouteColor        string    `json:"route_color,omitempty"`
	RouteTextColor    string    `json:"route_text_color,omitempty"`
	Headsign          string    `json:"headsign,omitempty"`
	From              Place     `json:"from"`
	To                Place     `json:"to"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	DistanceMeters    float64   `json:"distance_meters"`
	DurationSeconds   int       `json:"duration_seconds"`
	Geometry          string    `json:"geometry"`
	MergedGeometries  []string  `json:"merged_geometries,omitempty"`
	IntermediateStops []Place   `json:"intermediate_stops,omitempty"`
	Steps             []Step    `json:"steps,omitempty"`
	StreetNames       []string  `json:"street_names,omitempty"`
}

// Itinerary is an ordered sequence of legs from origin to destination.
type Itinerary struct {
	ID                 string    `json:"id,omitempty"`
	Legs               []Leg     `json:"legs"`
	DurationSeconds    int       `json:"duration_seconds"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
	WalkTimeSeconds    int       `json:"walk_time_seconds"`
	TransitTimeSeconds int       `json:"transit_time_seconds"`
	WaitingTimeSeconds int       `json:"waiting_time_seconds"`
	WalkDistanceMeters float64   `json:"walk_distance_meters"`
	Transfers          int       `json:"transfers"`
}

// RelevantLegs returns the legs intended for turn-by-turn display.
func (it Itinerary) RelevantLegs() []Leg {
	return RelevantLegs(it.Legs)
}

// Plan is a routing response: several alternative itineraries between two places.
type Plan struct {
	From        Place       `json:"from"`
	To          Place       `json:"to"`
	Date        time.Time   `json:"date"`
	Itineraries []Itinerary `json:"itineraries"`
}

// DisplayLeg is a relevant leg together with its decoded path.
type DisplayLeg struct {
	Leg
	Points       []Coordinate `json:"points"`
	LengthMeters float64      `json:"length_meters"`
}

// NormalizedItinerary is the display-ready form of an itinerary.
// BoundingBox and Bounds are nil when the itinerary carries no geometry.
type NormalizedItinerary struct {
	ID               string        `json:"id,omitempty"`
	Legs             []DisplayLeg  `json:"legs"`
	BoundingBox      *BoundingRect `json:"bounding_box"`
	Bounds           *Bounds       `json:"bounds"`
	PathLengthMeters float64       `json:"path_length_meters"`
	DurationSeconds  int           `json:"duration_seconds"`
	StartTime        time.Time     `json:"start_time"`
	EndTime          time.Time     `json:"end_time"`
	Transfers        int           `json:"transfers"`
	GeometryMode     string        `json:"geometry_mode"`
	NormalizedAt     time.Time     `json:"normalized_at"`
}

// ItinerarySummary is a lightweight listing row for stored itineraries.
type ItinerarySummary struct {
	ID              string    `json:"id"`
	LegCount        int       `json:"leg_count"`
	DurationSeconds int       `json:"duration_seconds"`
	HasBounds       bool      `json:"has_bounds"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
