// Package otp decodes OpenTripPlanner plan responses into domain values.
package otp

// Response is the top-level body returned by the OTP plan endpoint.
type Response struct {
	Plan  *Plan  `json:"plan"`
	Error *Error `json:"error,omitempty"`
}

// Error is the routing error OTP returns instead of a plan.
type Error struct {
	ID      int    `json:"id"`
	Message string `json:"msg"`
}

// Plan is a set of alternative itineraries between two places.
type Plan struct {
	Date        int64       `json:"date"`
	From        Place       `json:"from"`
	To          Place       `json:"to"`
	Itineraries []Itinerary `json:"itineraries" validate:"dive"`
}

// Itinerary is one OTP itinerary. Durations are in seconds, times in epoch milliseconds.
type Itinerary struct {
	Duration     float64 `json:"duration" validate:"gte=0"`
	StartTime    int64   `json:"startTime"`
	EndTime      int64   `json:"endTime"`
	WalkTime     float64 `json:"walkTime" validate:"gte=0"`
	TransitTime  float64 `json:"transitTime" validate:"gte=0"`
	WaitingTime  float64 `json:"waitingTime" validate:"gte=0"`
	WalkDistance float64 `json:"walkDistance" validate:"gte=0"`
	Transfers    int     `json:"transfers" validate:"gte=0"`
	Legs         []Leg   `json:"legs" validate:"dive"`
}

// Leg is one OTP leg. Route and TransitLeg are pointers so that absent fields stay absent.
type Leg struct {
	Mode              string       `json:"mode" validate:"required"`
	Route             *string      `json:"route"`
	TransitLeg        *bool        `json:"transitLeg"`
	AgencyName        string       `json:"agencyName"`
	RouteColor        string       `json:"routeColor"`
	RouteTextColor    string       `json:"routeTextColor"`
	Headsign          string       `json:"headsign"`
	From              Place        `json:"from"`
	To                Place        `json:"to"`
	StartTime         int64        `json:"startTime"`
	EndTime           int64        `json:"endTime"`
	Distance          float64      `json:"distance" validate:"gte=0"`
	Duration          float64      `json:"duration" validate:"gte=0"`
	LegGeometry       *LegGeometry `json:"legGeometry"`
	IntermediateStops []Place      `json:"intermediateStops" validate:"dive"`
	Steps             []Step       `json:"steps" validate:"dive"`
}

// LegGeometry carries an encoded polyline and its point count.
type LegGeometry struct {
	Points string `json:"points"`
	Length int    `json:"length"`
}

// Place is a stop or street location referenced by a leg.
type Place struct {
	Name       string  `json:"name"`
	Lat        float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon        float64 `json:"lon" validate:"gte=-180,lte=180"`
	VertexType string  `json:"vertexType"`
	StopID     *string `json:"stopId"`
	StopCode   *string `json:"stopCode"`
}

// Step is a turn-by-turn walking instruction.
type Step struct {
	Distance          float64 `json:"distance" validate:"gte=0"`
	RelativeDirection string  `json:"relativeDirection"`
	AbsoluteDirection string  `json:"absoluteDirection"`
	StreetName        string  `json:"streetName"`
	Lat               float64 `json:"lat"`
	Lon               float64 `json:"lon"`
}
