package otp

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/samirrijal/tripshape/internal/core/domain"
)

// ErrInvalidPayload wraps every decoding or validation failure.
var ErrInvalidPayload = errors.New("invalid routing payload")

var validate = validator.New()

// DecodeItinerary parses and validates a single OTP itinerary.
func DecodeItinerary(data []byte) (domain.Itinerary, error) {
	var it Itinerary
	if err := json.Unmarshal(data, &it); err != nil {
		return domain.Itinerary{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := validate.Struct(it); err != nil {
		return domain.Itinerary{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return it.ToDomain(), nil
}

// DecodePlan parses and validates an OTP plan. Both the bare plan object and
// the full response wrapping it under "plan" are accepted.
func DecodePlan(data []byte) (domain.Plan, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return domain.Plan{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if resp.Error != nil && resp.Plan == nil {
		return domain.Plan{}, fmt.Errorf("%w: routing error %d: %s", ErrInvalidPayload, resp.Error.ID, resp.Error.Message)
	}

	plan := resp.Plan
	if plan == nil {
		plan = &Plan{}
		if err := json.Unmarshal(data, plan); err != nil {
			return domain.Plan{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	}
	if err := validate.Struct(plan); err != nil {
		return domain.Plan{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return plan.ToDomain(), nil
}

// ToDomain converts the plan and every itinerary in it, keeping their order.
func (p Plan) ToDomain() domain.Plan {
	out := domain.Plan{
		From:        p.From.ToDomain(),
		To:          p.To.ToDomain(),
		Date:        millis(p.Date),
		Itineraries: make([]domain.Itinerary, 0, len(p.Itineraries)),
	}
	for _, it := range p.Itineraries {
		out.Itineraries = append(out.Itineraries, it.ToDomain())
	}
	return out
}

// ToDomain converts the itinerary. Fractional durations are floored to whole seconds.
func (it Itinerary) ToDomain() domain.Itinerary {
	out := domain.Itinerary{
		Legs:               make([]domain.Leg, 0, len(it.Legs)),
		DurationSeconds:    seconds(it.Duration),
		StartTime:          millis(it.StartTime),
		EndTime:            millis(it.EndTime),
		WalkTimeSeconds:    seconds(it.WalkTime),
		TransitTimeSeconds: seconds(it.TransitTime),
		WaitingTimeSeconds: seconds(it.WaitingTime),
		WalkDistanceMeters: it.WalkDistance,
		Transfers:          it.Transfers,
	}
	for _, l := range it.Legs {
		out.Legs = append(out.Legs, l.ToDomain())
	}
	return out
}

// ToDomain converts the leg. An empty route string is treated as no route,
// so such legs never merge.
func (l Leg) ToDomain() domain.Leg {
	out := domain.Leg{
		Mode:            strings.ToUpper(l.Mode),
		TransitLeg:      l.TransitLeg != nil && *l.TransitLeg,
		AgencyName:      l.AgencyName,
		RouteColor:      l.RouteColor,
		RouteTextColor:  l.RouteTextColor,
		Headsign:        l.Headsign,
		From:            l.From.ToDomain(),
		To:              l.To.ToDomain(),
		StartTime:       millis(l.StartTime),
		EndTime:         millis(l.EndTime),
		DistanceMeters:  l.Distance,
		DurationSeconds: seconds(l.Duration),
	}
	if l.Route != nil && *l.Route != "" {
		r := *l.Route
		out.Route = &r
	}
	if l.LegGeometry != nil {
		out.Geometry = l.LegGeometry.Points
	}
	for _, s := range l.IntermediateStops {
		out.IntermediateStops = append(out.IntermediateStops, s.ToDomain())
	}
	for _, s := range l.Steps {
		out.Steps = append(out.Steps, s.ToDomain())
		if s.StreetName != "" {
			out.StreetNames = append(out.StreetNames, s.StreetName)
		}
	}
	return out
}

// ToDomain converts the place.
func (p Place) ToDomain() domain.Place {
	return domain.Place{
		Name:       p.Name,
		Lat:        p.Lat,
		Lon:        p.Lon,
		VertexType: p.VertexType,
		StopID:     p.StopID,
		StopCode:   p.StopCode,
	}
}

// ToDomain converts the step.
func (s Step) ToDomain() domain.Step {
	return domain.Step{
		DistanceMeters:    s.Distance,
		RelativeDirection: s.RelativeDirection,
		AbsoluteDirection: s.AbsoluteDirection,
		StreetName:        s.StreetName,
		Lat:               s.Lat,
		Lon:               s.Lon,
	}
}

func millis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// seconds truncates, so a 59.9s walk stays below the 60s threshold.
func seconds(f float64) int {
	return int(math.Floor(f))
}
