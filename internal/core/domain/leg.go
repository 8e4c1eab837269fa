package domain

import "slices"

// MinWalkDurationSeconds is the shortest walk kept by RelevantLegs.
const MinWalkDurationSeconds = 60

// IsWalk reports whether the leg is a walking segment.
func (l Leg) IsWalk() bool {
	return l.Mode == ModeWalk
}

// IsNegligibleWalk reports whether the leg is a walk too short to display.
func (l Leg) IsNegligibleWalk() bool {
	return l.IsWalk() && l.DurationSeconds < MinWalkDurationSeconds
}

// ShouldMerge reports whether b continues the same ride as a.
// Both routes must be present and equal and both legs must be transit legs.
func ShouldMerge(a, b Leg) bool {
	if a.Route == nil || b.Route == nil {
		return false
	}
	return *a.Route == *b.Route && a.TransitLeg && b.TransitLeg
}

// Merge folds b into a and returns a new leg.
//
// Timing and destination come from b's end, distance and duration are summed,
// every other descriptive field comes from a. Geometry stays a's polyline;
// b's polylines are appended to MergedGeometries so that geometry consumers
// may opt into the full path.
func Merge(a, b Leg) Leg {
	merged := a
	merged.EndTime = b.EndTime
	merged.To = b.To
	merged.DistanceMeters = a.DistanceMeters + b.DistanceMeters
	merged.DurationSeconds = a.DurationSeconds + b.DurationSeconds

	extra := make([]string, 0, len(a.MergedGeometries)+1+len(b.MergedGeometries))
	extra = append(extra, a.MergedGeometries...)
	if b.Geometry != "" {
		extra = append(extra, b.Geometry)
	}
	extra = append(extra, b.MergedGeometries...)
	if len(extra) == 0 {
		extra = nil
	}
	merged.MergedGeometries = extra

	merged.IntermediateStops = slices.Clone(a.IntermediateStops)
	merged.Steps = slices.Clone(a.Steps)
	merged.StreetNames = slices.Clone(a.StreetNames)
	return merged
}

// MergeLegs merges runs of strictly adjacent legs that belong to the same ride.
// A leg that does not continue the current ride ends the run for good.
func MergeLegs(legs []Leg) []Leg {
	out := make([]Leg, 0, len(legs))
	if len(legs) == 0 {
		return out
	}

	current := legs[0]
	for _, next := range legs[1:] {
		if ShouldMerge(current, next) {
			current = Merge(current, next)
			continue
		}
		out = append(out, current)
		current = next
	}
	return append(out, current)
}

// RelevantLegs drops negligible walks and merges what remains, preserving order.
func RelevantLegs(legs []Leg) []Leg {
	kept := make([]Leg, 0, len(legs))
	for _, l := range legs {
		if l.IsNegligibleWalk() {
			continue
		}
		kept = append(kept, l)
	}
	return MergeLegs(kept)
}
