package sim

import (
	"math"
	"time"
)

// ScheduleParams are the per-route constants driving the schedule model.
type ScheduleParams struct {
	HeadwayMinutes      float64
	TripDurationMinutes float64
}

// VehiclesPerDirection returns how many evenly staggered vehicle slots one
// direction needs so the line stays covered end to end: ceil(trip/headway),
// never less than 1.
func (p ScheduleParams) VehiclesPerDirection() int {
	if p.HeadwayMinutes <= 0 || p.TripDurationMinutes <= 0 {
		return 1
	}
	n := int(math.Ceil(p.TripDurationMinutes / p.HeadwayMinutes))
	if n < 1 {
		n = 1
	}
	return n
}

// minutesSinceMidnight keeps fractional seconds so progress advances smoothly
// inside a minute.
func minutesSinceMidnight(t time.Time) float64 {
	h, m, s := t.Clock()
	return float64(h)*60 + float64(m) + (float64(s)+float64(t.Nanosecond())/1e9)/60
}

// Progress returns the raw (unwrapped) fractional path progress for slot i
// at time t. The caller wraps it into [0,1) when sampling. Both directions
// use the same offset formula; the generator inverts the wrapped fraction
// for direction 1, which traverses the shared path end to start.
//
// Slot i is offset by i headways so vehicles in one direction are evenly
// staggered. Position is a pure, periodic function of t with period
// TripDurationMinutes.
func (p ScheduleParams) Progress(t time.Time, slot int) float64 {
	offset := float64(slot) * p.HeadwayMinutes
	return (minutesSinceMidnight(t) - offset) / p.TripDurationMinutes
}
