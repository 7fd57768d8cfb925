package marker

import (
	"time"

	"transit-simulator/internal/geo"
	"transit-simulator/internal/transit"
)

// DefaultSnapKm is the start-to-target distance beyond which a marker jumps
// to the target instead of sliding. A reused vehicle ID or a large time gap
// would otherwise produce a long nonsensical glide across the map.
const DefaultSnapKm = 0.5

// State is the animation record for one displayed vehicle marker. It is
// plain data: stepping is done by Tick, and association with whatever the
// display layer draws happens in Registry. Nothing here touches a rendering
// library.
type State struct {
	Displayed transit.Point

	start     transit.Point
	target    transit.Point
	startTime time.Time
	duration  time.Duration
	animating bool

	snapKm float64
}

// NewState creates a marker at its initial position, not animating.
func NewState(initial transit.Point) *State {
	return &State{Displayed: initial, snapKm: DefaultSnapKm}
}

// SetSnapThreshold overrides the snap distance for this marker.
func (s *State) SetSnapThreshold(km float64) {
	if km > 0 {
		s.snapKm = km
	}
}

// SetTarget begins easing the displayed position toward target over the
// given duration, starting from wherever the marker is displayed right now.
// Any in-flight animation is replaced; there is never more than one
// animation driving the displayed coordinate.
//
// If the jump from displayed to target exceeds the snap threshold the marker
// moves there immediately with no animation.
func (s *State) SetTarget(target transit.Point, duration time.Duration, now time.Time) {
	if geo.HaversineKm(s.Displayed.Lat, s.Displayed.Lon, target.Lat, target.Lon) > s.snapKm {
		s.Displayed = target
		s.animating = false
		return
	}
	s.start = s.Displayed
	s.target = target
	s.startTime = now
	s.duration = duration
	s.animating = duration > 0
	if !s.animating {
		s.Displayed = target
	}
}

// Tick advances the animation to the given instant and returns the displayed
// position. Once progress reaches 1 the displayed coordinate is set exactly
// to the target, eliminating residual floating-point drift, and the
// animation stops. Ticking an idle marker is a no-op.
func (s *State) Tick(now time.Time) transit.Point {
	if !s.animating {
		return s.Displayed
	}
	progress := float64(now.Sub(s.startTime)) / float64(s.duration)
	if progress >= 1 {
		s.Displayed = s.target
		s.animating = false
		return s.Displayed
	}
	if progress < 0 {
		progress = 0
	}
	s.Displayed = transit.Point{
		Lat: s.start.Lat + (s.target.Lat-s.start.Lat)*progress,
		Lon: s.start.Lon + (s.target.Lon-s.start.Lon)*progress,
	}
	return s.Displayed
}

// Animating reports whether an easing is still in flight.
func (s *State) Animating() bool { return s.animating }
