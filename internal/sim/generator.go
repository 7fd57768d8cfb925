package sim

import (
	"fmt"
	"math"
	"time"

	"transit-simulator/internal/geo"
	"transit-simulator/internal/transit"
)

// RouteShapes holds the immutable geometry for one selected route. The
// cumulative distances are computed once and reused for every generation
// cycle until the route selection changes.
type RouteShapes struct {
	Forward    transit.Path
	ForwardCum []float64

	// Reverse is optional. When nil, direction 1 traverses Forward end to
	// start by inverting the progress fraction.
	Reverse    transit.Path
	ReverseCum []float64
}

// NewRouteShapes precomputes cumulative distances for a route's path(s).
// reverse may be nil when direction 1 reuses the forward shape.
func NewRouteShapes(forward, reverse transit.Path) *RouteShapes {
	rs := &RouteShapes{
		Forward:    forward,
		ForwardCum: geo.CumulativeDistances(forward),
	}
	if len(reverse) >= 2 {
		rs.Reverse = reverse
		rs.ReverseCum = geo.CumulativeDistances(reverse)
	}
	return rs
}

// VehicleID derives the stable identifier for a simulated vehicle slot.
// Identical inputs always produce the same ID, which is what lets a client
// correlate successive snapshots of the same vehicle.
func VehicleID(routeID string, direction, slot int) string {
	return fmt.Sprintf("sim-%s-%d-%d", routeID, direction, slot)
}

// Generate computes the complete vehicle snapshot for one route at the given
// reference time. It is a pure function: identical inputs always yield
// identical coordinates, so independent consumers (a map view and a list
// view, say) agree without coordination.
//
// A path with fewer than 2 points means the route has no simulated traffic;
// that returns an empty list, not an error. Otherwise the result has exactly
// 2 x VehiclesPerDirection entries.
func Generate(route transit.Route, shapes *RouteShapes, params ScheduleParams, at time.Time) []transit.SimulatedVehicle {
	if shapes == nil || len(shapes.Forward) < 2 {
		return nil
	}

	perDir := params.VehiclesPerDirection()
	vehicles := make([]transit.SimulatedVehicle, 0, 2*perDir)
	for direction := 0; direction < 2; direction++ {
		path, cum := shapes.Forward, shapes.ForwardCum
		inverted := direction == 1
		if direction == 1 && shapes.Reverse != nil {
			// Distinct reverse shape: traverse it forward.
			path, cum = shapes.Reverse, shapes.ReverseCum
			inverted = false
		}
		for slot := 0; slot < perDir; slot++ {
			f := geo.NormalizeFraction(params.Progress(at, slot))
			sample := f
			if inverted {
				sample = 1 - f
			}
			pos, bearing := geo.SamplePath(path, cum, sample)
			if inverted {
				// Segment bearings face direction-0 travel.
				bearing = math.Mod(bearing+180, 360)
			}
			vehicles = append(vehicles, transit.SimulatedVehicle{
				ID:             VehicleID(route.ID, direction, slot),
				RouteID:        route.ID,
				RouteShortName: route.ShortName,
				Lat:            pos.Lat,
				Lon:            pos.Lon,
				BearingDeg:     bearing,
				Direction:      direction,
				DirectionLabel: route.DirectionLabels[direction],
				Progress:       f,
				Timestamp:      at,
			})
		}
	}
	return vehicles
}
